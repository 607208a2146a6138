//go:build !linux && !darwin

// Package autostart registers the binary to start with the desktop session.
package autostart

import "errors"

var errUnsupported = errors.New("autostart is not supported on this platform")

func Enabled() bool { return false }

func Enable() error { return errUnsupported }

func Disable() error { return errUnsupported }
