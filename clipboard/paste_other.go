//go:build !linux && !darwin && !windows

package clipboard

import "errors"

var errUnsupported = errors.New("key injection is not supported on this platform")

func Init() error {
	return errUnsupported
}

func Paste() error {
	return errUnsupported
}

func Type(text string) error {
	return errUnsupported
}

func Verify() (string, error) {
	return "", errUnsupported
}
