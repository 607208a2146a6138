//go:build windows

package cue

// No cue playback on Windows yet.

func Init()      {}
func PlayStart() {}
func PlayEnd()   {}
func PlayError() {}
