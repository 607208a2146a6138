//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Crash logging goes up before any CGO audio code runs.
	initCrashLog()

	// The hotkey library needs the process main thread on macOS and
	// Windows, so everything else moves off it.
	mainthread.Init(run)
}
