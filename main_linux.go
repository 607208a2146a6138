//go:build linux

package main

func main() {
	// Crash logging goes up before any CGO audio code runs.
	initCrashLog()
	run()
}
