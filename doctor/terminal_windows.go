//go:build windows

package doctor

import (
	"os"

	"murmur/shutdown"
)

func resetTerminal() {
	// not needed on Windows
}

func setupInterruptHandler() {
	shutdown.OnSignal(func() {
		println("\nInterrupted")
		os.Exit(1)
	})
}
