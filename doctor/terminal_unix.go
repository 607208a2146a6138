//go:build !windows

package doctor

import (
	"os"
	"os/exec"

	"murmur/shutdown"
)

// resetTerminal undoes raw mode that a hotkey grab may leave behind.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}

func setupInterruptHandler() {
	shutdown.OnSignal(func() {
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	})
}
