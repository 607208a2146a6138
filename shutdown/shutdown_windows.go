//go:build windows

// Package shutdown funnels the platform termination signals to one place.
package shutdown

import (
	"os"
	"os/signal"
)

// Notify returns a channel that receives the signals which should end a
// session cleanly. Windows has no SIGTERM; Ctrl+C and console close both
// land as Interrupt.
func Notify() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}

// OnSignal runs fn once when a termination signal arrives.
func OnSignal(fn func()) {
	go func() {
		<-Notify()
		fn()
	}()
}
