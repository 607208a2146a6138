// Package hotkey watches for the global key combination that drives
// recording. On Linux it reads evdev directly so it works on Wayland too;
// elsewhere it goes through the platform hotkey APIs.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
