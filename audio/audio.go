package audio

import (
	"errors"
	"slices"
	"strings"
)

// Errors returned by Context implementations when a capture stream cannot be
// opened. Callers classify with errors.Is.
var (
	ErrNoDevice   = errors.New("no capture device available")
	ErrPermission = errors.New("microphone access denied")
)

// Markers of wireless headsets in device names. Those mics drop to a
// low-quality codec while capturing.
var btMarkers = []string{
	"bluetooth",
	" bt ", " bt)", " bt]",
	"airpods", "galaxy buds", "pixel buds",
	"beats", "powerbeats", "bose", "jabra", "soundcore",
}

// IsBluetooth guesses from the name whether a device is a bluetooth
// headset.
func IsBluetooth(name string) bool {
	n := strings.ToLower(name)
	return slices.ContainsFunc(btMarkers, func(m string) bool {
		return strings.Contains(n, m)
	})
}

// DataCallback receives one chunk of mono float32 samples in [-1, 1].
// Chunks arrive in capture order. The callback runs on the audio thread and
// must not block.
type DataCallback func(samples []float32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}
