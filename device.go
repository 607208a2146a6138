package main

import (
	"fmt"
	"os"
	"strings"

	"murmur/audio"
)

// resolveDevice turns the configured device name into a concrete capture
// device. An empty name means the system default. A name that matches
// nothing falls back to the default with a warning rather than refusing to
// start; the microphone the user unplugged yesterday should not brick
// dictation today.
func resolveDevice(actx audio.Context, name string) (*audio.DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := actx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	want := strings.ToLower(name)
	for i, d := range devices {
		if strings.ToLower(d.Name) == want {
			return &devices[i], nil
		}
	}
	for i, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), want) {
			return &devices[i], nil
		}
	}
	fmt.Fprintf(os.Stderr, "Warning: no capture device matches %q, using system default\n", name)
	return nil, nil
}

func listDevices(actx audio.Context) error {
	devices, err := actx.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Println("No capture devices found.")
		return nil
	}
	for _, d := range devices {
		tag := ""
		if audio.IsBluetooth(d.Name) {
			tag = "  (bluetooth)"
		}
		fmt.Printf("  %s%s\n", d.Name, tag)
	}
	return nil
}
