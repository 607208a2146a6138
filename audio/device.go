package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// SelectDevice presents an interactive picker over the context's capture
// devices and returns the choice. current preselects the cursor when it
// names a known device. A single device short-circuits without prompting.
func SelectDevice(ctx Context, current string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	if len(devices) == 1 {
		fmt.Printf("Using the only capture device: %s\n", devices[0].Name)
		return &devices[0], nil
	}

	cursor := 0
	for i, d := range devices {
		if current != "" && d.Name == current {
			cursor = i
			break
		}
	}

	fd := int(os.Stdin.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, prev)

	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Pick a microphone (↑/↓ or j/k, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[bluetooth: capture quality drops]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;35m▶ %s\x1b[0m%s\r\n", d.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, tag)
			}
		}
	}
	draw()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Print("\r\n")
			term.Restore(fd, prev)
			return &devices[cursor], nil
		case n == 1 && buf[0] == 3:
			fmt.Print("\r\n")
			term.Restore(fd, prev)
			os.Exit(130)
		}
		cursor = max(0, min(cursor+cursorDelta(buf[:n]), len(devices)-1))
		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}

// cursorDelta maps one raw key read to the movement it asks for.
func cursorDelta(key []byte) int {
	if len(key) == 1 {
		switch key[0] {
		case 'k':
			return -1
		case 'j':
			return 1
		}
		return 0
	}
	if len(key) == 3 && key[0] == 0x1b && key[1] == '[' {
		switch key[2] {
		case 'A':
			return -1
		case 'B':
			return 1
		}
	}
	return 0
}
