//go:build linux

package clipboard

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Key injection goes through uinput, so it works on X11 and Wayland alike:
// the events enter the kernel input layer like a real keyboard.

// ioctl constants from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564 // UI_SET_EVBIT
	uiSetKeybit = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate = 0x5501     // UI_DEV_CREATE
)

// event types from linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
)

const (
	keyLeftCtrl  = 29
	keyLeftShift = 42
	keyV         = 47
)

const busUSB = 0x03

const deviceName = "murmur-paste"

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

var (
	dev     *os.File
	devOnce sync.Once
	devErr  error
)

// Init creates the virtual keyboard. The first call pays a short delay so
// the compositor notices the new input device.
func Init() error {
	devOnce.Do(func() { dev, devErr = createDevice() })
	return devErr
}

func createDevice() (*os.File, error) {
	path := "/dev/uinput"
	if _, err := os.Stat(path); err != nil {
		path = "/dev/input/uinput"
		if _, err := os.Stat(path); err != nil {
			return nil, errors.New("no uinput device; load it with: sudo modprobe uinput")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	if err := ioctl(f, uiSetEvbit, evKey); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(f, uiSetEvbit, evSyn); err != nil {
		f.Close()
		return nil, err
	}
	// Register all standard keys so udev classifies this as a keyboard.
	for code := uintptr(0); code < 256; code++ {
		if err := ioctl(f, uiSetKeybit, code); err != nil {
			f.Close()
			return nil, err
		}
	}
	d := uinputUserDev{}
	copy(d.Name[:], deviceName)
	d.ID.Bustype = busUSB
	d.ID.Vendor = 0x6d75 // "mu"
	d.ID.Product = 0x726d
	d.ID.Version = 1
	if err := binary.Write(f, binary.LittleEndian, &d); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(f, uiDevCreate, 0); err != nil {
		f.Close()
		return nil, err
	}
	// Give the compositor time to recognize the new device.
	time.Sleep(200 * time.Millisecond)
	return f, nil
}

func ioctl(f *os.File, req, arg uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, arg); errno != 0 {
		return errno
	}
	return nil
}

func writeEvent(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(dev, binary.LittleEndian, &ev)
}

// key presses or releases one key and flushes it with a syn event.
func key(code uint16, down bool) error {
	value := int32(0)
	if down {
		value = 1
	}
	if err := writeEvent(evKey, code, value); err != nil {
		return err
	}
	return writeEvent(evSyn, 0, 0)
}

// Paste sends Ctrl+V. The short sleeps let the compositor register the
// modifier state before the letter arrives.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	if err := key(keyLeftCtrl, true); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	if err := key(keyV, true); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	if err := key(keyV, false); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	return key(keyLeftCtrl, false)
}

func keyTap(code uint16, shift bool) error {
	if shift {
		if err := key(keyLeftShift, true); err != nil {
			return err
		}
	}
	if err := key(code, true); err != nil {
		return err
	}
	if err := key(code, false); err != nil {
		return err
	}
	if shift {
		if err := key(keyLeftShift, false); err != nil {
			return err
		}
	}
	return nil
}

// Verify sends a Ctrl+V through the virtual keyboard and reads it back
// from the matching evdev node, confirming the whole injection path.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", fmt.Errorf("uinput init: %w", err)
	}

	node, err := findDevice()
	if err != nil {
		return "", err
	}
	evdev, err := os.Open(node)
	if err != nil {
		return "", fmt.Errorf("open %s for readback: %w", node, err)
	}
	defer evdev.Close()
	_ = evdev.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

	if err := Paste(); err != nil {
		return "", fmt.Errorf("injecting the keystroke: %w", err)
	}

	var sawCtrl, sawV bool
	buf := make([]byte, 4096)
	for !(sawCtrl && sawV) {
		n, err := evdev.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				return "", fmt.Errorf("keystroke never came back (ctrl=%v, v=%v)", sawCtrl, sawV)
			}
			return "", fmt.Errorf("reading back events: %w", err)
		}
		r := bytes.NewReader(buf[:n])
		var ev inputEvent
		for binary.Read(r, binary.LittleEndian, &ev) == nil {
			if ev.Type != evKey || ev.Value != 1 {
				continue
			}
			switch ev.Code {
			case keyLeftCtrl:
				sawCtrl = true
			case keyV:
				sawV = true
			}
		}
	}
	return "Ctrl+V delivered and read back from " + node, nil
}

// findDevice locates the evdev node the kernel assigned to the virtual
// keyboard.
func findDevice() (string, error) {
	matches, _ := filepath.Glob("/sys/class/input/event*/device/name")
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil || strings.TrimSpace(string(data)) != deviceName {
			continue
		}
		node := filepath.Base(filepath.Dir(filepath.Dir(m)))
		return filepath.Join("/dev/input", node), nil
	}
	return "", fmt.Errorf("virtual keyboard %q not visible under /dev/input", deviceName)
}
