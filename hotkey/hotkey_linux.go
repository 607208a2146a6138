//go:build linux

package hotkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// input_event on 64-bit Linux: two 8-byte timestamp words, then type,
// code, value.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// modifier scancodes from linux/input-event-codes.h
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keyLAlt   = 56
	keyRAlt   = 100
	keyLMeta  = 125
	keyRMeta  = 126
)

const (
	modCtrl uint8 = 1 << iota
	modShift
	modAlt
	modSuper
)

var modifierBit = map[uint16]uint8{
	keyLCtrl: modCtrl, keyRCtrl: modCtrl,
	keyLShift: modShift, keyRShift: modShift,
	keyLAlt: modAlt, keyRAlt: modAlt,
	keyLMeta: modSuper, keyRMeta: modSuper,
}

// scancodes for the keys ParseCombo can name
var linuxKeyCodes = map[string]uint16{
	"a": 30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34,
	"h": 35, "i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49,
	"o": 24, "p": 25, "q": 16, "r": 19, "s": 31, "t": 20, "u": 22,
	"v": 47, "w": 17, "x": 45, "y": 21, "z": 44,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9,
	"9": 10, "0": 11,
	"space": 57, "enter": 28, "tab": 15, "escape": 1,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
	"up": 103, "down": 108, "left": 105, "right": 106,
}

var errNoKeyboards = errors.New("no keyboards under /dev/input (is this user in the input group?)")

// linuxHotkey reads evdev devices directly instead of registering with the
// display server, so the combo fires under X11, Wayland and the console
// alike. Needs read access to /dev/input.
type linuxHotkey struct {
	combo   Combo
	keyCode uint16
	want    uint8
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

func New(combo Combo) Hotkey {
	var want uint8
	if combo.Ctrl {
		want |= modCtrl
	}
	if combo.Shift {
		want |= modShift
	}
	if combo.Alt {
		want |= modAlt
	}
	if combo.Super {
		want |= modSuper
	}
	return &linuxHotkey{
		combo:   combo,
		keyCode: linuxKeyCodes[combo.Key],
		want:    want,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *linuxHotkey) Register() error {
	if h.keyCode == 0 {
		return fmt.Errorf("key %q is not mapped on this platform", h.combo.Key)
	}
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboards
	}

	h.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.watch(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("%d keyboards present, none opened; grant access with: sudo usermod -aG input $USER (log out and back in after)", len(keyboards))
	}
	return nil
}

// watch decodes key events off one device. Modifiers the combo does not ask
// for are ignored, so the combo still fires with caps lock or num lock on.
// Autorepeat (value 2) changes nothing: the key is already held.
func (h *linuxHotkey) watch(f *os.File) {
	buf := make([]byte, 4096)
	var mods uint8
	var down bool

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			// Unregister closed the file.
			return
		}

		rd := bytes.NewReader(buf[:n])
		var ev inputEvent
		for binary.Read(rd, binary.LittleEndian, &ev) == nil {
			if ev.Type != evKey {
				continue
			}
			if bit, ok := modifierBit[ev.Code]; ok {
				switch ev.Value {
				case keyPress:
					mods |= bit
				case keyRelease:
					mods &^= bit
				}
				continue
			}
			if ev.Code != h.keyCode {
				continue
			}
			switch {
			case ev.Value == keyPress && !down && mods&h.want == h.want:
				down = true
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			case ev.Value == keyRelease && down:
				down = false
				select {
				case h.keyup <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close() // unblocks the watch goroutines
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

// findKeyboards lists the /dev/input nodes whose devices carry letter keys.
func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "event") && hasLetterKeys(name) {
			paths = append(paths, filepath.Join("/dev/input", name))
		}
	}
	return paths, nil
}

// hasLetterKeys checks the device's key-capability bitmap in sysfs. Mice and
// power buttons advertise EV_KEY too; only keyboards report KEY_A.
func hasLetterKeys(eventName string) bool {
	raw, err := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	// Space-separated hex words, highest bits first. KEY_A is bit 30, which
	// lands in the final word.
	words := strings.Fields(string(raw))
	if len(words) == 0 {
		return false
	}
	low, err := strconv.ParseUint(words[len(words)-1], 16, 64)
	if err != nil {
		return false
	}
	return low&(1<<30) != 0
}

// Diagnose reports whether keyboard devices are visible and openable.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboards
	}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		f.Close()
		return fmt.Sprintf("%d keyboard(s), %s opened fine", len(keyboards), path), nil
	}
	return "", fmt.Errorf("%d keyboard(s) visible but none opened; grant access with: sudo usermod -aG input $USER", len(keyboards))
}
