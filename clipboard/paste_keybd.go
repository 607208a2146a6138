//go:build darwin || windows

package clipboard

import (
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

var keys struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

// Init prepares the keystroke binding once; later calls return the first
// result.
func Init() error {
	keys.once.Do(func() {
		keys.kb, keys.err = keybd_event.NewKeyBonding()
	})
	return keys.err
}

// Paste sends the platform paste chord to the focused application:
// Cmd+V on macOS, Ctrl+V elsewhere.
func Paste() error {
	if err := Init(); err != nil {
		return err
	}
	kb := keys.kb
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return kb.Launching()
}

// Type lands the text through the clipboard; there is no per-character
// injection here.
func Type(text string) error {
	if err := Copy(text); err != nil {
		return err
	}
	return Paste()
}

// Verify reports whether keystroke injection is ready.
func Verify() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	chord := "Ctrl+V"
	if runtime.GOOS == "darwin" {
		chord = "Cmd+V"
	}
	return "keystroke injection ready (" + chord + ")", nil
}
