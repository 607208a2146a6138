package hotkey

import (
	"fmt"
	"strings"
)

// Combo is a parsed key combination like ctrl+shift+space.
type Combo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
	Key   string // canonical lowercase key name
}

// namedKeys are the non-character keys ParseCombo accepts. Letters and
// digits are always accepted.
var namedKeys = map[string]bool{
	"space": true, "enter": true, "tab": true, "escape": true,
	"up": true, "down": true, "left": true, "right": true,
	"f1": true, "f2": true, "f3": true, "f4": true, "f5": true, "f6": true,
	"f7": true, "f8": true, "f9": true, "f10": true, "f11": true, "f12": true,
}

// ParseCombo parses a + separated combination. At least one modifier is
// required, otherwise ordinary typing would trigger recordings.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		case "alt", "option":
			c.Alt = true
		case "super", "cmd", "win", "meta":
			c.Super = true
		case "":
			return Combo{}, fmt.Errorf("empty element in hotkey %q", s)
		default:
			if i != len(parts)-1 {
				return Combo{}, fmt.Errorf("hotkey %q: key %q must come last", s, part)
			}
			if !validKey(part) {
				return Combo{}, fmt.Errorf("hotkey %q: unknown key %q", s, part)
			}
			c.Key = part
		}
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("hotkey %q has no key", s)
	}
	if !c.Ctrl && !c.Shift && !c.Alt && !c.Super {
		return Combo{}, fmt.Errorf("hotkey %q needs at least one modifier", s)
	}
	return c, nil
}

func validKey(k string) bool {
	if len(k) == 1 {
		c := k[0]
		return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
	}
	return namedKeys[k]
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	if c.Super {
		parts = append(parts, "super")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}
