package hotkey

import "testing"

func TestParseCombo(t *testing.T) {
	cases := []struct {
		in   string
		want Combo
	}{
		{"ctrl+shift+space", Combo{Ctrl: true, Shift: true, Key: "space"}},
		{"Ctrl+Shift+Space", Combo{Ctrl: true, Shift: true, Key: "space"}},
		{"cmd+d", Combo{Super: true, Key: "d"}},
		{"control+alt+f5", Combo{Ctrl: true, Alt: true, Key: "f5"}},
		{"win+9", Combo{Super: true, Key: "9"}},
		{"option+enter", Combo{Alt: true, Key: "enter"}},
		{" ctrl + shift + m ", Combo{Ctrl: true, Shift: true, Key: "m"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCombo(tc.in)
			if err != nil {
				t.Fatalf("ParseCombo(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseCombo(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseComboRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"no modifier", "space"},
		{"bare letter", "x"},
		{"no key", "ctrl+shift"},
		{"unknown key", "ctrl+widget"},
		{"key before modifier", "space+ctrl"},
		{"empty", ""},
		{"double plus", "ctrl++space"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCombo(tc.in); err == nil {
				t.Errorf("ParseCombo(%q) accepted a bad combo", tc.in)
			}
		})
	}
}

func TestComboString(t *testing.T) {
	c := Combo{Ctrl: true, Shift: true, Key: "space"}
	if got := c.String(); got != "ctrl+shift+space" {
		t.Errorf("String = %q", got)
	}
	c = Combo{Super: true, Alt: true, Key: "d"}
	if got := c.String(); got != "alt+super+d" {
		t.Errorf("String = %q", got)
	}
}
