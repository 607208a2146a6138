//go:build linux

package clipboard

// Scancode rows of a US keyboard, offsets per linux/input-event-codes.h.
// Each character in plain sits at first+index; shifted is the same key
// with shift held.
var usRows = []struct {
	first   uint16
	plain   string
	shifted string
}{
	{2, "1234567890-=", "!@#$%^&*()_+"},
	{16, "qwertyuiop[]", "QWERTYUIOP{}"},
	{30, "asdfghjkl;'`", `ASDFGHJKL:"~`},
	{43, `\zxcvbnm,./`, "|ZXCVBNM<>?"},
}

var plainKey, shiftKey map[byte]uint16

func init() {
	plainKey = map[byte]uint16{' ': 57, '\n': 28, '\t': 15}
	shiftKey = make(map[byte]uint16)
	for _, row := range usRows {
		for i := 0; i < len(row.plain); i++ {
			plainKey[row.plain[i]] = row.first + uint16(i)
			shiftKey[row.shifted[i]] = row.first + uint16(i)
		}
	}
}

// Type sends each character of text as its own keystroke. Unlike Paste it
// needs no clipboard utility, so it also works on headless setups.
// Characters the US layout does not cover are skipped.
func Type(text string) error {
	if err := Init(); err != nil {
		return err
	}
	for i := 0; i < len(text); i++ {
		if code, ok := plainKey[text[i]]; ok {
			if err := keyTap(code, false); err != nil {
				return err
			}
			continue
		}
		if code, ok := shiftKey[text[i]]; ok {
			if err := keyTap(code, true); err != nil {
				return err
			}
		}
	}
	return nil
}
