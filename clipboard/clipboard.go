// Package clipboard wraps the system clipboard and synthetic keystrokes.
// Copy and Read go through the native clipboard; Paste and Type inject key
// events so the focused application receives the text directly.
package clipboard

import cb "github.com/atotto/clipboard"

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
