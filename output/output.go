// Package output delivers finished transcripts to their destination.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"murmur/clipboard"
)

// Sink takes the final text of a recording and puts it where the user
// wants it.
type Sink interface {
	Name() string
	Deliver(text string) error
}

// restoreDelay gives the focused application time to read the pasted text
// before the previous clipboard content comes back.
const restoreDelay = 600 * time.Millisecond

// Clipboard copies the text and optionally pastes it into the focused
// window. With Restore set, whatever was on the clipboard before comes back
// shortly after the paste.
type Clipboard struct {
	AutoPaste bool
	Restore   bool

	restoreAfter time.Duration
	read         func() (string, error)
	copyText     func(string) error
	paste        func() error
}

func NewClipboard(autoPaste, restore bool) *Clipboard {
	return &Clipboard{
		AutoPaste:    autoPaste,
		Restore:      restore,
		restoreAfter: restoreDelay,
		read:         clipboard.Read,
		copyText:     clipboard.Copy,
		paste:        clipboard.Paste,
	}
}

func (c *Clipboard) Name() string { return "clipboard" }

func (c *Clipboard) Deliver(text string) error {
	// Restoring only makes sense when the text is pasted; otherwise the
	// clipboard itself is the deliverable.
	restore := c.AutoPaste && c.Restore

	var prev string
	if restore {
		prev, _ = c.read()
	}
	if err := c.copyText(text); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if c.AutoPaste {
		if err := c.paste(); err != nil {
			return fmt.Errorf("paste: %w", err)
		}
	}
	if restore && prev != "" {
		time.AfterFunc(c.restoreAfter, func() { c.copyText(prev) })
	}
	return nil
}

// File appends each transcript to a text file with a timestamp header.
type File struct {
	Path string

	clock func() time.Time
}

func NewFile(path string) *File {
	return &File{Path: path, clock: time.Now}
}

func (f *File) Name() string { return "file" }

func (f *File) Deliver(text string) error {
	if dir := filepath.Dir(f.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	fh, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer fh.Close()

	stamp := f.clock().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(fh, "--- %s ---\n%s\n\n", stamp, text); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// Typer sends the text as keystrokes. On Linux this needs no clipboard
// utility at all; elsewhere it falls back to copy and paste.
type Typer struct {
	typeText func(string) error
}

func NewTyper() *Typer {
	return &Typer{typeText: clipboard.Type}
}

func (t *Typer) Name() string { return "type" }

func (t *Typer) Deliver(text string) error {
	if err := t.typeText(text); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	return nil
}
