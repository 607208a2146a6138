//go:build linux

// Package autostart registers the binary to start with the desktop session.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
)

const desktopName = "murmur.desktop"

func desktopPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "autostart", desktopName)
}

func Enabled() bool {
	p := desktopPath()
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// Enable drops an XDG autostart entry. Both major desktops honor these, so
// there is no per-environment branching here.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path := desktopPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}

	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=murmur
Comment=Push-to-talk dictation
Exec=%s
Terminal=true
X-GNOME-Autostart-enabled=true
`, exe)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(entry), 0644); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

func Disable() error {
	path := desktopPath()
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove desktop entry: %w", err)
	}
	return nil
}
