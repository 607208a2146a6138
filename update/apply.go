package update

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Apply downloads the release, verifies its checksum and replaces the
// running binary. The checksum list is fetched before the download so a
// bad release fails before any bytes move.
func Apply(rel *Release) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	want := ""
	if rel.SumsURL != "" {
		want, err = expectedSum(rel.SumsURL, assetFor(runtime.GOOS, runtime.GOARCH))
		if err != nil {
			return fmt.Errorf("fetch checksums: %w", err)
		}
	}

	// The temp file sits next to the executable so the final rename never
	// crosses filesystems.
	next, got, err := download(filepath.Dir(exe), rel.BinaryURL)
	if err != nil {
		return err
	}
	defer os.Remove(next)

	if want != "" && got != want {
		return fmt.Errorf("checksum mismatch: %s does not match the published %s",
			got[:12], want[:12])
	}
	if err := os.Chmod(next, 0755); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	return swap(exe, next)
}

// download streams url into a temp file under dir, hashing as it goes,
// and returns the file path and hex digest.
func download(dir, url string) (string, string, error) {
	f, err := os.CreateTemp(dir, ".murmur.next-*")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	resp, err := http.Get(url)
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("download binary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		f.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("download binary: %s", resp.Status)
	}

	h := sha256.New()
	out := io.MultiWriter(f, h, &meter{total: resp.ContentLength})
	_, err = io.Copy(out, resp.Body)
	fmt.Fprintln(os.Stderr)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("write binary: %w", err)
	}
	return path, hex.EncodeToString(h.Sum(nil)), nil
}

// swap renames the running binary aside, moves the new one into place,
// and rolls back if the second rename fails.
func swap(exe, next string) error {
	backup := exe + ".previous"
	if err := os.Rename(exe, backup); err != nil {
		return fmt.Errorf("set aside current binary: %w", err)
	}
	if err := os.Rename(next, exe); err != nil {
		_ = os.Rename(backup, exe)
		return fmt.Errorf("install new binary: %w", err)
	}
	_ = os.Remove(backup)
	return nil
}

// meter prints download progress to stderr, one line per whole percent.
type meter struct {
	total   int64
	done    int64
	lastPct int
}

func (m *meter) Write(b []byte) (int, error) {
	m.done += int64(len(b))
	if m.total <= 0 {
		return len(b), nil
	}
	if pct := int(m.done * 100 / m.total); pct != m.lastPct {
		m.lastPct = pct
		fmt.Fprintf(os.Stderr, "\r  downloading %3d%% of %d KB", pct, m.total/1024)
	}
	return len(b), nil
}

// expectedSum finds the digest for name in a sha256sum-format listing.
func expectedSum(url, name string) (string, error) {
	resp, err := apiClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("checksums: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == name {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no checksum for %s", name)
}
