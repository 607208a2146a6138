package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	cacheName    = "release-check.json"
	cacheTTL     = 24 * time.Hour
	recheckEvery = 6 * time.Hour
)

var apiClient = &http.Client{Timeout: 15 * time.Second}

// CheckLatest asks the GitHub API for the newest release. A nil release
// means the running build is current.
func CheckLatest(installed string) (*Release, error) {
	if installed == "" || installed == "dev" {
		return nil, nil
	}

	req, err := http.NewRequest("GET",
		fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+installed)

	resp, err := apiClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("github api: %s", resp.Status)
	}

	var payload struct {
		Tag    string `json:"tag_name"`
		Assets []struct {
			Name string `json:"name"`
			URL  string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	rel := Release{Version: payload.Tag}
	wantBin := assetFor(runtime.GOOS, runtime.GOARCH)
	for _, a := range payload.Assets {
		if a.Name == wantBin {
			rel.BinaryURL = a.URL
		}
		if a.Name == "checksums.txt" {
			rel.SumsURL = a.URL
		}
	}
	if rel.BinaryURL == "" {
		return nil, fmt.Errorf("release %s ships no %s build", payload.Tag, wantBin)
	}
	if !rel.NewerThan(installed) {
		return nil, nil
	}
	return &rel, nil
}

// checkRecord is the on-disk memo of the last API answer. A nil Latest
// is a remembered "nothing newer".
type checkRecord struct {
	Checked time.Time `json:"checked"`
	Latest  *Release  `json:"latest,omitempty"`
}

func loadRecord(dir string) (checkRecord, bool) {
	var rec checkRecord
	data, err := os.ReadFile(filepath.Join(dir, cacheName))
	if err != nil || json.Unmarshal(data, &rec) != nil {
		return rec, false
	}
	return rec, true
}

func storeRecord(dir string, rec checkRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = os.MkdirAll(dir, 0755)
	_ = os.WriteFile(filepath.Join(dir, cacheName), data, 0644)
}

// CheckLatestCached consults the on-disk record before touching the
// network, so restarts within a day cost nothing.
func CheckLatestCached(installed, cacheDir string) (*Release, error) {
	if installed == "" || installed == "dev" {
		return nil, nil
	}
	if rec, ok := loadRecord(cacheDir); ok && time.Since(rec.Checked) < cacheTTL {
		return rec.Latest, nil
	}
	rel, err := CheckLatest(installed)
	if err != nil {
		return nil, err
	}
	storeRecord(cacheDir, checkRecord{Checked: time.Now(), Latest: rel})
	return rel, nil
}

// StartBackgroundCheck polls for releases and calls notify once per new
// version. Failures stay silent; an update notice is never worth
// interrupting dictation for.
func StartBackgroundCheck(installed, cacheDir string, notify func(Release)) {
	if installed == "" || installed == "dev" {
		return
	}
	go func() {
		noticed := ""
		for {
			rel, err := CheckLatestCached(installed, cacheDir)
			if err == nil && rel != nil && rel.Version != noticed {
				noticed = rel.Version
				notify(*rel)
			}
			time.Sleep(recheckEvery)
		}
	}()
}
