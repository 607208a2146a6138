package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
	if cfg.Hotkey != "ctrl+shift+space" {
		t.Errorf("Hotkey = %q", cfg.Hotkey)
	}
	if cfg.MinDurationSeconds != 1 || cfg.MaxDurationSeconds != 300 {
		t.Errorf("durations = %d/%d, want 1/300", cfg.MinDurationSeconds, cfg.MaxDurationSeconds)
	}
	if cfg.UploadFormat != "wav" {
		t.Errorf("UploadFormat = %q, want wav", cfg.UploadFormat)
	}
	if cfg.Output.Target != "clipboard" || !cfg.Output.AutoPaste || !cfg.Output.RestoreClipboard {
		t.Errorf("output defaults = %+v", cfg.Output)
	}
	if !cfg.History.Enabled || cfg.History.RetentionDays != 7 {
		t.Errorf("history defaults = %+v", cfg.History)
	}
	if cfg.Mode != "" {
		t.Errorf("Mode = %q, want empty (raw transcript)", cfg.Mode)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want default", cfg.Language)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
language: de
upload_format: flac
enrichment_mode: summary
summary_sentences: 5
output:
  target: file
  file: /tmp/transcripts.txt
providers:
  groq:
    api_key: gsk_test
  ollama:
    model: llama3.2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "de" {
		t.Errorf("Language = %q, want de", cfg.Language)
	}
	if cfg.UploadFormat != "flac" {
		t.Errorf("UploadFormat = %q, want flac", cfg.UploadFormat)
	}
	if cfg.Mode != "summary" || cfg.SummarySentences != 5 {
		t.Errorf("Mode/SummarySentences = %q/%d", cfg.Mode, cfg.SummarySentences)
	}
	if cfg.Output.Target != "file" || cfg.Output.File != "/tmp/transcripts.txt" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Providers.Groq.APIKey != "gsk_test" {
		t.Errorf("Groq.APIKey = %q", cfg.Providers.Groq.APIKey)
	}
	if cfg.Providers.Ollama.Model != "llama3.2" {
		t.Errorf("Ollama.Model = %q", cfg.Providers.Ollama.Model)
	}
	// untouched keys keep their defaults
	if cfg.Hotkey != "ctrl+shift+space" {
		t.Errorf("Hotkey = %q, want default", cfg.Hotkey)
	}
	if cfg.History.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want default", cfg.History.RetentionDays)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("language: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("language: de\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MURMUR_LANGUAGE", "fr")
	t.Setenv("MURMUR_MAX_DURATION_SECONDS", "120")
	t.Setenv("MURMUR_SOUND_CUES", "false")
	t.Setenv("MURMUR_OLLAMA_BASE_URL", "http://10.0.0.5:11434")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Language != "fr" {
		t.Errorf("Language = %q, want env to beat the file", cfg.Language)
	}
	if cfg.MaxDurationSeconds != 120 {
		t.Errorf("MaxDurationSeconds = %d, want 120", cfg.MaxDurationSeconds)
	}
	if cfg.SoundCues {
		t.Error("SoundCues = true, want env override to false")
	}
	if cfg.Providers.Ollama.BaseURL != "http://10.0.0.5:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Providers.Ollama.BaseURL)
	}
}

func TestSharedKeyNamesHonored(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk_shared")
	t.Setenv("GROQ_API_KEY", "gsk_shared")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk_shared" {
		t.Errorf("OpenAI.APIKey = %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.Groq.APIKey != "gsk_shared" {
		t.Errorf("Groq.APIKey = %q", cfg.Providers.Groq.APIKey)
	}
}

func TestPrefixedKeyBeatsShared(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk_shared")
	t.Setenv("MURMUR_OPENAI_API_KEY", "sk_specific")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk_specific" {
		t.Errorf("OpenAI.APIKey = %q, want the prefixed name to win", cfg.Providers.OpenAI.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty language", func(c *Config) { c.Language = "" }, "language"},
		{"negative min", func(c *Config) { c.MinDurationSeconds = -1 }, "min_duration_seconds"},
		{"zero max", func(c *Config) { c.MaxDurationSeconds = 0 }, "max_duration_seconds"},
		{"max below min", func(c *Config) { c.MinDurationSeconds = 10; c.MaxDurationSeconds = 5 }, "greater than"},
		{"bad upload format", func(c *Config) { c.UploadFormat = "mp3" }, "upload_format"},
		{"bad output target", func(c *Config) { c.Output.Target = "printer" }, "output.target"},
		{"file target without path", func(c *Config) { c.Output.Target = "file"; c.Output.File = "" }, "output.file"},
		{"unknown mode", func(c *Config) { c.Mode = "haiku" }, "enrichment_mode"},
		{"custom without prompt", func(c *Config) { c.Mode = "custom" }, "custom_prompt"},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -2 }, "retention_days"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Update(func(c *Config) {
		c.Providers.Groq.APIKey = "gsk_new"
		c.Mode = "clean-up"
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := store.Get(); got.Providers.Groq.APIKey != "gsk_new" || got.Mode != "clean-up" {
		t.Errorf("Get after Update = %+v", got)
	}

	// a fresh store sees the persisted values
	again, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore reread: %v", err)
	}
	if got := again.Get(); got.Providers.Groq.APIKey != "gsk_new" {
		t.Errorf("persisted Groq.APIKey = %q", got.Providers.Groq.APIKey)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %v, want 0600", perm)
	}
}

func TestStoreUpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Update(func(c *Config) { c.UploadFormat = "ogg" }); err == nil {
		t.Fatal("Update accepted an invalid config")
	}
	if got := store.Get(); got.UploadFormat != "wav" {
		t.Errorf("UploadFormat = %q, want the old value kept", got.UploadFormat)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("rejected update still wrote the file")
	}
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := os.WriteFile(path, []byte("language: ja\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := store.Get(); got.Language != "ja" {
		t.Errorf("Language after Reload = %q, want ja", got.Language)
	}
}
