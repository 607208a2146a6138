// Package config owns the settings file: defaults, yaml loading, environment
// overrides and validation. Everything else reads settings through a Store so
// changes apply without a restart.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"murmur/provider"
)

type Config struct {
	Language string `yaml:"language"` // transcription language hint; "auto" lets the backend detect

	Hotkey     string `yaml:"hotkey"`
	HoldToTalk bool   `yaml:"hold_to_talk"` // hold the hotkey to record instead of toggling
	Device     string `yaml:"device"`       // capture device name; empty means system default
	SoundCues  bool   `yaml:"sound_cues"`

	MinDurationSeconds int `yaml:"min_duration_seconds"`
	MaxDurationSeconds int `yaml:"max_duration_seconds"`

	UploadFormat string `yaml:"upload_format"` // wav or flac; flac shrinks cloud uploads

	STTProvider    string `yaml:"stt_provider"`        // preferred backend; empty means first usable
	EnrichProvider string `yaml:"enrichment_provider"` // preferred backend; empty means first usable
	Mode           string `yaml:"enrichment_mode"`     // empty means paste the raw transcript

	SummarySentences int    `yaml:"summary_sentences"`
	CustomPrompt     string `yaml:"custom_prompt"`

	Output    OutputConfig    `yaml:"output"`
	History   HistoryConfig   `yaml:"history"`
	Providers ProvidersConfig `yaml:"providers"`
}

type OutputConfig struct {
	Target           string `yaml:"target"` // clipboard, file or type
	AutoPaste        bool   `yaml:"auto_paste"`
	RestoreClipboard bool   `yaml:"restore_clipboard"`
	File             string `yaml:"file"` // transcript file for target=file
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"` // empty means the per-user data directory
	RetentionDays int    `yaml:"retention_days"`
}

type ProvidersConfig struct {
	Whisper WhisperConfig `yaml:"whisper"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Groq    GroqConfig    `yaml:"groq"`
	Ollama  OllamaConfig  `yaml:"ollama"`
}

type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	STTModel  string `yaml:"stt_model"`
	ChatModel string `yaml:"chat_model"`
}

type GroqConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	STTModel  string `yaml:"stt_model"`
	ChatModel string `yaml:"chat_model"`
}

type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

func Default() Config {
	return Config{
		Language:           "en",
		Hotkey:             "ctrl+shift+space",
		SoundCues:          true,
		MinDurationSeconds: 1,
		MaxDurationSeconds: 300,
		UploadFormat:       "wav",
		SummarySentences:   3,
		Output: OutputConfig{
			Target:           "clipboard",
			AutoPaste:        true,
			RestoreClipboard: true,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 7,
		},
	}
}

// DefaultPath is where the settings file lives unless a flag says otherwise.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "murmur.yaml"
	}
	return filepath.Join(dir, "murmur", "config.yaml")
}

// Load reads the settings file over the defaults, applies environment
// overrides and validates. A missing file is a first run, not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// first run; defaults apply
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file. The plain
// OPENAI_API_KEY/GROQ_API_KEY names are honored first, then the MURMUR_
// prefixed ones, so the specific name beats the shared one.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.Providers.Groq.APIKey, "GROQ_API_KEY")

	overrideString(&cfg.Language, "MURMUR_LANGUAGE")
	overrideString(&cfg.Hotkey, "MURMUR_HOTKEY")
	overrideBool(&cfg.HoldToTalk, "MURMUR_HOLD_TO_TALK")
	overrideString(&cfg.Device, "MURMUR_DEVICE")
	overrideBool(&cfg.SoundCues, "MURMUR_SOUND_CUES")
	overrideInt(&cfg.MinDurationSeconds, "MURMUR_MIN_DURATION_SECONDS")
	overrideInt(&cfg.MaxDurationSeconds, "MURMUR_MAX_DURATION_SECONDS")
	overrideString(&cfg.UploadFormat, "MURMUR_UPLOAD_FORMAT")
	overrideString(&cfg.STTProvider, "MURMUR_STT_PROVIDER")
	overrideString(&cfg.EnrichProvider, "MURMUR_ENRICHMENT_PROVIDER")
	overrideString(&cfg.Mode, "MURMUR_ENRICHMENT_MODE")
	overrideInt(&cfg.SummarySentences, "MURMUR_SUMMARY_SENTENCES")
	overrideString(&cfg.Output.Target, "MURMUR_OUTPUT_TARGET")
	overrideBool(&cfg.Output.AutoPaste, "MURMUR_AUTO_PASTE")
	overrideString(&cfg.Output.File, "MURMUR_OUTPUT_FILE")
	overrideBool(&cfg.History.Enabled, "MURMUR_HISTORY_ENABLED")
	overrideString(&cfg.History.Path, "MURMUR_HISTORY_PATH")
	overrideInt(&cfg.History.RetentionDays, "MURMUR_HISTORY_RETENTION_DAYS")
	overrideString(&cfg.Providers.Whisper.BinaryPath, "MURMUR_WHISPER_BINARY")
	overrideString(&cfg.Providers.Whisper.ModelPath, "MURMUR_WHISPER_MODEL")
	overrideString(&cfg.Providers.OpenAI.APIKey, "MURMUR_OPENAI_API_KEY")
	overrideString(&cfg.Providers.OpenAI.BaseURL, "MURMUR_OPENAI_BASE_URL")
	overrideString(&cfg.Providers.Groq.APIKey, "MURMUR_GROQ_API_KEY")
	overrideString(&cfg.Providers.Groq.BaseURL, "MURMUR_GROQ_BASE_URL")
	overrideString(&cfg.Providers.Ollama.BaseURL, "MURMUR_OLLAMA_BASE_URL")
	overrideString(&cfg.Providers.Ollama.Model, "MURMUR_OLLAMA_MODEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Language == "" {
		return errors.New("language must not be empty; use \"auto\" for detection")
	}
	if cfg.MinDurationSeconds < 0 {
		return errors.New("min_duration_seconds must be >= 0")
	}
	if cfg.MaxDurationSeconds <= 0 {
		return errors.New("max_duration_seconds must be positive")
	}
	if cfg.MaxDurationSeconds <= cfg.MinDurationSeconds {
		return errors.New("max_duration_seconds must be greater than min_duration_seconds")
	}
	switch cfg.UploadFormat {
	case "wav", "flac":
	default:
		return errors.New("upload_format must be wav or flac")
	}
	switch cfg.Output.Target {
	case "clipboard", "type":
	case "file":
		if cfg.Output.File == "" {
			return errors.New("output.file must be set when output.target is file")
		}
	default:
		return errors.New("output.target must be clipboard, file or type")
	}
	if cfg.Mode != "" && !provider.Mode(cfg.Mode).Valid() {
		return fmt.Errorf("enrichment_mode %q is not one of the known modes", cfg.Mode)
	}
	if provider.Mode(cfg.Mode) == provider.ModeCustom && strings.TrimSpace(cfg.CustomPrompt) == "" {
		return errors.New("custom_prompt must be set when enrichment_mode is custom")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
