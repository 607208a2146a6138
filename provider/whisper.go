package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"murmur/encoder"
)

// Binary and model names whisper.cpp installs under, in preference order.
var (
	whisperBinaries = []string{"whisper-cli", "whisper-cpp", "whisper", "main"}
	whisperModels   = []string{
		"ggml-base.en.bin",
		"ggml-small.en.bin",
		"ggml-medium.en.bin",
		"ggml-tiny.en.bin",
		"ggml-large.bin",
	}
)

func whisperModelDirs() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".cache", "whisper"),
		filepath.Join(home, "whisper.cpp", "models"),
		"models",
		".",
	}
}

type WhisperConfig struct {
	BinaryPath string // empty means search PATH for the known names
	ModelPath  string // empty means search the usual model directories
}

// Whisper shells out to a local whisper.cpp build. Everything it needs lives
// on disk, so Configured and Available are the same check.
type Whisper struct {
	cfg func() WhisperConfig
}

func NewWhisper(cfg func() WhisperConfig) *Whisper { return &Whisper{cfg: cfg} }

func (p *Whisper) Name() string { return "whisper" }

func (p *Whisper) binary() string {
	if c := p.cfg(); c.BinaryPath != "" {
		if path, err := exec.LookPath(c.BinaryPath); err == nil {
			return path
		}
		return ""
	}
	for _, name := range whisperBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func (p *Whisper) model() string {
	if c := p.cfg(); c.ModelPath != "" {
		if _, err := os.Stat(c.ModelPath); err == nil {
			return c.ModelPath
		}
		return ""
	}
	for _, dir := range whisperModelDirs() {
		for _, name := range whisperModels {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func (p *Whisper) Configured() bool { return p.binary() != "" && p.model() != "" }

func (p *Whisper) Available(context.Context) bool { return p.Configured() }

func (p *Whisper) Transcribe(ctx context.Context, audio []byte, language string) (*Transcription, error) {
	bin := p.binary()
	model := p.model()
	if bin == "" || model == "" {
		return nil, New(p.Name(), CodeNotConfigured, "whisper.cpp binary or model not found")
	}
	if len(audio) == 0 {
		return nil, New(p.Name(), CodeValidationError, "no audio to transcribe")
	}
	if sniffFilename(audio) != "audio.wav" {
		return nil, New(p.Name(), CodeValidationError,
			"the local engine reads WAV only; set the upload format to wav")
	}

	tmp, err := os.CreateTemp("", "murmur-*.wav")
	if err != nil {
		return nil, Errorf(p.Name(), CodeAPIError, "write temp audio: %v", err)
	}
	wavPath := tmp.Name()
	defer os.Remove(wavPath)
	defer os.Remove(wavPath + ".txt")
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return nil, Errorf(p.Name(), CodeAPIError, "write temp audio: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, Errorf(p.Name(), CodeAPIError, "write temp audio: %v", err)
	}

	lang := language
	if lang == "" {
		lang = "en"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-f", wavPath, "-l", lang, "-m", model, "--output-txt", "--no-timestamps")
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, New(p.Name(), CodeNetworkError, "transcription timed out")
		}
		detail := strings.TrimSpace(string(out))
		if len(detail) > 300 {
			detail = detail[:300]
		}
		e := New(p.Name(), CodeAPIError, fmt.Sprintf("whisper.cpp failed: %v: %s", err, detail))
		e.Err = err
		return nil, e
	}

	txt, err := os.ReadFile(wavPath + ".txt")
	if err != nil {
		return nil, Errorf(p.Name(), CodeAPIError, "read transcript: %v", err)
	}
	text := strings.TrimSpace(string(txt))
	if text == "" {
		return nil, New(p.Name(), CodeEmptyResponse, "the engine produced an empty transcript")
	}

	dur, _ := encoder.Duration(audio)
	detected := lang
	if detected == "auto" {
		detected = ""
	}
	return &Transcription{Text: text, DetectedLanguage: detected, DurationSeconds: dur}, nil
}
