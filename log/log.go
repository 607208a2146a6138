package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var state struct {
	mu        sync.Mutex
	ready     bool
	pid       int
	dir       string
	diag      zerolog.Logger
	diagFile  *os.File
	dictation *os.File
}

// Metrics describes one transcription round trip.
type Metrics struct {
	AudioLengthS float64
	UploadKB     float64
	UploadFormat string
	TotalTimeMs  float64
}

// ResolveDir picks the log directory: the -logpath flag wins, then
// MURMUR_LOG_PATH, then the per-OS default.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("MURMUR_LOG_PATH")} {
		if p != "" {
			return absPath(p)
		}
	}
	return getDefaultDir()
}

// absPath anchors a relative path at the working directory, so
// "-logpath logs" lands where the command ran.
func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	state.dir = d
}

func Dir() string {
	return state.dir
}

func EnsureDir() error {
	if err := os.MkdirAll(state.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func appendFile(name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(state.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func Init() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	state.pid = os.Getpid()

	var err error
	if state.diagFile, err = appendFile("diagnostics.log"); err != nil {
		return err
	}
	if state.dictation, err = appendFile("dictation.log"); err != nil {
		state.diagFile.Close()
		return err
	}

	state.diag = zerolog.New(zerolog.ConsoleWriter{
		Out:        state.diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}).With().Timestamp().Int("pid", state.pid).Logger()

	state.ready = true
	return nil
}

func Close() {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.diagFile != nil {
		state.diagFile.Close()
		state.diagFile = nil
	}
	if state.dictation != nil {
		state.dictation.Close()
		state.dictation = nil
	}
	state.ready = false
}

func Info(msg string) {
	if state.ready {
		state.diag.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	Info(fmt.Sprintf(format, args...))
}

func Error(msg string) {
	if state.ready {
		state.diag.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	Error(fmt.Sprintf(format, args...))
}

func Warn(msg string) {
	if state.ready {
		state.diag.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	Warn(fmt.Sprintf(format, args...))
}

func SessionStart(sttProvider, enrichProvider, mode string) {
	if !state.ready {
		return
	}
	state.diag.Info().
		Str("stt", sttProvider).
		Str("enrich", enrichProvider).
		Str("mode", mode).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !state.ready {
		return
	}
	state.diag.Info().
		Int("count", count).
		Msg("session_end")
}

func TranscriptionMetrics(m Metrics, provider, language string) {
	if !state.ready {
		return
	}
	state.diag.Info().
		Str("provider", provider).
		Str("language", language).
		Str("format", m.UploadFormat).
		Float64("audio_s", m.AudioLengthS).
		Float64("upload_kb", m.UploadKB).
		Float64("total_ms", m.TotalTimeMs).
		Msg("transcription")
}

func EnrichmentMetrics(provider, mode string, totalMs float64) {
	if !state.ready {
		return
	}
	state.diag.Info().
		Str("provider", provider).
		Str("mode", mode).
		Float64("total_ms", totalMs).
		Msg("enrichment")
}

// ProviderFailure records a typed provider error without aborting the log line
// ordering other events rely on.
func ProviderFailure(provider, code string, retryable bool, msg string) {
	if !state.ready {
		return
	}
	state.diag.Error().
		Str("provider", provider).
		Str("code", code).
		Bool("retryable", retryable).
		Msg(msg)
}

func ProviderFallback(capability, from, to string) {
	if !state.ready {
		return
	}
	state.diag.Warn().
		Str("capability", capability).
		Str("from", from).
		Str("to", to).
		Msg("provider_fallback")
}

func HistoryPrune(removed int64, retentionDays int) {
	if !state.ready {
		return
	}
	state.diag.Info().
		Int64("removed", removed).
		Int("retention_days", retentionDays).
		Msg("history_prune")
}

// DictationText appends the final text to the plain dictation log so an
// utterance the clipboard lost can be recovered.
func DictationText(text string) {
	if !state.ready {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	fmt.Fprintf(state.dictation, "%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), state.pid, text)
}
