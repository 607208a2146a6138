package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() {
		Close()
		SetDir("")
	})
	return tmp
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("MURMUR_LOG_PATH", "/tmp/ignored")
		got, err := ResolveDir("/var/log/murmur")
		if err != nil {
			t.Fatal(err)
		}
		if got != "/var/log/murmur" {
			t.Errorf("got %q, want /var/log/murmur", got)
		}
	})

	t.Run("relative flag anchors at cwd", func(t *testing.T) {
		got, err := ResolveDir("logs")
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(wd, "logs"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("env fills in for missing flag", func(t *testing.T) {
		t.Setenv("MURMUR_LOG_PATH", "/tmp/murmur-env-log")
		got, err := ResolveDir("")
		if err != nil {
			t.Fatal(err)
		}
		if got != "/tmp/murmur-env-log" {
			t.Errorf("got %q, want /tmp/murmur-env-log", got)
		}
	})

	t.Run("default when nothing set", func(t *testing.T) {
		t.Setenv("MURMUR_LOG_PATH", "")
		got, err := ResolveDir("")
		if err != nil {
			t.Fatal(err)
		}
		if got == "" {
			t.Error("expected a non-empty default directory")
		}
	})
}

func TestInitWritesDiagnostics(t *testing.T) {
	tmp := newLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Info("pipeline armed")

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics.log"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "pipeline armed") {
		t.Errorf("diagnostics.log missing message, got: %q", out)
	}
	if !strings.Contains(out, "pid=") {
		t.Errorf("diagnostics.log missing pid field, got: %q", out)
	}
	if _, err := os.Stat(filepath.Join(tmp, "dictation.log")); err != nil {
		t.Errorf("dictation.log not created: %v", err)
	}
}

func TestDictationText(t *testing.T) {
	tmp := newLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	DictationText("first utterance")
	DictationText("second utterance")

	data, err := os.ReadFile(filepath.Join(tmp, "dictation.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), lines)
	}
	for i, want := range []string{"first utterance", "second utterance"} {
		fields := strings.Split(lines[i], "\t")
		if len(fields) != 3 {
			t.Fatalf("line %d: want timestamp\\t[pid]\\ttext, got %q", i, lines[i])
		}
		if fields[2] != want {
			t.Errorf("line %d text: got %q, want %q", i, fields[2], want)
		}
		if !strings.HasPrefix(fields[1], "[") || !strings.HasSuffix(fields[1], "]") {
			t.Errorf("line %d pid field: got %q", i, fields[1])
		}
	}
}

func TestEventsBeforeInit(t *testing.T) {
	Close()
	// None of these may panic with no logger initialized.
	Info("dropped")
	ProviderFailure("openai", "RATE_LIMITED", true, "throttled")
	ProviderFallback("stt", "openai", "groq")
	HistoryPrune(3, 7)
	DictationText("dropped")
}

func TestCloseIdempotent(t *testing.T) {
	newLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
