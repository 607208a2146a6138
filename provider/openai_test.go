package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(func() OpenAIConfig {
		return OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL}
	})
}

func TestOpenAITranscribe(t *testing.T) {
	wav := testWAV()
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file field: %v", err)
		}
		defer f.Close()
		if fh.Filename != "audio.wav" {
			t.Errorf("upload filename = %q, want audio.wav", fh.Filename)
		}
		uploaded, _ := io.ReadAll(f)
		if len(uploaded) != len(wav) {
			t.Errorf("uploaded %d bytes, want %d", len(uploaded), len(wav))
		}
		io.WriteString(w, `{"text":" hello world ","language":"english","duration":2.5}`)
	})

	tr, err := p.Transcribe(context.Background(), wav, "en")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if tr.Text != "hello world" {
		t.Errorf("text = %q", tr.Text)
	}
	if tr.DetectedLanguage != "english" {
		t.Errorf("language = %q", tr.DetectedLanguage)
	}
	if tr.DurationSeconds != 2.5 {
		t.Errorf("duration = %v", tr.DurationSeconds)
	}
}

func TestOpenAITranscribeFlacName(t *testing.T) {
	flacish := append([]byte("fLaC"), make([]byte, 64)...)
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		_, fh, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file field: %v", err)
		}
		if fh.Filename != "audio.flac" {
			t.Errorf("upload filename = %q, want audio.flac", fh.Filename)
		}
		io.WriteString(w, `{"text":"ok","language":"en","duration":1}`)
	})

	if _, err := p.Transcribe(context.Background(), flacish, "en"); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
}

func TestOpenAITranscribeRateLimited(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := p.Transcribe(context.Background(), testWAV(), "en")
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want a provider Error", err)
	}
	if pe.Code != CodeRateLimited || !pe.Retryable {
		t.Fatalf("code = %s retryable=%v, want RATE_LIMITED retryable", pe.Code, pe.Retryable)
	}
	if pe.Provider != "openai" {
		t.Errorf("provider = %q", pe.Provider)
	}
}

func TestOpenAITranscribeBadKey(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	})

	_, err := p.Transcribe(context.Background(), testWAV(), "en")
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeInvalidAPIKey || pe.Retryable {
		t.Fatalf("error = %v, want non-retryable INVALID_API_KEY", err)
	}
}

func TestOpenAITranscribeEmptyText(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text":"   ","language":"en","duration":1}`)
	})

	_, err := p.Transcribe(context.Background(), testWAV(), "en")
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeEmptyResponse || !pe.Retryable {
		t.Fatalf("error = %v, want retryable EMPTY_RESPONSE", err)
	}
}

func TestOpenAINotConfigured(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()
	p := NewOpenAI(func() OpenAIConfig {
		return OpenAIConfig{BaseURL: srv.URL}
	})

	if p.Configured() {
		t.Error("configured without a key")
	}
	_, err := p.Transcribe(context.Background(), testWAV(), "en")
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeNotConfigured {
		t.Fatalf("error = %v, want NOT_CONFIGURED", err)
	}
	if hits != 0 {
		t.Errorf("unconfigured provider reached the backend %d times", hits)
	}
}

func TestOpenAIProcess(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "um so hello" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		if !strings.Contains(strings.ToLower(req.Messages[0].Content), "clean") {
			t.Errorf("system prompt %q does not match the mode", req.Messages[0].Content)
		}
		io.WriteString(w, `{"choices":[{"message":{"content":" Hello. "}}]}`)
	})

	got, err := p.Process(context.Background(), "um so hello", ModeCleanup, ModeOptions{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got != "Hello." {
		t.Errorf("processed = %q", got)
	}
}

func TestOpenAIProcessNoChoices(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	})

	_, err := p.Process(context.Background(), "text", ModeCleanup, ModeOptions{})
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeEmptyResponse {
		t.Fatalf("error = %v, want EMPTY_RESPONSE", err)
	}
}

func TestOpenAIProcessEmptyTranscript(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()
	p := NewOpenAI(func() OpenAIConfig {
		return OpenAIConfig{APIKey: "k", BaseURL: srv.URL}
	})

	_, err := p.Process(context.Background(), "   ", ModeCleanup, ModeOptions{})
	var pe *Error
	if !errors.As(err, &pe) || pe.Code != CodeValidationError {
		t.Fatalf("error = %v, want VALIDATION_ERROR", err)
	}
	if pe.Provider != "openai" {
		t.Errorf("provider = %q", pe.Provider)
	}
	if hits != 0 {
		t.Errorf("validation failure reached the backend %d times", hits)
	}
}
