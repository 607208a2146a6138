package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"murmur/encoder"
)

// FakeTranscriber returns a fixed transcript. It backs unit tests and the
// scripted test mode, where the whole pipeline runs without reaching any
// real backend.
type FakeTranscriber struct {
	name string

	mu         sync.Mutex
	configured bool
	available  bool
	text       string
	delay      time.Duration
	err        error
	calls      int
}

func NewFakeTranscriber(name, text string) *FakeTranscriber {
	return &FakeTranscriber{name: name, configured: true, available: true, text: text}
}

func (f *FakeTranscriber) Name() string { return f.name }

func (f *FakeTranscriber) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *FakeTranscriber) Available(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *FakeTranscriber) SetConfigured(v bool) {
	f.mu.Lock()
	f.configured = v
	f.mu.Unlock()
}

func (f *FakeTranscriber) SetAvailable(v bool) {
	f.mu.Lock()
	f.available = v
	f.mu.Unlock()
}

func (f *FakeTranscriber) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeTranscriber) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *FakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (*Transcription, error) {
	f.mu.Lock()
	f.calls++
	text, delay, err := f.text, f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, classifyTransport(f.name, ctx.Err())
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, New(f.name, CodeValidationError, "no audio to transcribe")
	}
	dur, _ := encoder.Duration(audio)
	lang := language
	if lang == "" || lang == "auto" {
		lang = "en"
	}
	return &Transcription{Text: text, DetectedLanguage: lang, DurationSeconds: dur}, nil
}

// FakeEnricher applies a visible, deterministic transform so tests can see
// which mode ran.
type FakeEnricher struct {
	name string

	mu         sync.Mutex
	configured bool
	available  bool
	err        error
	calls      int
}

func NewFakeEnricher(name string) *FakeEnricher {
	return &FakeEnricher{name: name, configured: true, available: true}
}

func (f *FakeEnricher) Name() string { return f.name }

func (f *FakeEnricher) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

func (f *FakeEnricher) Available(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *FakeEnricher) SetConfigured(v bool) {
	f.mu.Lock()
	f.configured = v
	f.mu.Unlock()
}

func (f *FakeEnricher) SetAvailable(v bool) {
	f.mu.Lock()
	f.available = v
	f.mu.Unlock()
}

func (f *FakeEnricher) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeEnricher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeEnricher) Process(_ context.Context, text string, mode Mode, opts ModeOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	if _, perr := enrichmentPrompt(text, mode, opts); perr != nil {
		perr.Provider = f.name
		return "", perr
	}
	return fmt.Sprintf("%s: %s", mode, text), nil
}
