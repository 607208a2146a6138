package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"murmur/encoder"
)

func testWAV() []byte {
	return encoder.EncodeWAV(make([]float32, encoder.SampleRate), encoder.SampleRate)
}

func TestRegistrationOrderFallback(t *testing.T) {
	r := NewRegistry()
	p1 := NewFakeTranscriber("p1", "one")
	p1.SetConfigured(false)
	p2 := NewFakeTranscriber("p2", "two")
	p2.SetAvailable(false)
	p3 := NewFakeTranscriber("p3", "three")
	r.RegisterTranscriber(p1)
	r.RegisterTranscriber(p2)
	r.RegisterTranscriber(p3)

	got, ok := r.SelectTranscriber(context.Background(), "")
	if !ok {
		t.Fatal("no provider selected")
	}
	if got.Name() != "p3" {
		t.Fatalf("selected %s, want p3", got.Name())
	}
}

func TestDefaultIsFirstRegistered(t *testing.T) {
	r := NewRegistry()
	r.RegisterTranscriber(NewFakeTranscriber("a", "x"))
	r.RegisterTranscriber(NewFakeTranscriber("b", "y"))

	if got := r.Default(SpeechToText); got != "a" {
		t.Fatalf("default = %q, want a", got)
	}
	p, err := r.ResolveTranscriber("")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if p.Name() != "a" {
		t.Fatalf("resolved %s, want a", p.Name())
	}

	if err := r.SetDefault(SpeechToText, "b"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if got := r.Default(SpeechToText); got != "b" {
		t.Fatalf("default after change = %q, want b", got)
	}

	if err := r.SetDefault(SpeechToText, "zzz"); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("set unknown default = %v, want ErrProviderNotFound", err)
	}
	if err := r.SetDefault(TextEnrichment, "a"); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("set default on empty capability = %v, want ErrProviderNotFound", err)
	}
}

func TestResolveByName(t *testing.T) {
	r := NewRegistry()
	r.RegisterTranscriber(NewFakeTranscriber("a", "x"))
	r.RegisterTranscriber(NewFakeTranscriber("b", "y"))

	p, err := r.ResolveTranscriber("b")
	if err != nil || p.Name() != "b" {
		t.Fatalf("resolve b = %v, %v", p, err)
	}
	if _, err := r.ResolveTranscriber("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("resolve missing = %v, want ErrProviderNotFound", err)
	}
}

func TestPreferredBeatsDefault(t *testing.T) {
	r := NewRegistry()
	r.RegisterTranscriber(NewFakeTranscriber("a", "from a"))
	r.RegisterTranscriber(NewFakeTranscriber("b", "from b"))

	got, ok := r.SelectTranscriber(context.Background(), "b")
	if !ok || got.Name() != "b" {
		t.Fatalf("selected %v, want b", got)
	}
}

func TestTranscribeNoProviders(t *testing.T) {
	r := NewRegistry()
	_, err := r.Transcribe(context.Background(), testWAV(), "en", "")

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want a provider Error", err)
	}
	if pe.Code != CodeNoProvider {
		t.Errorf("code = %s, want NO_PROVIDER_AVAILABLE", pe.Code)
	}
	if pe.Retryable {
		t.Error("NO_PROVIDER_AVAILABLE must not be retryable")
	}
}

func TestTranscribePassesProviderErrorThrough(t *testing.T) {
	r := NewRegistry()
	f := NewFakeTranscriber("f", "text")
	f.SetErr(New("f", CodeRateLimited, "slow down"))
	r.RegisterTranscriber(f)

	_, err := r.Transcribe(context.Background(), testWAV(), "en", "")
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want a provider Error", err)
	}
	if pe.Code != CodeRateLimited || pe.Provider != "f" || !pe.Retryable {
		t.Fatalf("error %+v was rewrapped on the way through", pe)
	}
}

func TestFallbackObserver(t *testing.T) {
	r := NewRegistry()
	var from, to string
	r.OnFallback = func(_ Capability, src, dst string) {
		from, to = src, dst
	}
	a := NewFakeTranscriber("a", "x")
	a.SetAvailable(false)
	r.RegisterTranscriber(a)
	r.RegisterTranscriber(NewFakeTranscriber("b", "y"))

	got, ok := r.SelectTranscriber(context.Background(), "")
	if !ok || got.Name() != "b" {
		t.Fatalf("selected %v, want b", got)
	}
	if from != "a" || to != "b" {
		t.Fatalf("observed fallback %s->%s, want a->b", from, to)
	}
}

func TestEnrichRouting(t *testing.T) {
	r := NewRegistry()
	r.RegisterEnricher(NewFakeEnricher("e"))

	got, err := r.Enrich(context.Background(), "hello there", ModeCleanup, ModeOptions{}, "")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if got != "clean-up: hello there" {
		t.Fatalf("enriched = %q", got)
	}
}

type hangingTranscriber struct {
	*FakeTranscriber
}

// Available ignores its own answer and waits for the deadline, emulating a
// backend that accepts the probe connection and then stalls.
func (h *hangingTranscriber) Available(ctx context.Context) bool {
	<-ctx.Done()
	return false
}

func TestProbeTimeoutBounded(t *testing.T) {
	r := NewRegistry()
	r.RegisterTranscriber(&hangingTranscriber{NewFakeTranscriber("hang", "x")})
	r.RegisterTranscriber(NewFakeTranscriber("good", "y"))

	start := time.Now()
	got, ok := r.SelectTranscriber(context.Background(), "")
	elapsed := time.Since(start)

	if !ok || got.Name() != "good" {
		t.Fatalf("selected %v, want good", got)
	}
	if elapsed > 2*probeTimeout {
		t.Fatalf("selection took %v; the probe deadline did not bound it", elapsed)
	}
}
