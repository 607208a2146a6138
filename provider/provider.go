// Package provider routes transcription and text-processing requests to
// interchangeable backends. A registry holds the configured providers per
// capability, picks the first usable one in registration order, and passes
// every backend failure through as a typed Error.
package provider

import "context"

// Capability is a role a provider can fill, independent of which backend
// implements it.
type Capability int

const (
	SpeechToText Capability = iota
	TextEnrichment
)

func (c Capability) String() string {
	switch c {
	case SpeechToText:
		return "speech-to-text"
	case TextEnrichment:
		return "text-enrichment"
	}
	return "unknown"
}

// Provider is the part every backend shares. Configured is a cheap local
// check of required settings; Available answers whether a request would be
// worth attempting right now and must honor the context deadline.
type Provider interface {
	Name() string
	Configured() bool
	Available(ctx context.Context) bool
}

// Transcription is the result of a speech-to-text request.
type Transcription struct {
	Text             string
	DetectedLanguage string
	DurationSeconds  float64
}

type Transcriber interface {
	Provider
	Transcribe(ctx context.Context, audio []byte, language string) (*Transcription, error)
}

type Enricher interface {
	Provider
	Process(ctx context.Context, text string, mode Mode, opts ModeOptions) (string, error)
}

// sniffFilename names an upload after its container so OpenAI-compatible
// endpoints pick the right decoder.
func sniffFilename(audio []byte) string {
	if len(audio) >= 4 && string(audio[:4]) == "fLaC" {
		return "audio.flac"
	}
	return "audio.wav"
}
