package provider

import (
	"context"
	"net/http"
	"time"
)

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	groqSTTModel  = "whisper-large-v3-turbo"
	groqChatModel = "llama-3.3-70b-versatile"
)

type GroqConfig struct {
	APIKey    string
	BaseURL   string
	STTModel  string
	ChatModel string
}

// Groq speaks the OpenAI-compatible API, so it reuses the same request
// plumbing with its own endpoint and models.
type Groq struct {
	cfg func() GroqConfig
	hc  *http.Client
}

func NewGroq(cfg func() GroqConfig) *Groq {
	return &Groq{cfg: cfg, hc: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *Groq) Name() string { return "groq" }

func (p *Groq) Configured() bool { return p.cfg().APIKey != "" }

func (p *Groq) Available(context.Context) bool { return p.Configured() }

func (p *Groq) Transcribe(ctx context.Context, audio []byte, language string) (*Transcription, error) {
	c := p.cfg()
	base := c.BaseURL
	if base == "" {
		base = groqBaseURL
	}
	model := c.STTModel
	if model == "" {
		model = groqSTTModel
	}
	return transcribeCompat(ctx, p.hc, p.Name(), base, c.APIKey, model, audio, language)
}

func (p *Groq) Process(ctx context.Context, text string, mode Mode, opts ModeOptions) (string, error) {
	c := p.cfg()
	base := c.BaseURL
	if base == "" {
		base = groqBaseURL
	}
	model := c.ChatModel
	if model == "" {
		model = groqChatModel
	}
	return chatCompat(ctx, p.hc, p.Name(), base, c.APIKey, model, text, mode, opts)
}
