package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	openaiBaseURL   = "https://api.openai.com/v1"
	openaiSTTModel  = "whisper-1"
	openaiChatModel = "gpt-4o-mini"
)

// OpenAIConfig is read fresh on every call, so settings changes apply
// immediately.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // empty means the public endpoint
	STTModel  string
	ChatModel string
}

// OpenAI serves both capabilities: audio transcription and chat-based text
// processing.
type OpenAI struct {
	cfg func() OpenAIConfig
	hc  *http.Client
}

func NewOpenAI(cfg func() OpenAIConfig) *OpenAI {
	return &OpenAI{cfg: cfg, hc: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Configured() bool { return p.cfg().APIKey != "" }

// Available does not probe the cloud endpoint; a dead connection classifies
// at request time instead.
func (p *OpenAI) Available(context.Context) bool { return p.Configured() }

func (p *OpenAI) Transcribe(ctx context.Context, audio []byte, language string) (*Transcription, error) {
	c := p.cfg()
	base := c.BaseURL
	if base == "" {
		base = openaiBaseURL
	}
	model := c.STTModel
	if model == "" {
		model = openaiSTTModel
	}
	return transcribeCompat(ctx, p.hc, p.Name(), base, c.APIKey, model, audio, language)
}

func (p *OpenAI) Process(ctx context.Context, text string, mode Mode, opts ModeOptions) (string, error) {
	c := p.cfg()
	base := c.BaseURL
	if base == "" {
		base = openaiBaseURL
	}
	model := c.ChatModel
	if model == "" {
		model = openaiChatModel
	}
	return chatCompat(ctx, p.hc, p.Name(), base, c.APIKey, model, text, mode, opts)
}

// transcribeCompat posts audio to an OpenAI-compatible transcription
// endpoint. Groq exposes the same API under a different base URL, so both
// providers share this.
func transcribeCompat(ctx context.Context, hc *http.Client, name, base, key, model string, audio []byte, language string) (*Transcription, error) {
	if key == "" {
		return nil, New(name, CodeNotConfigured, "no API key set")
	}
	if len(audio) == 0 {
		return nil, New(name, CodeValidationError, "no audio to transcribe")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", sniffFilename(audio))
	if err != nil {
		return nil, Errorf(name, CodeAPIError, "build upload: %v", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, Errorf(name, CodeAPIError, "build upload: %v", err)
	}
	mw.WriteField("model", model)
	mw.WriteField("response_format", "verbose_json")
	if language != "" && language != "auto" {
		mw.WriteField("language", language)
	}
	if err := mw.Close(); err != nil {
		return nil, Errorf(name, CodeAPIError, "build upload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/audio/transcriptions", &body)
	if err != nil {
		return nil, Errorf(name, CodeAPIError, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := hc.Do(req)
	if err != nil {
		return nil, classifyTransport(name, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(name, resp.StatusCode, respBody)
	}

	var out struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, Errorf(name, CodeAPIError, "decode response: %v", err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return nil, New(name, CodeEmptyResponse, "the backend returned an empty transcript")
	}
	return &Transcription{
		Text:             text,
		DetectedLanguage: out.Language,
		DurationSeconds:  out.Duration,
	}, nil
}

// chatCompat runs an enrichment request against an OpenAI-compatible chat
// endpoint.
func chatCompat(ctx context.Context, hc *http.Client, name, base, key, model, text string, mode Mode, opts ModeOptions) (string, error) {
	if key == "" {
		return "", New(name, CodeNotConfigured, "no API key set")
	}
	system, perr := enrichmentPrompt(text, mode, opts)
	if perr != nil {
		perr.Provider = name
		return "", perr
	}

	payload, err := json.Marshal(map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": text},
		},
		"temperature": 0.3,
	})
	if err != nil {
		return "", Errorf(name, CodeAPIError, "build request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", Errorf(name, CodeAPIError, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return "", classifyTransport(name, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(name, resp.StatusCode, respBody)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", Errorf(name, CodeAPIError, "decode response: %v", err)
	}
	if len(out.Choices) == 0 {
		return "", New(name, CodeEmptyResponse, "the backend returned no choices")
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return "", New(name, CodeEmptyResponse, "the backend returned empty content")
	}
	return content, nil
}
