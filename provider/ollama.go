package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

const ollamaBaseURL = "http://localhost:11434"

type OllamaConfig struct {
	BaseURL string // empty means the default local port
	Model   string
}

// Ollama runs text enrichment against a local model server. Unlike the cloud
// providers it gets a real liveness probe: the service may simply not be
// running.
type Ollama struct {
	cfg func() OllamaConfig
	hc  *http.Client
}

func NewOllama(cfg func() OllamaConfig) *Ollama {
	return &Ollama{cfg: cfg, hc: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Configured() bool { return p.cfg().Model != "" }

func (p *Ollama) baseURL() string {
	if base := p.cfg().BaseURL; base != "" {
		return base
	}
	return ollamaBaseURL
}

// Available asks the server for its tag list. A missing model still counts
// as available; that failure classifies as MODEL_NOT_FOUND at request time,
// which tells the user more than silently skipping the provider would.
func (p *Ollama) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL()+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (p *Ollama) Process(ctx context.Context, text string, mode Mode, opts ModeOptions) (string, error) {
	c := p.cfg()
	if c.Model == "" {
		return "", New(p.Name(), CodeNotConfigured, "no model selected")
	}
	system, perr := enrichmentPrompt(text, mode, opts)
	if perr != nil {
		perr.Provider = p.Name()
		return "", perr
	}

	payload, err := json.Marshal(map[string]any{
		"model":  c.Model,
		"prompt": system + "\n\n" + text,
		"stream": false,
	})
	if err != nil {
		return "", Errorf(p.Name(), CodeAPIError, "build request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", Errorf(p.Name(), CodeAPIError, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.hc.Do(req)
	if err != nil {
		return "", classifyTransport(p.Name(), err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(p.Name(), resp.StatusCode, respBody)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", Errorf(p.Name(), CodeAPIError, "decode response: %v", err)
	}
	content := strings.TrimSpace(out.Response)
	if content == "" {
		return "", New(p.Name(), CodeEmptyResponse, "the model returned empty content")
	}
	return content, nil
}

// Models lists the tags the local server has pulled. Used by the health
// check to tell a missing service from a missing model.
func (p *Ollama) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL()+"/api/tags", nil)
	if err != nil {
		return nil, Errorf(p.Name(), CodeAPIError, "build request: %v", err)
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(p.Name(), resp.StatusCode, respBody)
	}

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, Errorf(p.Name(), CodeAPIError, "decode response: %v", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
