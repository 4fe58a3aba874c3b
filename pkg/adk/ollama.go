package adk

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultOllamaBase  = "http://localhost:11434"
	defaultOllamaModel = "llama3.1:8b"
)

// OllamaProvider talks to a local Ollama server. No API key is needed.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

func NewOllamaProvider(model string, opts ...Option) *OllamaProvider {
	o := newOptions(opts)
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{
		Model:   model,
		BaseURL: o.base(defaultOllamaBase),
		client:  o.client(),
	}
}

func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(ctx, p.client, "Ollama", http.MethodGet, p.BaseURL+"/api/tags", nil, nil, &tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := map[string]any{
		"model":   p.Model,
		"prompt":  prompt,
		"system":  GetSystemPrompt(),
		"stream":  false,
		"options": map[string]any{"temperature": 0},
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := doJSON(ctx, p.client, "Ollama", http.MethodPost, p.BaseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Response)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
