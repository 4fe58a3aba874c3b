package adk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBase  = "https://api.anthropic.com/v1"
	defaultAnthropicModel = "claude-sonnet-4-5"
	anthropicVersion      = "2023-06-01"
	anthropicMaxTokens    = 1024
)

type AnthropicProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, model string, opts ...Option) *AnthropicProvider {
	o := newOptions(opts)
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: o.base(defaultAnthropicBase),
		client:  o.client(),
	}
}

func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	// Static list; selection only needs the common aliases.
	return []string{
		"claude-sonnet-4-5",
		"claude-opus-4-5",
		"claude-haiku-4-5",
	}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	req := struct {
		Model       string        `json:"model"`
		MaxTokens   int           `json:"max_tokens"`
		Temperature float64       `json:"temperature"`
		System      string        `json:"system"`
		Messages    []chatMessage `json:"messages"`
	}{
		Model:     p.Model,
		MaxTokens: anthropicMaxTokens,
		System:    GetSystemPrompt(),
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         p.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if err := doJSON(ctx, p.client, "Anthropic", http.MethodPost, p.BaseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
