package adk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

type OpenAIProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewOpenAIProvider(apiKey, model string, opts ...Option) *OpenAIProvider {
	o := newOptions(opts)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: o.base(defaultOpenAIBase),
		client:  o.client(),
	}
}

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.APIKey}
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := doJSON(ctx, p.client, "OpenAI", http.MethodGet, p.BaseURL+"/models", p.headers(), nil, &result); err != nil {
		return nil, err
	}

	var models []string
	for _, m := range result.Data {
		// chat models only
		if strings.HasPrefix(m.ID, "gpt-") || strings.HasPrefix(m.ID, "o") {
			models = append(models, m.ID)
		}
	}
	return models, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate calls the chat completions endpoint with a system and a user turn.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	req := struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		Messages    []chatMessage `json:"messages"`
	}{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: GetSystemPrompt()},
			{Role: "user", Content: prompt},
		},
	}

	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := doJSON(ctx, p.client, "OpenAI", http.MethodPost, p.BaseURL+"/chat/completions", p.headers(), req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
