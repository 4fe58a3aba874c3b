package adk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option tunes the HTTP-based providers.
type Option func(*options)

// WithBaseURL points a provider at a proxy or self-hosted endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// Providers lists the names NewProvider accepts.
var Providers = []string{"gemini", "openai", "anthropic", "ollama"}

func NewProvider(ctx context.Context, providerName, apiKey, modelName string, opts ...Option) (LLMProvider, error) {
	switch strings.ToLower(providerName) {
	case "gemini":
		return NewGeminiProvider(ctx, apiKey, modelName)
	case "openai":
		return NewOpenAIProvider(apiKey, modelName, opts...), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, modelName, opts...), nil
	case "ollama":
		return NewOllamaProvider(modelName, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) client() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return defaultHTTPClient()
}

func (o options) base(def string) string {
	if o.baseURL != "" {
		return strings.TrimRight(o.baseURL, "/")
	}
	return def
}
