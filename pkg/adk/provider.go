// Package adk wraps the LLM back-ends used to narrate risk traces.
package adk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LLMProvider defines the interface for different AI models. Generate sends a
// single prompt, with the shared system instruction, and returns the text.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing API key")
	ErrEmptyResponse   = errors.New("empty response from model")
)

// APIError is a non-2xx answer from a provider's HTTP API.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Status, e.Body)
}

const defaultHTTPTimeout = 2 * time.Minute

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// doJSON sends body (when non-nil) as JSON and decodes a 2xx reply into out.
func doJSON(ctx context.Context, client *http.Client, provider, method, url string, headers map[string]string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Provider: provider, Status: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
