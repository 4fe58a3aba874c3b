package adk

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiProvider(ctx context.Context, apiKey string, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = defaultGeminiModel
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(GetSystemPrompt())},
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	iter := g.client.ListModels(ctx)
	var names []string
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		// Only list models that support content generation (rough filter)
		if strings.Contains(m.Name, "gemini") {
			names = append(names, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return names, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (g *GeminiProvider) Close() {
	g.client.Close()
}
