package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider реализует Provider поверх google genai (grounded on
// abhisek-mathiz/internal/llm.GeminiProvider).
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider создаёт провайдера на базе Gemini.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens:  int32(req.MaxTokens),
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: buildPrompt(req)}}, Role: "user"}}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate: %w", err)
	}

	return &Response{
		Content: json.RawMessage(result.Text()),
		Model:   p.model,
	}, nil
}

func (p *GeminiProvider) ModelID() string { return p.model }
func (p *GeminiProvider) Name() string    { return "google" }
