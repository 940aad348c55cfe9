package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider реализует Provider поверх go-openai (grounded on
// abhisek-mathiz/internal/llm.OpenAIProvider).
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider создаёт провайдера на базе GPT.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{client: openai.NewClient(cfg.APIKey), model: model}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		MaxTokens: req.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response contained no choices")
	}

	return &Response{
		Content: json.RawMessage(resp.Choices[0].Message.Content),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Model: resp.Model,
	}, nil
}

func (p *OpenAIProvider) ModelID() string { return p.model }
func (p *OpenAIProvider) Name() string    { return "openai" }
