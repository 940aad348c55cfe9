package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider реализует Provider поверх anthropic-sdk-go (grounded on
// abhisek-mathiz/internal/llm.AnthropicProvider).
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider создаёт провайдера на базе Claude.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicProvider{client: &client, model: model}, nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 2048
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: generate: %w", err)
	}

	content, err := firstTextBlock(msg)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		Model: string(msg.Model),
	}, nil
}

func firstTextBlock(msg *anthropic.Message) ([]byte, error) {
	for _, block := range msg.Content {
		if text := block.AsAny(); text != nil {
			if tb, ok := text.(anthropic.TextBlock); ok {
				return []byte(tb.Text), nil
			}
		}
	}
	return nil, fmt.Errorf("anthropic: response contained no text block")
}

func (p *AnthropicProvider) ModelID() string { return p.model }
func (p *AnthropicProvider) Name() string    { return "anthropic" }
