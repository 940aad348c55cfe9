package llm

import (
	"context"
	"fmt"
)

// NewProvider строит Provider из конфигурации по имени и оборачивает его retry- и
// logging-middleware (grounded on abhisek-mathiz/internal/llm.NewProvider).
func NewProvider(ctx context.Context, name string, cfg Config, retry RetryConfig) (Provider, error) {
	var base Provider
	var err error

	switch name {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg)
	case "openai":
		base, err = NewOpenAIProvider(cfg)
	case "google":
		base, err = NewGeminiProvider(ctx, cfg)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown question provider: %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", name, err)
	}

	// caller → retry → logging → base
	logged := WithLogging(base)
	retried := WithRetry(logged, retry)
	return retried, nil
}
