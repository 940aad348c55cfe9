package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig параметризует экспоненциальный backoff с джиттером.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig — разумные значения по умолчанию для провайдеров вопросов.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryProvider — декоратор, повторяющий транзиентные ошибки с экспоненциальным
// backoff'ом и джиттером, аналогично abhisek-mathiz/internal/llm.RetryProvider.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry оборачивает Provider логикой повторов.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		wait := r.backoff(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }
func (r *RetryProvider) Name() string    { return r.inner.Name() }
