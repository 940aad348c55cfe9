package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryProvider_RetriesUntilSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: errors.New("transient")},
		MockResponse{Content: []byte(`[]`)},
	)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2})

	resp, err := p.Generate(context.Background(), Request{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(resp.Content))
	assert.Len(t, mock.Calls, 2, "должно быть две попытки: первая неудачная, вторая успешная")
}

func TestRetryProvider_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: errors.New("fail 1")},
		MockResponse{Err: errors.New("fail 2")},
	)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2})

	_, err := p.Generate(context.Background(), Request{Count: 1})
	require.Error(t, err)
	assert.Len(t, mock.Calls, 2)
}

func TestRetryProvider_ContextCancelStopsImmediately(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: context.Canceled})
	p := WithRetry(mock, RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2})

	_, err := p.Generate(context.Background(), Request{Count: 1})
	require.Error(t, err)
	assert.Len(t, mock.Calls, 1, "отменённый контекст не должен повторяться")
}

func TestRegistry_NextRotatesAndWraps(t *testing.T) {
	a := NewMockProvider()
	b := NewMockProvider()
	reg := NewRegistry([]string{"anthropic", "openai"}, map[string]Provider{
		"anthropic": namedMock{a, "anthropic"},
		"openai":    namedMock{b, "openai"},
	})

	assert.Equal(t, "openai", reg.Next("anthropic").Name())
	assert.Equal(t, "anthropic", reg.Next("openai").Name(), "должно оборачиваться в начало списка")
}

// namedMock adapts MockProvider (Name()=="mock") to report an arbitrary name for
// registry rotation tests.
type namedMock struct {
	*MockProvider
	name string
}

func (n namedMock) Name() string { return n.name }
