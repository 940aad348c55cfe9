package llm

import (
	"context"
	"log"
	"time"
)

// LoggingProvider — декоратор, логирующий каждый вызов Generate с тегом
// [QuestionSource], в духе teacher-репозитория's bracketed component logging.
type LoggingProvider struct {
	inner Provider
}

// WithLogging оборачивает Provider логированием вызовов.
func WithLogging(p Provider) Provider {
	return &LoggingProvider{inner: p}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("[QuestionSource] провайдер %s: запрос на %d вопросов (topic=%q) завершился ошибкой за %v: %v",
			l.inner.Name(), req.Count, req.Topic, elapsed, err)
		return nil, err
	}
	log.Printf("[QuestionSource] провайдер %s: получен ответ (%d input / %d output токенов) за %v",
		l.inner.Name(), resp.Usage.InputTokens, resp.Usage.OutputTokens, elapsed)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }
func (l *LoggingProvider) Name() string    { return l.inner.Name() }
