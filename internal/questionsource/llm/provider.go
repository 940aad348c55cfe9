// Package llm предоставляет провайдерную абстракцию, на которой строится
// QuestionSource: единый Provider интерфейс, конкретные реализации поверх
// anthropic-sdk-go / go-openai / google genai, и decorator-обёртки для retry и
// логирования (grounded on the abhisek-mathiz internal/llm package).
package llm

import (
	"context"
	"encoding/json"
)

// Provider — ядро абстракции LLM для генерации вопросов.
type Provider interface {
	// Generate отправляет запрос на генерацию батча вопросов и возвращает сырой
	// JSON-ответ модели; парсинг в []entity.Question происходит выше, в
	// questionsource, одинаково для всех провайдеров.
	Generate(ctx context.Context, req Request) (*Response, error)
	// ModelID возвращает идентификатор модели, которую использует провайдер.
	ModelID() string
	// Name возвращает имя провайдера, как оно хранится в Session.ProviderInfo.
	Name() string
}

// Request описывает, что нужно сгенерировать.
type Request struct {
	Topic      string
	Count      int
	Type       string
	Difficulty string
	Category   string
	MaxTokens  int
}

// Response — результат вызова провайдера.
type Response struct {
	// Content — сырой JSON-массив вопросов, как его вернула модель.
	Content json.RawMessage
	Usage   Usage
	Model   string
}

// Usage учитывает потребление токенов одного запроса.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Registry описывает доступность и порядок провайдеров по умолчанию (§6:
// "A registry reports availability and default order").
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry строит реестр из уже сконструированных провайдеров, в порядке order.
// Провайдеры, для которых не передана реализация, считаются недоступными.
func NewRegistry(order []string, providers map[string]Provider) *Registry {
	return &Registry{providers: providers, order: order}
}

// Available возвращает провайдеров в порядке предпочтения, пропуская отсутствующих.
func (r *Registry) Available() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		if p, ok := r.providers[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Next возвращает провайдера, следующего за currentName в порядке предпочтения,
// оборачиваясь в начало списка — используется для ротации между попытками (§4.2).
func (r *Registry) Next(currentName string) Provider {
	avail := r.Available()
	if len(avail) == 0 {
		return nil
	}
	for i, p := range avail {
		if p.Name() == currentName {
			return avail[(i+1)%len(avail)]
		}
	}
	return avail[0]
}
