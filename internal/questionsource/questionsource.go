// Package questionsource реализует §4.2: получение батча вопросов от
// LLM-провайдеров с ретраями, ротацией провайдеров на частичном успехе,
// валидацией/починкой и повторной нумерацией id.
package questionsource

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
	"github.com/yourusername/quiz-engine/internal/questionsource/llm"
)

const maxAttempts = 3

// rawQuestion — форма одного элемента JSON-ответа провайдера до маппинга в entity.Question.
type rawQuestion struct {
	ID          int      `json:"id"`
	Text        string   `json:"text"`
	Type        string   `json:"type"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Difficulty  string   `json:"difficulty"`
	Category    string   `json:"category"`
}

// Source — контракт QuestionSource (§4.2 fetch).
type Source struct {
	registry *llm.Registry
}

// New строит Source поверх реестра провайдеров.
func New(registry *llm.Registry) *Source {
	return &Source{registry: registry}
}

// Fetch реализует §4.2 целиком: до трёх попыток, ротация провайдера между
// попытками, частичный успех продолжается тем же/следующим провайдером, валидация
// + repair, финальная перенумерация id 0..n-1. Возвращает GenerationUnavailable,
// если ни один провайдер недоступен, GenerationInvalid, если итоговый батч пуст.
func (s *Source) Fetch(ctx context.Context, topic string, count int, qType entity.QuestionType, difficulty entity.Difficulty, category string, providerHint string) ([]entity.Question, error) {
	providers := s.registry.Available()
	if len(providers) == 0 {
		return nil, fmt.Errorf("fetch questions: %w", repository.ErrGenerationUnavailable)
	}

	current := pickInitial(providers, providerHint)
	var valid []entity.Question
	needed := count

	for attempt := 0; attempt < maxAttempts && needed > 0; attempt++ {
		resp, err := current.Generate(ctx, llm.Request{
			Topic:      topic,
			Count:      needed,
			Type:       string(qType),
			Difficulty: string(difficulty),
			Category:   category,
			MaxTokens:  2048,
		})
		if err != nil {
			current = s.registry.Next(current.Name())
			if current == nil {
				break
			}
			continue
		}

		batch, parseErr := parseAndRepair(resp.Content)
		if parseErr == nil {
			valid = append(valid, batch...)
			needed = count - len(valid)
		}

		minAcceptable := int(math.Ceil(0.6 * float64(count)))
		if len(valid) >= minAcceptable && len(valid) < count && attempt < maxAttempts-1 {
			// частичный успех: просим остаток у того же/следующего провайдера (§4.2)
			current = s.registry.Next(current.Name())
			if current == nil {
				break
			}
			continue
		}
		if len(valid) >= count {
			break
		}
		if len(providers) > 1 {
			current = s.registry.Next(current.Name())
			if current == nil {
				break
			}
		}
	}

	if len(valid) > count {
		valid = valid[:count]
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("fetch questions: %w", repository.ErrGenerationInvalid)
	}

	for i := range valid {
		valid[i].ID = i
	}
	return valid, nil
}

func pickInitial(providers []llm.Provider, hint string) llm.Provider {
	if hint != "" {
		for _, p := range providers {
			if p.Name() == hint {
				return p
			}
		}
	}
	return providers[0]
}

// parseAndRepair разбирает сырой JSON-ответ провайдера, проверяет каждый вопрос и
// чинит те, чей answer — сентинел "не распознано" (§4.2). Вопросы, не прошедшие
// repair, отбрасываются; id переприсваиваются позже, на уровне всего батча.
func parseAndRepair(content json.RawMessage) ([]entity.Question, error) {
	var raws []rawQuestion
	if err := json.Unmarshal(content, &raws); err != nil {
		return nil, fmt.Errorf("parse provider response: %w", err)
	}

	out := make([]entity.Question, 0, len(raws))
	for _, r := range raws {
		if r.Text == "" {
			continue
		}
		q := entity.Question{
			ID:          r.ID,
			Text:        r.Text,
			Type:        entity.QuestionType(r.Type),
			Options:     entity.StringArray(r.Options),
			Answer:      r.Answer,
			Explanation: r.Explanation,
			Difficulty:  entity.Difficulty(r.Difficulty),
			Category:    r.Category,
		}
		if q.Type == entity.QuestionMultipleChoice && len(q.Options) == 0 {
			continue
		}
		if q.IsUnparsedAnswer() {
			if !q.Repair() {
				continue
			}
		}
		if err := q.Validate(); err != nil {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
