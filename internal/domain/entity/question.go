package entity

import (
	"fmt"
	"strings"
)

// StringArray — вариант ответов вопроса. Question целиком сериализуется через
// encoding/json (снапшоты §4.10 и провайдерские ответы §4.2), поэтому
// StringArray остаётся простым срезом без sql.Scanner/Valuer: ни один store
// не хранит Options отдельной JSONB-колонкой.
type StringArray []string

// QuestionType определяет формат вопроса и правило проверки ответа.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Difficulty определяет сложность вопроса; Scorer использует её для базовых очков.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// unparsedAnswerSentinel помечает ответ, который QuestionSource не смог распознать,
// но который ещё можно починить при наличии options (§4.2).
const unparsedAnswerSentinel = "__unparsed__"

// Question — неизменяемый после конструирования вопрос викторины.
type Question struct {
	ID          int          `json:"id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"type"`
	Options     StringArray  `json:"options,omitempty"`
	Answer      string       `json:"answer"`
	Explanation string       `json:"explanation,omitempty"`
	Difficulty  Difficulty   `json:"difficulty"`
	Category    string       `json:"category,omitempty"`
	// Degraded отмечает вопрос, чей answer восстановлен эвристикой "первый вариант"
	// после получения нераспознанного значения от провайдера (§4.2).
	Degraded bool `json:"degraded,omitempty"`
}

// Validate проверяет инварианты вопроса (§3). Не чинит данные — чинкой занимается
// Repair, вызываемый questionsource до того, как вопрос попадёт в Session.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %d: text is empty", q.ID)
	}
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: multiple_choice requires at least 2 options, got %d", q.ID, len(q.Options))
		}
		if !q.hasMatchingOption(q.Answer) && !q.answerIsLetterIndex(q.Answer) {
			return fmt.Errorf("question %d: answer %q does not match any option and is not a valid letter index", q.ID, q.Answer)
		}
	case QuestionTrueFalse:
		norm := strings.ToLower(strings.TrimSpace(q.Answer))
		if norm != "true" && norm != "false" {
			return fmt.Errorf("question %d: true_false answer must normalize to true/false, got %q", q.ID, q.Answer)
		}
	case QuestionShortAnswer:
		if strings.TrimSpace(q.Answer) == "" {
			return fmt.Errorf("question %d: short_answer requires a non-empty answer", q.ID)
		}
	default:
		return fmt.Errorf("question %d: unknown question type %q", q.ID, q.Type)
	}
	return nil
}

// IsUnparsedAnswer сообщает, несёт ли answer сигнальное значение "не распознано".
func (q *Question) IsUnparsedAnswer() bool {
	return strings.EqualFold(strings.TrimSpace(q.Answer), unparsedAnswerSentinel)
}

// MarkUnparsedAnswer помечает answer как нераспознанный.
func (q *Question) MarkUnparsedAnswer() {
	q.Answer = unparsedAnswerSentinel
}

// Repair чинит вопрос с нераспознанным answer при наличии options: answer становится
// options[0], вопрос помечается degraded. Возвращает false, если чинить нечем.
func (q *Question) Repair() bool {
	if !q.IsUnparsedAnswer() {
		return true
	}
	if len(q.Options) == 0 {
		return false
	}
	q.Answer = string(q.Options[0])
	q.Degraded = true
	return true
}

func (q *Question) hasMatchingOption(answer string) bool {
	norm := canonicalize(answer)
	for _, opt := range q.Options {
		if canonicalize(opt) == norm {
			return true
		}
	}
	return false
}

// answerIsLetterIndex проверяет, является ли answer буквой A-D, индексирующей options.
func (q *Question) answerIsLetterIndex(answer string) bool {
	idx, ok := letterToIndex(answer)
	return ok && idx < len(q.Options)
}

func letterToIndex(s string) (int, bool) {
	t := strings.TrimSpace(s)
	if len(t) != 1 {
		return 0, false
	}
	c := strings.ToUpper(t)[0]
	if c < 'A' || c > 'D' {
		return 0, false
	}
	return int(c - 'A'), true
}

func canonicalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
