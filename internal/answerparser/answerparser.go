// Package answerparser нормализует сырой текстовый ответ к канонической форме и
// судит корректность относительно конкретного Question (§4.4).
package answerparser

import (
	"strconv"
	"strings"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

var trueSynonyms = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true}
var falseSynonyms = map[string]bool{"false": true, "f": true, "no": true, "n": true, "0": true}

// Parse резолвит сырой ответ a против вопроса q и возвращает (accepted, correct).
// Синтаксически некорректные ответы возвращают accepted=false и никогда не должны
// попадать в Session.current_answers (решение об этом — ответственность AnswerIngress).
func Parse(a string, q *entity.Question) (accepted bool, correct bool) {
	switch q.Type {
	case entity.QuestionMultipleChoice:
		return parseMultipleChoice(a, q)
	case entity.QuestionTrueFalse:
		return parseTrueFalse(a, q)
	case entity.QuestionShortAnswer:
		return parseShortAnswer(a, q)
	default:
		return false, false
	}
}

func parseMultipleChoice(a string, q *entity.Question) (bool, bool) {
	resolved, ok := resolveOption(a, q.Options)
	if !ok {
		return false, false
	}
	// q.Answer может быть как текстом опции, так и буквой A-D (§3 инвариант),
	// поэтому резолвим его той же функцией перед сравнением.
	answer, ok := resolveOption(q.Answer, q.Options)
	if !ok {
		answer = q.Answer
	}
	return true, canonicalize(resolved) == canonicalize(answer)
}

// resolveOption резолвит a к одной из options: буква A-D (любой регистр) → индекс;
// число 1-4 → индекс; иначе точное совпадение канонизированной строки с опцией.
func resolveOption(a string, options []string) (string, bool) {
	trimmed := strings.TrimSpace(a)
	if trimmed == "" {
		return "", false
	}

	if idx, ok := letterIndex(trimmed); ok && idx < len(options) {
		return string(options[idx]), true
	}
	if idx, ok := numberIndex(trimmed); ok && idx < len(options) {
		return string(options[idx]), true
	}

	norm := canonicalize(trimmed)
	for _, opt := range options {
		if canonicalize(string(opt)) == norm {
			return string(opt), true
		}
	}
	return "", false
}

func letterIndex(s string) (int, bool) {
	if len(s) != 1 {
		return 0, false
	}
	c := strings.ToUpper(s)[0]
	if c < 'A' || c > 'D' {
		return 0, false
	}
	return int(c - 'A'), true
}

func numberIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 4 {
		return 0, false
	}
	return n - 1, true
}

func parseTrueFalse(a string, q *entity.Question) (bool, bool) {
	norm := canonicalize(a)
	var resolved string
	switch {
	case trueSynonyms[norm]:
		resolved = "true"
	case falseSynonyms[norm]:
		resolved = "false"
	default:
		return false, false
	}
	return true, resolved == canonicalize(q.Answer)
}

func parseShortAnswer(a string, q *entity.Question) (bool, bool) {
	norm := canonicalize(a)
	if norm == "" {
		return false, false
	}
	answerNorm := canonicalize(q.Answer)
	if norm == answerNorm {
		return true, true
	}
	if strings.Contains(answerNorm, norm) || strings.Contains(norm, answerNorm) {
		return true, true
	}
	return true, false
}

// canonicalize lowercase-ит, trim'ит и снимает висящие `.`/`,` — общая нормализация
// для short_answer и сравнения опций (§4.4).
func canonicalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".,")
	return s
}
