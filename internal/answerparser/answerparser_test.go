package answerparser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

func mcQuestion(answer string) *entity.Question {
	return &entity.Question{
		Type:    entity.QuestionMultipleChoice,
		Options: []string{"Mars", "Venus", "Jupiter"},
		Answer:  answer,
	}
}

func TestParse_MultipleChoice_S1(t *testing.T) {
	// spec S1: answer хранится буквой "B", а не текстом опции.
	q := mcQuestion("B")

	accepted, correct := Parse("b", q)
	assert.True(t, accepted)
	assert.True(t, correct, "буква B должна резолвиться в Venus, совпадающий с answer")

	accepted, correct = Parse("3", q)
	assert.True(t, accepted)
	assert.False(t, correct, "3 резолвится в Jupiter, не совпадающий с Venus")
}

func TestParse_MultipleChoice_AnswerStoredAsLetter(t *testing.T) {
	// answer хранится буквой ("A"), а принятый ответ приходит текстом опции.
	q := mcQuestion("A")

	accepted, correct := Parse("Mars", q)
	assert.True(t, accepted)
	assert.True(t, correct, "текст опции должен резолвиться к тому же индексу, что и буквенный answer")

	accepted, correct = Parse("1", q)
	assert.True(t, accepted)
	assert.True(t, correct)

	accepted, correct = Parse("Venus", q)
	assert.True(t, accepted)
	assert.False(t, correct)
}

func TestParse_MultipleChoice_AcceptsLettersNumbersAndText(t *testing.T) {
	q := mcQuestion("Mars")

	for _, raw := range []string{"A", "a", "1", "Mars", " mars "} {
		accepted, correct := Parse(raw, q)
		assert.True(t, accepted, "раз %q должен приниматься", raw)
		assert.True(t, correct, "раз %q должен резолвиться к правильному ответу", raw)
	}
}

func TestParse_MultipleChoice_RejectsGarbage(t *testing.T) {
	q := mcQuestion("Mars")
	accepted, _ := Parse("xyz", q)
	assert.False(t, accepted)
}

func TestParse_TrueFalse(t *testing.T) {
	q := &entity.Question{Type: entity.QuestionTrueFalse, Answer: "true"}

	for _, raw := range []string{"True", "t", "YES", "y", "1"} {
		accepted, correct := Parse(raw, q)
		assert.True(t, accepted, raw)
		assert.True(t, correct, raw)
	}

	accepted, correct := Parse("false", q)
	assert.True(t, accepted)
	assert.False(t, correct)

	accepted, _ = Parse("maybe", q)
	assert.False(t, accepted, "синтаксически невалидный true_false ответ отклоняется")
}

func TestParse_ShortAnswer_S3Substring(t *testing.T) {
	q := &entity.Question{Type: entity.QuestionShortAnswer, Answer: "Mount Everest"}
	accepted, correct := Parse("everest", q)
	assert.True(t, accepted)
	assert.True(t, correct, "подстрока canonical ответа должна приниматься как правильная")
}

func TestParse_ShortAnswer_ExactMatchIgnoringPunctuationAndCase(t *testing.T) {
	q := &entity.Question{Type: entity.QuestionShortAnswer, Answer: "Paris"}
	accepted, correct := Parse("  PARIS.  ", q)
	assert.True(t, accepted)
	assert.True(t, correct)
}

func TestParse_ShortAnswer_EmptyRejected(t *testing.T) {
	q := &entity.Question{Type: entity.QuestionShortAnswer, Answer: "Paris"}
	accepted, _ := Parse("   ", q)
	assert.False(t, accepted)
}

func TestParse_UnknownQuestionType(t *testing.T) {
	q := &entity.Question{Type: "riddle"}
	accepted, correct := Parse("anything", q)
	assert.False(t, accepted)
	assert.False(t, correct)
}
