package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_Validate_MultipleChoice(t *testing.T) {
	t.Run("валидный вопрос с буквенным ответом", func(t *testing.T) {
		q := &Question{ID: 0, Text: "2+2?", Type: QuestionMultipleChoice, Options: []string{"3", "4", "5"}, Answer: "B"}
		assert.NoError(t, q.Validate(), "буквенный индекс B должен проходить валидацию")
	})

	t.Run("валидный вопрос с текстовым ответом", func(t *testing.T) {
		q := &Question{ID: 0, Text: "Capital of France?", Type: QuestionMultipleChoice, Options: []string{"Berlin", "Paris"}, Answer: "paris"}
		assert.NoError(t, q.Validate(), "текстовый ответ должен совпадать с опцией после канонизации")
	})

	t.Run("недостаточно опций", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionMultipleChoice, Options: []string{"a"}, Answer: "a"}
		assert.Error(t, q.Validate(), "multiple_choice требует минимум 2 опции")
	})

	t.Run("ответ не соответствует ни опции, ни букве", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionMultipleChoice, Options: []string{"a", "b"}, Answer: "z"}
		assert.Error(t, q.Validate(), "ответ 'z' не является ни опцией, ни буквой A-D")
	})

	t.Run("буква вне диапазона опций", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionMultipleChoice, Options: []string{"a", "b"}, Answer: "D"}
		assert.Error(t, q.Validate(), "D индексирует четвёртый элемент, которого нет")
	})
}

func TestQuestion_Validate_TrueFalse(t *testing.T) {
	cases := []struct {
		name    string
		answer  string
		wantErr bool
	}{
		{"true normalizes", "True", false},
		{"false normalizes", "FALSE", false},
		{"garbage rejected", "maybe", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q := &Question{ID: 0, Text: "is it true", Type: QuestionTrueFalse, Answer: c.answer}
			err := q.Validate()
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuestion_Validate_ShortAnswer(t *testing.T) {
	t.Run("непустой ответ валиден", func(t *testing.T) {
		q := &Question{ID: 0, Text: "Tallest mountain?", Type: QuestionShortAnswer, Answer: "Mount Everest"}
		assert.NoError(t, q.Validate())
	})

	t.Run("пустой ответ отклоняется", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionShortAnswer, Answer: "  "}
		assert.Error(t, q.Validate())
	})
}

func TestQuestion_Validate_UnknownType(t *testing.T) {
	q := &Question{ID: 0, Text: "x", Type: "riddle", Answer: "y"}
	assert.Error(t, q.Validate(), "неизвестный тип вопроса должен быть отклонён")
}

func TestQuestion_RepairAndDegraded(t *testing.T) {
	t.Run("чинит вопрос с options, помечая degraded", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionMultipleChoice, Options: []string{"first", "second"}}
		q.MarkUnparsedAnswer()
		require.True(t, q.IsUnparsedAnswer())

		ok := q.Repair()
		require.True(t, ok, "вопрос с options должен чиниться")
		require.Equal(t, "first", q.Answer)
		require.True(t, q.Degraded)
	})

	t.Run("не может починить вопрос без options", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionShortAnswer}
		q.MarkUnparsedAnswer()
		assert.False(t, q.Repair(), "без options чинить нечем")
	})

	t.Run("уже распознанный ответ остаётся нетронутым", func(t *testing.T) {
		q := &Question{ID: 0, Text: "x", Type: QuestionShortAnswer, Answer: "already parsed"}
		ok := q.Repair()
		assert.True(t, ok)
		assert.False(t, q.Degraded)
		assert.Equal(t, "already parsed", q.Answer)
	})
}
