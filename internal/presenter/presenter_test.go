package presenter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

func TestInMemory_ShowQuestionThenReveal_SameHandle(t *testing.T) {
	p := NewInMemory()
	ctx := context.Background()
	q := &entity.Question{Text: "2+2?", Type: entity.QuestionShortAnswer, Answer: "4"}

	handle, err := p.ShowQuestion(ctx, Destination{ChannelID: "c1"}, q, Progress{Index: 0, Total: 1}, 30, entity.PrivacyPublic)
	require.NoError(t, err)

	err = p.Reveal(ctx, handle, q, []string{"u1"}, nil, Progress{Index: 0, Total: 1})
	require.NoError(t, err)

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "question", events[0].Type)
	assert.Equal(t, "reveal", events[1].Type)
}

func TestInMemory_UpdateTimer_InjectedFailure(t *testing.T) {
	p := NewInMemory()
	p.FailNextUpdateTimer()

	err := p.UpdateTimer(context.Background(), MessageHandle{MessageID: "m1"}, 5, 30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrPresentationTransient))

	err = p.UpdateTimer(context.Background(), MessageHandle{MessageID: "m1"}, 4, 30)
	assert.NoError(t, err, "сбой должен быть разовым")
}

func TestRedrawIntervalS_CadenceTable(t *testing.T) {
	assert.Equal(t, 1, RedrawIntervalS(9))
	assert.Equal(t, 2, RedrawIntervalS(29))
	assert.Equal(t, 3, RedrawIntervalS(119))
}
