package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

func newTestSession() *entity.Session {
	req := entity.QuizRequest{
		Topic: "go", Count: 1, TimeoutS: 30,
		Mode: entity.ModeStandard, Privacy: entity.PrivacyPublic,
		HostID: "host", GuildID: "g1", ChannelID: "c1",
	}
	q := entity.Question{ID: 0, Text: "2+2?", Type: entity.QuestionShortAnswer, Answer: "4", Difficulty: entity.DifficultyEasy}
	return entity.NewSession(req, []entity.Question{q}, time.Unix(1000, 0))
}

func TestRegistry_CreateRejectsSecondActiveSession(t *testing.T) {
	reg := NewRegistry(4)
	key := Key{GuildID: "g1", ChannelID: "c1"}

	_, err := reg.Create(key, newTestSession())
	require.NoError(t, err)

	_, err = reg.Create(key, newTestSession())
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrAlreadyActive))
}

func TestRegistry_GetAndRemove(t *testing.T) {
	reg := NewRegistry(4)
	key := Key{GuildID: "g1", ChannelID: "c1"}

	h, err := reg.Create(key, newTestSession())
	require.NoError(t, err)

	got, ok := reg.Get(key)
	require.True(t, ok)
	assert.Same(t, h, got)

	reg.Remove(key)
	_, ok = reg.Get(key)
	assert.False(t, ok, "после Remove ключ не должен быть виден")

	assert.Equal(t, 0, reg.Count())
	// Повторный Remove — no-op, не паникует.
	reg.Remove(key)
}

func TestHandle_SubmitSerializesMutations(t *testing.T) {
	reg := NewRegistry(4)
	key := Key{GuildID: "g1", ChannelID: "c1"}
	h, err := reg.Create(key, newTestSession())
	require.NoError(t, err)
	defer reg.Remove(key)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = h.Submit(context.Background(), func(_ context.Context, s *entity.Session) {
				s.Touch(time.Unix(2000, 0))
			})
		}(i)
	}
	wg.Wait()

	var lastActivity time.Time
	require.NoError(t, h.View(context.Background(), func(s *entity.Session) {
		lastActivity = s.LastActivityAt
	}))
	assert.Equal(t, time.Unix(2000, 0), lastActivity)
}

func TestHandle_SubmitAfterRemoveFailsWithSessionNotFound(t *testing.T) {
	reg := NewRegistry(4)
	key := Key{GuildID: "g1", ChannelID: "c1"}
	h, err := reg.Create(key, newTestSession())
	require.NoError(t, err)

	reg.Remove(key)

	err = h.Submit(context.Background(), func(_ context.Context, s *entity.Session) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))
}

func TestHandle_SubmitRespectsContextTimeout(t *testing.T) {
	reg := NewRegistry(1)
	key := Key{GuildID: "g1", ChannelID: "c1"}
	h, err := reg.Create(key, newTestSession())
	require.NoError(t, err)
	defer reg.Remove(key)

	block := make(chan struct{})
	require.NoError(t, h.Submit(context.Background(), func(_ context.Context, s *entity.Session) {
		<-block
	}))
	// канал ёмкости 1 уже занят этой командой (выполняется), забиваем очередь ещё одной
	require.NoError(t, h.Submit(context.Background(), func(_ context.Context, s *entity.Session) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = h.Submit(ctx, func(_ context.Context, s *entity.Session) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

func TestRegistry_ActiveListsAllLiveKeys(t *testing.T) {
	reg := NewRegistry(4)
	keys := []Key{{GuildID: "g1", ChannelID: "c1"}, {GuildID: "g1", ChannelID: "c2"}}
	for _, k := range keys {
		_, err := reg.Create(k, newTestSession())
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, keys, reg.Active())
}
