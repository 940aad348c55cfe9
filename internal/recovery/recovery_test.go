package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
	"github.com/yourusername/quiz-engine/internal/presenter"
)

type fakeStore struct {
	mu        sync.Mutex
	snapshots map[[2]string]entity.RecoverySnapshot
}

func newFakeStore(snaps ...entity.RecoverySnapshot) *fakeStore {
	s := &fakeStore{snapshots: make(map[[2]string]entity.RecoverySnapshot)}
	for _, snap := range snaps {
		s.snapshots[[2]string{snap.GuildID, snap.ChannelID}] = snap
	}
	return s
}

func (f *fakeStore) RecordQuizBatch(_ context.Context, _, _, _ string, _ []entity.Result) error {
	return nil
}
func (f *fakeStore) AddGuildMember(_ context.Context, _, _ string) error { return nil }

func (f *fakeStore) ListRecoverySnapshots(_ context.Context) ([]entity.RecoverySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.RecoverySnapshot, 0, len(f.snapshots))
	for _, snap := range f.snapshots {
		out = append(out, snap)
	}
	return out, nil
}

func (f *fakeStore) PutRecoverySnapshot(_ context.Context, snap entity.RecoverySnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[[2]string{snap.GuildID, snap.ChannelID}] = snap
	return nil
}

func (f *fakeStore) DeleteRecoverySnapshot(_ context.Context, guildID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snapshots, [2]string{guildID, channelID})
	return nil
}

func (f *fakeStore) has(guildID, channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.snapshots[[2]string{guildID, channelID}]
	return ok
}

var _ repository.Store = (*fakeStore)(nil)

func TestJournal_SaveThenClearRoundTrips(t *testing.T) {
	store := newFakeStore()
	vc := clock.NewVirtual(time.Unix(1000, 0))
	pres := presenter.NewInMemory()
	j := New(store, pres, vc, 0)

	req := entity.QuizRequest{
		Topic: "go", Count: 1, TimeoutS: 30,
		Mode: entity.ModeStandard, Privacy: entity.PrivacyPublic,
		HostID: "host", GuildID: "g1", ChannelID: "c1",
	}
	q := entity.Question{ID: 0, Text: "q", Type: entity.QuestionShortAnswer, Answer: "a", Difficulty: entity.DifficultyEasy}
	s := entity.NewSession(req, []entity.Question{q}, vc.Now())

	require.NoError(t, j.Save(context.Background(), s))
	assert.True(t, store.has("g1", "c1"))

	require.NoError(t, j.Clear(context.Background(), "g1", "c1"))
	assert.False(t, store.has("g1", "c1"))
}

func TestJournal_SweepNotifiesFreshAndDiscardsStale(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(10_000, 0))

	fresh := entity.RecoverySnapshot{
		GuildID: "g1", ChannelID: "fresh", Topic: "go",
		SavedAt: vc.Now().Add(-10 * time.Minute),
	}
	stale := entity.RecoverySnapshot{
		GuildID: "g1", ChannelID: "stale", Topic: "rust",
		SavedAt: vc.Now().Add(-2 * time.Hour),
	}
	store := newFakeStore(fresh, stale)
	pres := presenter.NewInMemory()
	j := New(store, pres, vc, 1800)

	require.NoError(t, j.Sweep(context.Background()))

	assert.False(t, store.has("g1", "fresh"), "свежий снапшот должен быть очищен после уведомления")
	assert.False(t, store.has("g1", "stale"), "устаревший снапшот отбрасывается молча")

	var interruptedTopics []string
	for _, ev := range pres.Events() {
		if ev.Type == "interrupted" {
			interruptedTopics = append(interruptedTopics, ev.Data.(string))
		}
	}
	assert.Equal(t, []string{"go"}, interruptedTopics, "уведомление постится только для свежего снапшота")
}

func TestJournal_SweepWithNoSnapshotsIsNoop(t *testing.T) {
	store := newFakeStore()
	vc := clock.NewVirtual(time.Unix(0, 0))
	pres := presenter.NewInMemory()
	j := New(store, pres, vc, 0)

	require.NoError(t, j.Sweep(context.Background()))
	assert.Empty(t, pres.Events())
}
