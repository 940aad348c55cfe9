// Package recovery реализует §4.10: запись RecoverySnapshot на создании сессии
// и на каждой границе вопроса, удаление на терминальном переходе, и sweep при
// старте процесса, уведомляющий каналы о прерванных викторинах без попытки
// возобновить игру (вопросы не журналируются).
package recovery

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
	"github.com/yourusername/quiz-engine/internal/presenter"
)

// DefaultTTL — recovery.ttl_s по умолчанию (§6): снапшоты старше этого
// отбрасываются молча, без уведомления.
const DefaultTTL = 1800

// sweepConcurrency ограничивает число одновременных уведомлений при sweep,
// grounded on teacher's attackengine.Engine.queryTarget errgroup+SetLimit
// fan-out pattern.
const sweepConcurrency = 10

// Journal пишет/удаляет RecoverySnapshot по ходу жизни сессии и выполняет
// sweep при старте процесса.
type Journal struct {
	store     repository.Store
	presenter presenter.Presenter
	clock     clock.Clock
	ttlS      int
}

// New строит Journal. ttlS <= 0 приводит к DefaultTTL.
func New(store repository.Store, p presenter.Presenter, c clock.Clock, ttlS int) *Journal {
	if ttlS <= 0 {
		ttlS = DefaultTTL
	}
	return &Journal{store: store, presenter: p, clock: c, ttlS: ttlS}
}

// Save записывает/перезаписывает снапшот текущего состояния s. Вызывается
// владеющей задачей сессии на создании и на каждой границе вопроса (§4.10,
// §5 "Recovery snapshots are per-key and written by the owning task only").
func (j *Journal) Save(ctx context.Context, s *entity.Session) error {
	return j.store.PutRecoverySnapshot(ctx, s.Snapshot(j.clock.Now()))
}

// Clear удаляет снапшот на терминальном переходе сессии.
func (j *Journal) Clear(ctx context.Context, guildID, channelID string) error {
	return j.store.DeleteRecoverySnapshot(ctx, guildID, channelID)
}

// Sweep перечисляет все снапшоты при старте процесса: для каждого не старше
// ttlS постит одно уведомление о прерванной викторине и очищает снапшот;
// снапшоты старше ttlS отбрасываются молча. Уведомления рассылаются
// параллельно, ограниченно sweepConcurrency, чтобы большое число прерванных
// каналов при старте не сериализовалось в одно по одному.
func (j *Journal) Sweep(ctx context.Context) error {
	snapshots, err := j.store.ListRecoverySnapshots(ctx)
	if err != nil {
		return err
	}

	now := j.clock.Now()
	ttl := time.Duration(j.ttlS) * time.Second
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	var mu sync.Mutex
	var notified, discarded int

	for _, snap := range snapshots {
		snap := snap
		age := snap.Age(now)
		if age > ttl {
			mu.Lock()
			discarded++
			mu.Unlock()
			if err := j.store.DeleteRecoverySnapshot(ctx, snap.GuildID, snap.ChannelID); err != nil {
				log.Printf("[Recovery] failed to discard stale snapshot %s/%s: %v", snap.GuildID, snap.ChannelID, err)
			}
			continue
		}

		g.Go(func() error {
			dest := presenter.Destination{GuildID: snap.GuildID, ChannelID: snap.ChannelID}
			if err := j.presenter.NotifyInterrupted(gctx, dest, snap.Topic); err != nil {
				log.Printf("[Recovery] failed to notify interrupted session %s/%s: %v", snap.GuildID, snap.ChannelID, err)
			}
			if err := j.store.DeleteRecoverySnapshot(gctx, snap.GuildID, snap.ChannelID); err != nil {
				log.Printf("[Recovery] failed to clear snapshot after notify %s/%s: %v", snap.GuildID, snap.ChannelID, err)
			}
			mu.Lock()
			notified++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("[Recovery] startup sweep: %d interrupted session(s) notified, %d stale snapshot(s) discarded", notified, discarded)
	return nil
}
