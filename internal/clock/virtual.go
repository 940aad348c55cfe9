package clock

import (
	"context"
	"sync"
	"time"
)

// Virtual — управляемые вручную часы для детерминированных тестов таймеров
// (TimerLoop, inactivity sweep). Advance продвигает текущее время и будит все
// ожидания, чей срок наступил.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []virtualWaiter
}

type virtualWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewVirtual создаёт виртуальные часы, стартующие с указанного момента.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance продвигает время на d и разрешает все ожидания с истёкшим дедлайном.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	v.now = v.now.Add(d)
	now := v.now
	remaining := v.waiters[:0]
	fired := make([]virtualWaiter, 0)
	for _, w := range v.waiters {
		if !now.Before(w.deadline) {
			fired = append(fired, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	v.waiters = remaining
	v.mu.Unlock()

	for _, w := range fired {
		w.ch <- now
	}
}

func (v *Virtual) Sleep(ctx context.Context, d time.Duration) {
	ch := v.After(d)
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (v *Virtual) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	v.mu.Lock()
	deadline := v.now.Add(d)
	if d <= 0 {
		v.mu.Unlock()
		ch <- v.now
		return ch
	}
	v.waiters = append(v.waiters, virtualWaiter{deadline: deadline, ch: ch})
	v.mu.Unlock()
	return ch
}
