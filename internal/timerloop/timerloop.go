// Package timerloop реализует §4.7: для каждого вопроса две кооперирующие
// задачи (deadline, display) разделяют один токен отмены. Grounded on the
// teacher's quizmanager.QuestionManager.runQuestionTimer (ticker-driven
// countdown broadcast over WSManager), generalized from a fixed 1s ticker to
// the cadence table and from WSManager to the Presenter abstraction.
package timerloop

import (
	"context"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/presenter"
)

// sliceInterval bounds how often both tasks observe cancellation (§4.7: "≤ 0.5 s").
const sliceInterval = 500 * time.Millisecond

// revealGrace is the pause after cancellation before the owning task may
// reveal the answer, so a display task's in-flight edit can't land after the
// reveal edit and overwrite it with a stale "0s remaining" (§4.7).
const revealGrace = 100 * time.Millisecond

// Result reports how the question's timer concluded.
type Result struct {
	TimedOut  bool
	Cancelled bool
}

// Loop drives the deadline/display tasks for one question at a time.
type Loop struct {
	clock     clock.Clock
	presenter presenter.Presenter
}

// New builds a Loop over the given clock and presenter.
func New(c clock.Clock, p presenter.Presenter) *Loop {
	return &Loop{clock: c, presenter: p}
}

// Run blocks until the question's timeout naturally elapses or cancel is
// closed by the owning task (first-correct-wins, host stop, inactivity
// sweep). started is the question's start time, captured by the owning task
// at BeginQuestion. Returns only after any post-cancellation grace wait, so
// the caller may safely call Presenter.Reveal immediately after Run returns.
func (l *Loop) Run(ctx context.Context, dest presenter.Destination, handle presenter.MessageHandle, started time.Time, timeoutS int, cancel <-chan struct{}) Result {
	deadline := started.Add(time.Duration(timeoutS) * time.Second)
	done := make(chan struct{})
	var cancelled atomic.Bool

	displayDone := make(chan struct{})
	go func() {
		defer close(displayDone)
		l.displayTask(ctx, dest, handle, started, deadline, timeoutS, done)
	}()

	timedOut := l.deadlineTask(ctx, deadline, cancel, &cancelled)
	close(done)
	<-displayDone

	if cancelled.Load() {
		l.clock.Sleep(ctx, revealGrace)
	}
	return Result{TimedOut: timedOut, Cancelled: cancelled.Load()}
}

// deadlineTask sleeps in ≤0.5s slices until the deadline passes or cancel
// fires, so cancellation is observed promptly regardless of how close to the
// deadline it arrives.
func (l *Loop) deadlineTask(ctx context.Context, deadline time.Time, cancel <-chan struct{}, cancelled *atomic.Bool) bool {
	for {
		remaining := deadline.Sub(l.clock.Now())
		if remaining <= 0 {
			return true
		}
		slice := sliceInterval
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-l.clock.After(slice):
		case <-cancel:
			cancelled.Store(true)
			return false
		case <-ctx.Done():
			cancelled.Store(true)
			return false
		}
	}
}

// displayTask recomputes remaining seconds every slice, but only calls
// UpdateTimer when the displayed integer second actually changed and the
// cadence interval (§4.3) since the last redraw has elapsed — this skips
// redundant redraws while still observing `done`/ctx within one slice.
func (l *Loop) displayTask(ctx context.Context, dest presenter.Destination, handle presenter.MessageHandle, started, deadline time.Time, totalS int, done <-chan struct{}) {
	lastShown := -1
	lastRedrawAt := started.Add(-time.Hour) // force an immediate first redraw

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		default:
		}

		now := l.clock.Now()
		remaining := deadline.Sub(now)
		remainingS := int(math.Ceil(remaining.Seconds()))
		if remainingS < 0 {
			remainingS = 0
		}

		cadence := time.Duration(presenter.RedrawIntervalS(remainingS)) * time.Second
		if remainingS != lastShown && now.Sub(lastRedrawAt) >= cadence {
			if err := l.presenter.UpdateTimer(ctx, handle, remainingS, totalS); err != nil {
				log.Printf("[TimerLoop] update_timer failed for %s/%s: %v", dest.GuildID, dest.ChannelID, err)
			}
			lastShown = remainingS
			lastRedrawAt = now
		}

		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-l.clock.After(sliceInterval):
		}
	}
}
