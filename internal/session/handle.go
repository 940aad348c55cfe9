// Package session реализует единственного-писателя владение Session (§5, §9):
// каждая живая викторина управляется одной владеющей задачей (Handle), которая
// сериализует все мутации через ограниченный канал команд. TimerLoop,
// AnswerIngress и Engine никогда не трогают entity.Session напрямую — только
// через Submit/View.
package session

import (
	"context"
	"sync"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

// Command — мутация, выполняемая владеющей задачей над своей Session.
type Command func(ctx context.Context, s *entity.Session)

// Key идентифицирует ровно одну возможную живую сессию (§5: "at most one
// active session per (guild_id, channel_id)").
type Key struct {
	GuildID   string
	ChannelID string
}

// Handle — владеющая задача одной Session. Сконструированная Session становится
// доступна только ей; все остальные части системы общаются через Submit/View.
type Handle struct {
	key      Key
	session  *entity.Session
	commands chan Command
	stop     chan struct{}
	done     chan struct{}

	// earlyFinishMu guards earlyFinish, the per-question signal AnswerIngress
	// closes to tell the engine's question loop to stop waiting on TimerLoop
	// (FirstCorrectWins). This is driver plumbing, not Session state, so it is
	// safe to touch from outside the owning task under its own small lock.
	earlyFinishMu sync.Mutex
	earlyFinish   chan struct{}

	// abortMu guards a one-shot out-of-band termination request: host stop
	// (§4.6 "WaitingForAnswer | host stop | Finished | cancel timer; record;
	// announce") or the periodic inactivity/hard-cap sweep (§5, which must
	// *not* persist results — see the state table's asterisked note). Both
	// paths need to interrupt an in-progress TimerLoop wait or inter-question
	// pause promptly, hence reuse of TriggerEarlyFinish.
	abortMu        sync.Mutex
	abortRequested bool
	abortRecord    bool
}

func newHandle(key Key, s *entity.Session, capacity int) *Handle {
	return &Handle{
		key:      key,
		session:  s,
		commands: make(chan Command, capacity),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// run — тело владеющей задачи. Выполняется в отдельной горутине, запущенной
// Registry.Create; завершается, когда Registry.Remove закрывает stop.
func (h *Handle) run() {
	defer close(h.done)
	for {
		select {
		case cmd := <-h.commands:
			cmd(context.Background(), h.session)
		case <-h.stop:
			return
		}
	}
}

// Key возвращает ключ (guild_id, channel_id) этой сессии.
func (h *Handle) Key() Key { return h.key }

// Submit ставит команду в очередь владеющей задачи. Блокируется, если очередь
// заполнена (back-pressure, §6 answer_channel_capacity), до истечения ctx или
// остановки сессии.
func (h *Handle) Submit(ctx context.Context, cmd Command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stop:
		return repository.ErrSessionNotFound
	}
}

// View выполняет fn синхронно внутри владеющей задачи и дожидается её
// завершения — используется для консистентного чтения состояния (resync,
// leaderboard queries) без гонок с конкурентными мутациями.
func (h *Handle) View(ctx context.Context, fn func(s *entity.Session)) error {
	finished := make(chan struct{})
	err := h.Submit(ctx, func(_ context.Context, s *entity.Session) {
		fn(s)
		close(finished)
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stop:
		return repository.ErrSessionNotFound
	}
}

// stopAndWait сигнализирует владеющей задаче завершиться и ждёт её выхода.
// Вызывается только Registry.Remove, под защитой реестра от повторного вызова.
func (h *Handle) stopAndWait() {
	close(h.stop)
	<-h.done
}

// ArmEarlyFinish creates a fresh early-finish signal for the question about
// to start and returns it so the engine's per-question loop can select on it
// alongside TimerLoop. Replaces (and leaks, intentionally — GC'd) any
// previous unclosed channel from a question that never triggered it.
func (h *Handle) ArmEarlyFinish() <-chan struct{} {
	h.earlyFinishMu.Lock()
	defer h.earlyFinishMu.Unlock()
	ch := make(chan struct{})
	h.earlyFinish = ch
	return ch
}

// DisarmEarlyFinish clears the signal once a question's answer window has
// closed, so a late TriggerEarlyFinish for that question becomes a no-op.
func (h *Handle) DisarmEarlyFinish() {
	h.earlyFinishMu.Lock()
	defer h.earlyFinishMu.Unlock()
	h.earlyFinish = nil
}

// TriggerEarlyFinish closes the current question's early-finish signal, if
// any is armed. Safe to call from AnswerIngress's command closure, which runs
// on the owning task, or from any other goroutine.
func (h *Handle) TriggerEarlyFinish() {
	h.earlyFinishMu.Lock()
	ch := h.earlyFinish
	h.earlyFinish = nil
	h.earlyFinishMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// RequestAbort records a one-shot out-of-band termination request (host stop
// or the inactivity/hard-cap sweep) and wakes any in-progress TimerLoop wait
// via TriggerEarlyFinish. Only the first call wins; later calls are no-ops,
// so a racing stop-and-sweep can't flip the record decision after the fact.
func (h *Handle) RequestAbort(record bool) {
	h.abortMu.Lock()
	if !h.abortRequested {
		h.abortRequested = true
		h.abortRecord = record
	}
	h.abortMu.Unlock()
	h.TriggerEarlyFinish()
}

// AbortRequested reports whether RequestAbort has been called and, if so,
// whether the engine's finalize step should persist results.
func (h *Handle) AbortRequested() (requested, record bool) {
	h.abortMu.Lock()
	defer h.abortMu.Unlock()
	return h.abortRequested, h.abortRecord
}
