package presenter

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

// Event — единообразная структура для всего, что Presenter "отправляет", в духе
// teacher-репозитория (internal/websocket.Manager.Event{Type,Data}); здесь она не
// сериализуется по сети, а складывается в Sink для тестов и cmd/quizengine демо-раннера.
type Event struct {
	Type string
	Dest Destination
	Data interface{}
}

// InMemory — реализация Presenter без зависимости от какой-либо чат-платформы:
// пишет в лог с тегом [Presenter] и параллельно складывает события в потокобезопасный
// буфер, который тесты могут инспектировать. Это не продакшн-адаптер к Discord
// (транспорт явно вне области действия ядра, §1) — он существует, чтобы движок был
// демонстрируем и тестируем end-to-end без реального чат-клиента.
type InMemory struct {
	mu       sync.Mutex
	events   []Event
	nextMsg  int64
	failNext atomic.Bool
}

// NewInMemory создаёт пустой in-memory Presenter.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Events возвращает копию накопленных событий, в порядке отправки.
func (p *InMemory) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// FailNextUpdateTimer заставляет следующий вызов UpdateTimer вернуть
// ErrPresentationTransient — используется в тестах PresentationTransient (§7).
func (p *InMemory) FailNextUpdateTimer() {
	p.failNext.Store(true)
}

func (p *InMemory) record(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *InMemory) ShowQuestion(_ context.Context, dest Destination, q *entity.Question, progress Progress, timeoutS int, privacy entity.Privacy) (MessageHandle, error) {
	id := atomic.AddInt64(&p.nextMsg, 1)
	handle := MessageHandle{ChannelID: dest.ChannelID, MessageID: fmt.Sprintf("msg-%d", id)}
	log.Printf("[Presenter] вопрос %d/%d показан в канале %s (timeout=%ds, privacy=%s): %q",
		progress.Index+1, progress.Total, dest.ChannelID, timeoutS, privacy, q.Text)
	p.record(Event{Type: "question", Dest: dest, Data: q})
	return handle, nil
}

func (p *InMemory) UpdateTimer(_ context.Context, handle MessageHandle, remainingS, totalS int) error {
	if p.failNext.CompareAndSwap(true, false) {
		return fmt.Errorf("update timer on %s: %w", handle.MessageID, repository.ErrPresentationTransient)
	}
	p.record(Event{Type: "timer", Data: remainingS})
	return nil
}

func (p *InMemory) Reveal(_ context.Context, handle MessageHandle, q *entity.Question, correctResponders []string, leaderboardTop []entity.LeaderboardEntry, progress Progress) error {
	log.Printf("[Presenter] reveal вопроса %d/%d на сообщении %s: answer=%q, correct=%v",
		progress.Index+1, progress.Total, handle.MessageID, q.Answer, correctResponders)
	p.record(Event{Type: "reveal", Data: q})
	return nil
}

func (p *InMemory) ShowFinal(_ context.Context, dest Destination, topic string, leaderboard []entity.LeaderboardEntry, stats Stats, privacy entity.Privacy) error {
	log.Printf("[Presenter] итоги викторины %q в канале %s: %d участников", topic, dest.ChannelID, stats.ParticipantCount)
	p.record(Event{Type: "final", Dest: dest, Data: leaderboard})
	return nil
}

func (p *InMemory) NotifyProgress(_ context.Context, dest Destination, message string) error {
	log.Printf("[Presenter] прогресс-уведомление в канал %s: %s", dest.ChannelID, message)
	p.record(Event{Type: "progress", Dest: dest, Data: message})
	return nil
}

func (p *InMemory) NotifyInterrupted(_ context.Context, dest Destination, topic string) error {
	log.Printf("[Presenter] уведомление о прерванной викторине %q в канал %s", topic, dest.ChannelID)
	p.record(Event{Type: "interrupted", Dest: dest, Data: topic})
	return nil
}

func (p *InMemory) AcknowledgeAnswer(_ context.Context, channelID, messageID string, correct bool) error {
	p.record(Event{Type: "ack", Data: correct})
	return nil
}
