// Package presenter рендерит вопрос/таймер/reveal/итоги в точку назначения в чате
// (§4.3). Никаких типов чат-платформы здесь не появляется — движок видит только
// Destination и MessageHandle как непрозрачные значения, которые конкретная
// реализация (discord, in-memory для тестов) заполняет по своему усмотрению.
package presenter

import (
	"context"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

// Destination — непрозрачный адрес показа: публичный канал либо личный канал
// участника в Private-режиме. Движок не заглядывает внутрь.
type Destination struct {
	GuildID   string
	ChannelID string
	// UserID заполняется, когда Destination — это DM конкретному участнику
	// (Private режим); пусто для публичного канала.
	UserID string
}

// MessageHandle — непрозрачная ссылка на показанное сообщение, которую Presenter
// позже редактирует на Reveal.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

// Progress описывает "вопрос k/n" для рендера.
type Progress struct {
	Index int
	Total int
}

// Stats — агрегированная статистика финального экрана (used by show_final).
type Stats struct {
	ParticipantCount int
	AverageResponseS float64
}

// Presenter — контракт §4.3.
type Presenter interface {
	// ShowQuestion показывает вопрос в dest и возвращает handle для последующего edit.
	ShowQuestion(ctx context.Context, dest Destination, q *entity.Question, progress Progress, timeoutS int, privacy entity.Privacy) (MessageHandle, error)
	// UpdateTimer обновляет отображение обратного отсчёта на уже показанном сообщении.
	// Ошибки здесь не прерывают TimerLoop (§4.3: "display updates must not block the
	// authoritative deadline") — вызывающая сторона логирует и продолжает.
	UpdateTimer(ctx context.Context, handle MessageHandle, remainingS, totalS int) error
	// Reveal редактирует handle на месте, показывая правильный ответ и кто ответил верно.
	Reveal(ctx context.Context, handle MessageHandle, q *entity.Question, correctResponders []string, leaderboardTop []entity.LeaderboardEntry, progress Progress) error
	// ShowFinal рендерит итоговый экран лидерборда по завершении сессии.
	ShowFinal(ctx context.Context, dest Destination, topic string, leaderboard []entity.LeaderboardEntry, stats Stats, privacy entity.Privacy) error
	// NotifyProgress отправляет служебное прогресс-уведомление в публичный канал,
	// когда сами вопросы уходят в DM (Private-режим) — например "Question 1/1 sent
	// to participants" (S4) или "ещё здесь?" idle nudge (SPEC_FULL.md §C.5).
	NotifyProgress(ctx context.Context, dest Destination, message string) error
	// NotifyInterrupted постит уведомление о прерванной сессии после рестарта (§4.10).
	NotifyInterrupted(ctx context.Context, dest Destination, topic string) error
	// AcknowledgeAnswer best-effort ставит реакцию ✅/❌ на сообщение участника (§4.8).
	// Ошибки игнорируются вызывающей стороной — реализация не обязана их даже
	// возвращать отдельно от лога.
	AcknowledgeAnswer(ctx context.Context, channelID, messageID string, correct bool) error
}

// Cadence параметризует таблицу кадансов §4.3: обновления раз в FastIntervalS
// секунд, пока remaining < FastThresholdS, раз в MediumIntervalS, пока
// remaining < MediumThresholdS, и раз в SlowIntervalS иначе. Overridable from
// internal/config's Timers block; DefaultCadence reproduces §4.3's literal
// table (< 10s → 1s, < 30s → 2s, иначе 3s).
type Cadence struct {
	FastThresholdS   int
	FastIntervalS    int
	MediumThresholdS int
	MediumIntervalS  int
	SlowIntervalS    int
}

// DefaultCadence returns §4.3's cadence table.
func DefaultCadence() Cadence {
	return Cadence{FastThresholdS: 10, FastIntervalS: 1, MediumThresholdS: 30, MediumIntervalS: 2, SlowIntervalS: 3}
}

// ActiveCadence is the cadence table RedrawIntervalS consults. Set once at
// startup from Config.Timers before any session starts; TimerLoop never
// constructs its own Cadence.
var ActiveCadence = DefaultCadence()

// RedrawIntervalS selects the redraw interval for remainingS against
// ActiveCadence.
func RedrawIntervalS(remainingS int) int {
	c := ActiveCadence
	switch {
	case remainingS < c.FastThresholdS:
		return c.FastIntervalS
	case remainingS < c.MediumThresholdS:
		return c.MediumIntervalS
	default:
		return c.SlowIntervalS
	}
}
