// Package answeringress реализует §4.8: приём сообщений чат-платформы,
// синтаксический фильтр, идемпотентная дедупликация и диспетчеризацию принятых
// ответов во владеющую задачу сессии. Grounded on the teacher's
// quizmanager.AnswerProcessor.ProcessAnswer (elimination/duplicate/timing
// checks before persisting an answer), generalized from "selected option
// index + DB unique-constraint dedup" to the parser-driven acceptance gate
// and in-memory RecordRawAnswer idempotency §4.6 already provides.
package answeringress

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/quiz-engine/internal/answerparser"
	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/presenter"
	"github.com/yourusername/quiz-engine/internal/scorer"
	"github.com/yourusername/quiz-engine/internal/session"
)

// ChatMessage is the transport-agnostic shape AnswerIngress consumes; a real
// chat-platform adapter (out of scope, §1 Non-goals) maps its own
// message-create events into this before calling Accept.
type ChatMessage struct {
	GuildID     string
	ChannelID   string
	UserID      string
	DisplayName string
	MessageID   string
	Text        string
	AuthorIsBot bool
}

// Ingress dispatches accepted chat messages into the owning task of the
// session they target.
type Ingress struct {
	registry  *session.Registry
	clock     clock.Clock
	presenter presenter.Presenter
}

// New builds an Ingress over the given session registry, clock, and presenter.
func New(registry *session.Registry, c clock.Clock, p presenter.Presenter) *Ingress {
	return &Ingress{registry: registry, clock: c, presenter: p}
}

// Accept runs the acceptance filter and, if the message passes, submits
// processing into the owning task of the (guild, channel) session. Returns
// promptly unless the owning task's command queue is full, in which case it
// blocks up to ctx's deadline (back-pressure, §6 answer_channel_capacity).
// response_time is captured here, at submission time, not when the owning
// task eventually processes the command (§5 ordering guarantee).
func (ig *Ingress) Accept(ctx context.Context, msg ChatMessage) error {
	if msg.AuthorIsBot {
		return nil
	}
	handle, ok := ig.registry.Get(session.Key{GuildID: msg.GuildID, ChannelID: msg.ChannelID})
	if !ok {
		return nil
	}

	submittedAt := ig.clock.Now()
	return handle.Submit(ctx, func(cmdCtx context.Context, s *entity.Session) {
		ig.process(cmdCtx, s, handle, msg, submittedAt)
	})
}

// process runs entirely inside the owning task (§5 single-writer discipline).
func (ig *Ingress) process(ctx context.Context, s *entity.Session, handle *session.Handle, msg ChatMessage, submittedAt time.Time) {
	if s.State != entity.StateWaitingForAnswer {
		return
	}
	if _, already := s.CurrentAnswers[msg.UserID]; already {
		return
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return
	}

	accepted, correct := answerparser.Parse(msg.Text, q)
	if !accepted {
		return
	}
	if !s.RecordRawAnswer(msg.UserID, msg.Text) {
		return
	}

	elapsed := s.QuestionElapsed(submittedAt)
	isFirstCorrect := correct && s.FirstCorrectUserID() == ""
	participant := s.RegisterParticipant(msg.UserID, msg.DisplayName)

	points := scorer.Score(scorer.Input{
		Correct:        correct,
		ResponseTimeS:  elapsed,
		TimeoutS:       float64(s.QuestionTimeoutS),
		Difficulty:     q.Difficulty,
		Mode:           s.Mode,
		IsFirstCorrect: isFirstCorrect,
	})
	participant.RecordOutcome(correct, points, elapsed)
	if correct {
		s.MarkCorrect(msg.UserID)
	}
	s.Touch(ig.clock.Now())

	if err := ig.presenter.AcknowledgeAnswer(ctx, msg.ChannelID, msg.MessageID, correct); err != nil {
		log.Printf("[AnswerIngress] ack failed for user %s message %s: %v", msg.UserID, msg.MessageID, err)
	}

	if s.ShouldResolveFirstCorrectWins() {
		handle.TriggerEarlyFinish()
	}
}
