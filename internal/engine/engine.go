// Package engine реализует §2's control flow: wiring Clock, QuestionSource,
// Presenter, Session/SessionRegistry, TimerLoop, AnswerIngress, Recorder and
// RecoveryJournal into the per-(guild,channel) question loop. Grounded on the
// teacher's service.QuizManager.handleQuizStart (spawn a goroutine per quiz,
// finishQuiz on completion) and quizmanager.QuestionManager.RunQuizQuestions
// (the for-loop-over-questions shape: render, wait on timer, reveal, pause,
// advance, with liberal WARNING-level logging around best-effort steps).
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
	"github.com/yourusername/quiz-engine/internal/presenter"
	"github.com/yourusername/quiz-engine/internal/recorder"
	"github.com/yourusername/quiz-engine/internal/recovery"
	"github.com/yourusername/quiz-engine/internal/session"
	"github.com/yourusername/quiz-engine/internal/timerloop"
)

// QuestionSource — the subset of questionsource.Source's contract the engine
// depends on (§4.2). Kept as a local interface so tests can substitute a
// stub without constructing a real llm.Registry.
type QuestionSource interface {
	Fetch(ctx context.Context, topic string, count int, qType entity.QuestionType, difficulty entity.Difficulty, category string, providerHint string) ([]entity.Question, error)
}

// Config carries the engine-level options of §6.
type Config struct {
	ClampLimits        entity.ClampLimits
	InactivityLimit    time.Duration
	HardCap            time.Duration
	InterQuestionPause time.Duration
	SweepInterval      time.Duration
	RegistryCapacity   int
	// IdleNudgeThreshold is how long a session may sit without activity before
	// the sweep sends a one-time "still here?" notice (SPEC_FULL.md §C.5).
	IdleNudgeThreshold time.Duration
}

// DefaultConfig returns §6's defaults.
func DefaultConfig() Config {
	return Config{
		ClampLimits:        entity.DefaultClampLimits(),
		InactivityLimit:    30 * time.Minute,
		HardCap:            time.Hour,
		InterQuestionPause: 5 * time.Second,
		SweepInterval:      5 * time.Minute,
		RegistryCapacity:   session.DefaultAnswerChannelCapacity,
		IdleNudgeThreshold: 20 * time.Minute,
	}
}

// Engine owns the SessionRegistry and drives every registered session's
// per-question loop to completion (§2).
type Engine struct {
	registry  *session.Registry
	clock     clock.Clock
	source    QuestionSource
	presenter presenter.Presenter
	recorder  *recorder.Recorder
	journal   *recovery.Journal
	timer     *timerloop.Loop
	cfg       Config

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopC    chan struct{}
}

// New wires an Engine over an already-registered SessionRegistry. Callers
// construct an answeringress.Ingress separately over the same registry,
// clock and presenter and feed it from their chat-platform adapter — the
// Engine itself never calls AnswerIngress directly (driven by transport,
// out of scope, §1).
func New(registry *session.Registry, c clock.Clock, source QuestionSource, p presenter.Presenter, rec *recorder.Recorder, journal *recovery.Journal, cfg Config) *Engine {
	return &Engine{
		registry:  registry,
		clock:     c,
		source:    source,
		presenter: p,
		recorder:  rec,
		journal:   journal,
		timer:     timerloop.New(c, p),
		cfg:       cfg,
		stopC:     make(chan struct{}),
	}
}

// Bootstrap runs the §4.10 startup sweep and starts the periodic
// inactivity/hard-cap sweep goroutine. Call once after New, before serving
// Start requests.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if err := e.journal.Sweep(ctx); err != nil {
		return fmt.Errorf("recovery sweep: %w", err)
	}
	e.wg.Add(1)
	go e.sweepLoop()
	return nil
}

// Shutdown stops the sweep loop and waits for all in-flight session
// goroutines spawned by Start to return. It does not itself stop live
// sessions — callers that want a clean shutdown should Stop each active key
// first.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() { close(e.stopC) })
	e.wg.Wait()
}

// Start validates/clamps req, fetches questions, registers a new Session and
// spawns its owning question-loop goroutine (§2). Returns ErrAlreadyActive if
// a live session already occupies (guild,channel); ErrGenerationUnavailable/
// ErrGenerationInvalid if QuestionSource could not produce a usable batch —
// in neither failure case is a Session created or a snapshot written (§7).
func (e *Engine) Start(ctx context.Context, req entity.QuizRequest) (session.Key, error) {
	req.Clamp(e.cfg.ClampLimits)
	key := session.Key{GuildID: req.GuildID, ChannelID: req.ChannelID}

	questions, err := e.source.Fetch(ctx, req.Topic, req.Count, req.Type, req.Difficulty, req.CategoryHint, req.ProviderHint)
	if err != nil {
		return key, err
	}

	now := e.clock.Now()
	s := entity.NewSession(req, questions, now)
	if req.Privacy == entity.PrivacyPrivate {
		s.RegisterParticipant(req.HostID, req.HostID)
	}

	handle, err := e.registry.Create(key, s)
	if err != nil {
		return key, err
	}

	_ = handle.View(ctx, func(s *entity.Session) {
		if err := e.journal.Save(ctx, s); err != nil {
			log.Printf("[Engine] WARNING: failed to write initial recovery snapshot for %s/%s: %v", req.GuildID, req.ChannelID, err)
		}
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runSession(handle)
	}()

	return key, nil
}

// Stop requests an immediate, recording termination of the session at key
// (§8 S5: host stop). Returns ErrSessionNotFound if none is live.
func (e *Engine) Stop(key session.Key) error {
	handle, ok := e.registry.Get(key)
	if !ok {
		return fmt.Errorf("stop %s/%s: %w", key.GuildID, key.ChannelID, repository.ErrSessionNotFound)
	}
	handle.RequestAbort(true)
	return nil
}

// runSession drives one session's per-question loop end to end, using
// context.Background for all internal waits — the session's own lifetime is
// the only relevant deadline, not the caller of Start.
func (e *Engine) runSession(handle *session.Handle) {
	ctx := context.Background()
	key := handle.Key()
	log.Printf("[Engine] сессия %s/%s: запущена", key.GuildID, key.ChannelID)

	e.renderIntro(ctx, handle)

	for {
		if requested, record := handle.AbortRequested(); requested {
			e.finalize(ctx, handle, record)
			return
		}

		qv, ok := e.beginQuestion(ctx, handle)
		if !ok {
			// BeginQuestion found state already Finished (last Advance landed
			// here, or an abort raced us) — finalize naturally.
			e.finalize(ctx, handle, true)
			return
		}

		e.runQuestion(ctx, handle, qv)

		if requested, record := handle.AbortRequested(); requested {
			e.finalize(ctx, handle, record)
			return
		}

		more := e.advanceAndSnapshot(ctx, handle)
		if !more {
			e.finalize(ctx, handle, true)
			return
		}

		// The pause arms the early-finish signal too, so RequestAbort (host
		// stop, sweep) cuts it short instead of waiting it out.
		pauseAbort := handle.ArmEarlyFinish()
		if requested, _ := handle.AbortRequested(); !requested {
			select {
			case <-e.clock.After(e.cfg.InterQuestionPause):
			case <-pauseAbort:
			case <-e.stopC:
			}
		}
		handle.DisarmEarlyFinish()
	}
}

func (e *Engine) renderIntro(ctx context.Context, handle *session.Handle) {
	var topic string
	var dests []presenter.Destination
	_ = handle.View(ctx, func(s *entity.Session) {
		s.State = entity.StateActive
		topic = s.Topic
		dests = e.destinations(s)
	})
	for _, dest := range dests {
		if dest.UserID != "" {
			continue // per-participant DM intro is just the first question itself, §4.3
		}
		if err := e.presenter.NotifyProgress(ctx, dest, fmt.Sprintf("викторина %q начинается", topic)); err != nil {
			log.Printf("[Engine] WARNING: intro notice failed for %s/%s: %v", dest.GuildID, dest.ChannelID, err)
		}
	}
}

// questionView is a read-only snapshot of what the loop needs to render and
// time one question, captured via Handle.View so the loop never touches
// *entity.Session fields directly (§5 single-writer discipline).
type questionView struct {
	guildID, channelID string
	privacy            entity.Privacy
	question           entity.Question
	progress           presenter.Progress
	timeoutS           int
	startedAt          time.Time
	dests              []presenter.Destination
}

// beginQuestion transitions Active → WaitingForAnswer (§4.6) and captures the
// view the loop needs for this question. Returns ok=false if there was no
// question to begin (session already Finished).
func (e *Engine) beginQuestion(ctx context.Context, handle *session.Handle) (questionView, bool) {
	var qv questionView
	ok := true
	err := handle.View(ctx, func(s *entity.Session) {
		if s.State == entity.StateFinished {
			ok = false
			return
		}
		now := e.clock.Now()
		s.BeginQuestion(now)
		q, _ := s.CurrentQuestion()
		qv = questionView{
			guildID:   s.GuildID,
			channelID: s.ChannelID,
			privacy:   s.Privacy,
			question:  *q,
			progress:  presenter.Progress{Index: s.CurrentIndex, Total: len(s.Questions)},
			timeoutS:  s.QuestionTimeoutS,
			startedAt: now,
			dests:     e.destinations(s),
		}
	})
	if err != nil {
		return questionView{}, false
	}
	return qv, ok
}

// runQuestion renders the question to every destination, runs TimerLoop
// against the primary (first) destination's message as the authoritative
// countdown display, then resolves and reveals.
func (e *Engine) runQuestion(ctx context.Context, handle *session.Handle, qv questionView) {
	handles := make([]presenter.MessageHandle, len(qv.dests))
	var primary presenter.MessageHandle
	havePrimary := false
	for i, dest := range qv.dests {
		h, err := e.presenter.ShowQuestion(ctx, dest, &qv.question, qv.progress, qv.timeoutS, qv.privacy)
		if err != nil {
			log.Printf("[Engine] WARNING: show_question failed for %s/%s (dest user=%q): %v", qv.guildID, qv.channelID, dest.UserID, err)
			continue
		}
		handles[i] = h
		if !havePrimary {
			primary = h
			havePrimary = true
		}
	}

	if !havePrimary {
		log.Printf("[Engine] сессия %s/%s: не удалось показать вопрос ни в одном месте назначения, пропускаю таймер", qv.guildID, qv.channelID)
		return
	}

	if qv.privacy == entity.PrivacyPrivate {
		channelDest := presenter.Destination{GuildID: qv.guildID, ChannelID: qv.channelID}
		msg := fmt.Sprintf("Question %d/%d sent to participants", qv.progress.Index+1, qv.progress.Total)
		if err := e.presenter.NotifyProgress(ctx, channelDest, msg); err != nil {
			log.Printf("[Engine] WARNING: progress notice failed for %s/%s: %v", qv.guildID, qv.channelID, err)
		}
	}

	_ = handle.Submit(ctx, func(_ context.Context, s *entity.Session) {
		s.CurrentQuestionMessageID = primary.MessageID
	})

	earlyFinish := handle.ArmEarlyFinish()
	result := e.timer.Run(ctx, qv.dests[0], primary, qv.startedAt, qv.timeoutS, earlyFinish)
	handle.DisarmEarlyFinish()

	if requested, record := handle.AbortRequested(); requested {
		log.Printf("[Engine] сессия %s/%s: прервана (record=%v), пропускаю reveal вопроса", qv.guildID, qv.channelID, record)
		return
	}
	_ = result // TimedOut/Cancelled both lead to the same resolve-and-reveal path (§4.7)

	var correctResponders []string
	var leaderboardTop []entity.LeaderboardEntry
	_ = handle.View(ctx, func(s *entity.Session) {
		s.BeginReviewing()
		for uid, ok := range s.CurrentCorrect {
			if ok {
				correctResponders = append(correctResponders, uid)
			}
		}
		leaderboardTop = s.Leaderboard(5)
	})

	for i, dest := range qv.dests {
		h := handles[i]
		if h.MessageID == "" {
			continue // show_question failed for this destination above
		}
		if err := e.presenter.Reveal(ctx, h, &qv.question, correctResponders, leaderboardTop, qv.progress); err != nil {
			log.Printf("[Engine] WARNING: reveal failed for %s/%s (dest user=%q): %v", qv.guildID, qv.channelID, dest.UserID, err)
		}
	}

	if qv.privacy == entity.PrivacyPrivate {
		channelDest := presenter.Destination{GuildID: qv.guildID, ChannelID: qv.channelID}
		msg := fmt.Sprintf("Question %d/%d: %d correct", qv.progress.Index+1, qv.progress.Total, len(correctResponders))
		if err := e.presenter.NotifyProgress(ctx, channelDest, msg); err != nil {
			log.Printf("[Engine] WARNING: reveal summary notice failed for %s/%s: %v", qv.guildID, qv.channelID, err)
		}
	}
}

// advanceAndSnapshot transitions Reviewing → Active|Finished, writes the
// question-boundary recovery snapshot (§4.10), and reports whether more
// questions remain.
func (e *Engine) advanceAndSnapshot(ctx context.Context, handle *session.Handle) bool {
	var more bool
	err := handle.View(ctx, func(s *entity.Session) {
		s.Advance(e.clock.Now())
		more = s.State != entity.StateFinished
		if err := e.journal.Save(ctx, s); err != nil {
			log.Printf("[Engine] WARNING: failed to write question-boundary snapshot for %s/%s: %v", s.GuildID, s.ChannelID, err)
		}
	})
	if err != nil {
		// Session already torn down (removed concurrently) — nothing to
		// advance or snapshot; treat as no more questions so the caller
		// falls through to finalize, which is itself a safe no-op if the
		// registry entry is already gone.
		return false
	}
	return more
}

// finalize computes the final leaderboard, optionally calls Recorder,
// removes the session from the registry, clears its recovery snapshot, and
// announces the result (§4.9, §7 RecorderFailed, state table's "do not
// record*" inactivity note).
func (e *Engine) finalize(ctx context.Context, handle *session.Handle, record bool) {
	key := handle.Key()
	var (
		dest       presenter.Destination
		topic      string
		privacy    entity.Privacy
		guildID    string
		leaderboard []entity.LeaderboardEntry
		stats      presenter.Stats
	)
	_ = handle.View(ctx, func(s *entity.Session) {
		now := e.clock.Now()
		s.Finish(now)
		dest = presenter.Destination{GuildID: s.GuildID, ChannelID: s.ChannelID}
		topic, privacy, guildID = s.Topic, s.Privacy, s.GuildID
		leaderboard = s.Leaderboard(0)
		stats = computeStats(s)

		if record && !s.ResultsRecorded {
			if err := e.recorder.RecordSession(ctx, s); err != nil {
				log.Printf("[Engine] ERROR: recorder failed for session %s/%s: %v", guildID, key.ChannelID, err)
				if nerr := e.presenter.NotifyProgress(ctx, dest, "не удалось сохранить итоги викторины"); nerr != nil {
					log.Printf("[Engine] WARNING: failed to notify recorder failure for %s/%s: %v", guildID, key.ChannelID, nerr)
				}
			} else {
				s.ResultsRecorded = true
			}
		}
	})

	if err := e.presenter.ShowFinal(ctx, dest, topic, leaderboard, stats, privacy); err != nil {
		log.Printf("[Engine] WARNING: show_final failed for %s/%s: %v", guildID, key.ChannelID, err)
	}
	if err := e.journal.Clear(ctx, key.GuildID, key.ChannelID); err != nil {
		log.Printf("[Engine] WARNING: failed to clear recovery snapshot for %s/%s: %v", key.GuildID, key.ChannelID, err)
	}
	e.registry.Remove(key)
	log.Printf("[Engine] сессия %s/%s: завершена (record=%v)", key.GuildID, key.ChannelID, record)
}

func computeStats(s *entity.Session) presenter.Stats {
	stats := presenter.Stats{ParticipantCount: len(s.Participants)}
	var total float64
	var n int
	for _, p := range s.Participants {
		for _, t := range p.ResponseTimes {
			total += t
			n++
		}
	}
	if n > 0 {
		stats.AverageResponseS = total / float64(n)
	}
	return stats
}

// destinations fans a render out to one public channel message (Public) or
// one DM per already-registered participant plus the host (Private, §4.3).
// The TimerLoop's live countdown is only driven against dests[0] — other
// Private-mode participants still receive the initial question and the final
// reveal, but not the periodic redraw; see DESIGN.md's Open Question note.
func (e *Engine) destinations(s *entity.Session) []presenter.Destination {
	if s.Privacy != entity.PrivacyPrivate {
		return []presenter.Destination{{GuildID: s.GuildID, ChannelID: s.ChannelID}}
	}
	dests := make([]presenter.Destination, 0, len(s.Participants)+1)
	seen := make(map[string]bool, len(s.Participants)+1)
	if _, ok := s.Participants[s.HostID]; ok {
		dests = append(dests, presenter.Destination{GuildID: s.GuildID, ChannelID: s.ChannelID, UserID: s.HostID})
		seen[s.HostID] = true
	}
	for uid := range s.Participants {
		if seen[uid] {
			continue
		}
		dests = append(dests, presenter.Destination{GuildID: s.GuildID, ChannelID: s.ChannelID, UserID: uid})
		seen[uid] = true
	}
	return dests
}

// sweepLoop enforces §5's periodic inactivity/hard-cap sweep, every
// cfg.SweepInterval.
func (e *Engine) sweepLoop() {
	defer e.wg.Done()
	ticker := e.clock.After(e.cfg.SweepInterval)
	for {
		select {
		case <-ticker:
			e.sweepOnce()
			ticker = e.clock.After(e.cfg.SweepInterval)
		case <-e.stopC:
			return
		}
	}
}

func (e *Engine) sweepOnce() {
	now := e.clock.Now()
	for _, key := range e.registry.Active() {
		handle, ok := e.registry.Get(key)
		if !ok {
			continue
		}
		var expired, nudge bool
		var dests []presenter.Destination
		var topic string
		_ = handle.View(context.Background(), func(s *entity.Session) {
			expired = s.InactivityExceeded(now, e.cfg.InactivityLimit) || s.HardCapExceeded(now, e.cfg.HardCap)
			if !expired && s.ShouldSendIdleNudge(now, e.cfg.IdleNudgeThreshold) {
				nudge = true
				s.MarkIdleNudgeSent()
				topic = s.Topic
				dests = []presenter.Destination{{GuildID: s.GuildID, ChannelID: s.ChannelID}}
			}
		})
		if expired {
			log.Printf("[Engine] sweep: session %s/%s exceeded inactivity/hard-cap limits, aborting without recording", key.GuildID, key.ChannelID)
			handle.RequestAbort(false)
			continue
		}
		if nudge {
			e.sendIdleNudge(context.Background(), key, topic, dests)
		}
	}
}

// sendIdleNudge delivers the one-time "still here?" notice to the session's
// public channel (SPEC_FULL.md §C.5). Never sent to per-participant DM
// destinations, matching renderIntro's own channel-only notices.
func (e *Engine) sendIdleNudge(ctx context.Context, key session.Key, topic string, dests []presenter.Destination) {
	for _, dest := range dests {
		if dest.UserID != "" {
			continue
		}
		if err := e.presenter.NotifyProgress(ctx, dest, fmt.Sprintf("викторина %q всё ещё идёт — вы тут?", topic)); err != nil {
			log.Printf("[Engine] WARNING: idle nudge failed for %s/%s: %v", key.GuildID, key.ChannelID, err)
		}
	}
}
