// Package recorder реализует §4.9: единственный транзакционный вызов в Store
// на терминальном пути сессии, плюс SPEC_FULL.md §C.4's badge-tagging pass.
// Grounded on the teacher's ResultService.CalculateQuizResult /
// DetermineWinnersAndAllocatePrizes pattern (post-quiz aggregation run once,
// after all per-answer state has settled), generalized from per-user GORM
// writes to a single batched Store.RecordQuizBatch call.
package recorder

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

const (
	speedDemonMaxAvgResponseS = 3.0
	badgeSpeedDemon           = "speed_demon"
	badgePerfectionist        = "perfectionist"
)

// Recorder writes terminal results to the durable store exactly once per
// session, tagging badges first (§C.4).
type Recorder struct {
	store repository.Store
}

// New builds a Recorder over the given store.
func New(store repository.Store) *Recorder {
	return &Recorder{store: store}
}

// RecordSession tags badges onto s's results and writes the batch. Returns
// ErrRecorderFailed (wrapped) on failure; the engine does not retry
// synchronously (§4.9) — the quiz has already ended for participants.
func (r *Recorder) RecordSession(ctx context.Context, s *entity.Session) error {
	results := s.ToResults()
	tagBadges(s, results)

	if err := r.store.RecordQuizBatch(ctx, s.QuizID, s.Topic, s.GuildID, results); err != nil {
		return fmt.Errorf("record quiz batch %s: %w: %w", s.QuizID, repository.ErrRecorderFailed, err)
	}

	for _, res := range results {
		if err := r.store.AddGuildMember(ctx, s.GuildID, res.UserID); err != nil {
			log.Printf("[Recorder] failed to register guild member %s/%s: %v", s.GuildID, res.UserID, err)
		}
	}
	return nil
}

// tagBadges computes SPEC_FULL.md §C.4's achievement tags in place, reading
// response-time history from s.Participants (Result itself carries only the
// aggregate correct/wrong/points counts).
//
//   - perfectionist: at least one attempted question, zero wrong answers.
//   - speed_demon: average response time across attempted questions under
//     speedDemonMaxAvgResponseS.
func tagBadges(s *entity.Session, results []entity.Result) {
	for i := range results {
		result := &results[i]
		p, ok := s.Participants[result.UserID]
		attempted := result.Correct + result.Wrong
		if attempted == 0 {
			continue
		}
		if result.Wrong == 0 {
			result.Badges = append(result.Badges, badgePerfectionist)
		}
		if ok && averageResponseS(p.ResponseTimes) < speedDemonMaxAvgResponseS {
			result.Badges = append(result.Badges, badgeSpeedDemon)
		}
	}
}

func averageResponseS(times []float64) float64 {
	if len(times) == 0 {
		return speedDemonMaxAvgResponseS // не меньше порога -> бейдж не присваивается
	}
	sum := 0.0
	for _, t := range times {
		sum += t
	}
	return sum / float64(len(times))
}
