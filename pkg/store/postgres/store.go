// Package postgres реализует repository.Store поверх gorm.DB: единственный
// durable-бэкенд терминального пути (§4.9, §8 свойство 7 — идемпотентность
// повторной подачи батча). Recovery-снапшоты не хранятся здесь — за них
// отвечает ephemeral redis-стор (pkg/store/redis), который Store оборачивает
// вместо дублирования его методов. Grounded on the teacher's
// postgres.QuizRepo/ResultRepo: gorm models, WithContext, isUniqueViolation
// checked across both the pgx and lib/pq drivers.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

// ResultRow is the gorm model behind one results row. The unique index on
// (quiz_id, user_id) is what makes RecordQuizBatch idempotent (§8 property 7):
// a retried batch after a transient ErrRecorderFailed can't create duplicates.
type ResultRow struct {
	ID          uint `gorm:"primaryKey"`
	QuizID      string `gorm:"column:quiz_id;uniqueIndex:idx_results_quiz_user"`
	UserID      string `gorm:"column:user_id;uniqueIndex:idx_results_quiz_user"`
	DisplayName string
	Topic       string
	GuildID     string `gorm:"index"`
	Correct     int
	Wrong       int
	Points      int
	Difficulty  string
	Category    string
	Badges      pq.StringArray `gorm:"type:text[]"`
}

func (ResultRow) TableName() string { return "results" }

// GuildMemberRow is an idempotent (guild_id, user_id) membership row.
type GuildMemberRow struct {
	GuildID string `gorm:"primaryKey;column:guild_id"`
	UserID  string `gorm:"primaryKey;column:user_id"`
}

func (GuildMemberRow) TableName() string { return "guild_members" }

// snapshotStore is the subset of repository.Store that Store delegates to an
// ephemeral backend (see pkg/store/redis.SnapshotStore) instead of persisting
// to Postgres itself — recovery snapshots are short-lived and TTL'd, not
// durable history.
type snapshotStore interface {
	ListRecoverySnapshots(ctx context.Context) ([]entity.RecoverySnapshot, error)
	PutRecoverySnapshot(ctx context.Context, snapshot entity.RecoverySnapshot) error
	DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error
}

// Store implements repository.Store: durable result/member writes via gorm,
// recovery snapshots delegated to snapshots.
type Store struct {
	db        *gorm.DB
	snapshots snapshotStore
}

// New builds a Store. Schema migration is not run here — it's managed
// externally, mirroring the teacher's separation of cmd/fix-db from runtime
// wiring.
func New(db *gorm.DB, snapshots snapshotStore) *Store {
	return &Store{db: db, snapshots: snapshots}
}

var _ repository.Store = (*Store)(nil)

// RecordQuizBatch writes a session's terminal results in one statement.
// Idempotent on (quiz_id, user_id): conflicting rows are skipped via
// ON CONFLICT DO NOTHING rather than failing the whole batch, so a retried
// submission of the same batch is a safe no-op.
func (s *Store) RecordQuizBatch(ctx context.Context, quizID, topic, guildID string, results []entity.Result) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([]ResultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, ResultRow{
			QuizID:      quizID,
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			Topic:       topic,
			GuildID:     guildID,
			Correct:     r.Correct,
			Wrong:       r.Wrong,
			Points:      r.Points,
			Difficulty:  r.Difficulty,
			Category:    r.Category,
			Badges:      pq.StringArray(r.Badges),
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quiz_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("record quiz batch %s: %w", quizID, err)
	}
	return nil
}

// AddGuildMember is a best-effort, idempotent membership upsert.
func (s *Store) AddGuildMember(ctx context.Context, guildID, userID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&GuildMemberRow{GuildID: guildID, UserID: userID}).Error
	if err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("add guild member %s/%s: %w", guildID, userID, err)
	}
	return nil
}

func (s *Store) ListRecoverySnapshots(ctx context.Context) ([]entity.RecoverySnapshot, error) {
	return s.snapshots.ListRecoverySnapshots(ctx)
}

func (s *Store) PutRecoverySnapshot(ctx context.Context, snapshot entity.RecoverySnapshot) error {
	return s.snapshots.PutRecoverySnapshot(ctx, snapshot)
}

func (s *Store) DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error {
	return s.snapshots.DeleteRecoverySnapshot(ctx, guildID, channelID)
}

// isUniqueViolation checks Postgres error code 23505 across both the pgx and
// lib/pq drivers, exactly as the teacher's postgres.QuizRepo does.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
