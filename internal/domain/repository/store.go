package repository

import (
	"context"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

// Store — единственная граница движка с персистентностью (§6). Никакого SQL в ядре:
// все операции абстрактны. Конкретные реализации живут в pkg/store/{postgres,redis}.
type Store interface {
	// RecordQuizBatch транзакционно записывает итоговые результаты сессии.
	// Должна быть идемпотентной по (quiz_id, user_id): повторная подача того же
	// батча не создаёт дублей (§4.9, §8 свойство 7).
	RecordQuizBatch(ctx context.Context, quizID, topic, guildID string, results []entity.Result) error

	// AddGuildMember — best-effort, идемпотентная регистрация участника гильдии.
	AddGuildMember(ctx context.Context, guildID, userID string) error

	// ListRecoverySnapshots возвращает все сохранённые снапшоты для sweep при старте.
	ListRecoverySnapshots(ctx context.Context) ([]entity.RecoverySnapshot, error)
	// PutRecoverySnapshot сохраняет/перезаписывает снапшот по ключу (guild,channel).
	PutRecoverySnapshot(ctx context.Context, snapshot entity.RecoverySnapshot) error
	// DeleteRecoverySnapshot удаляет снапшот по ключу (guild,channel).
	DeleteRecoverySnapshot(ctx context.Context, guildID, channelID string) error
}
