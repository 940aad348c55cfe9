package repository

import "errors"

// Таксономия ошибок движка (§7 спецификации). errors.Is проверяет принадлежность
// ошибки одной из этих категорий; конкретный контекст оборачивается через %w.
var (
	// ErrAlreadyActive: запрошен старт, но для (guild,channel) уже есть незавершённая сессия.
	ErrAlreadyActive = errors.New("quiz session already active for this channel")
	// ErrGenerationUnavailable: ни один провайдер вопросов не был доступен.
	ErrGenerationUnavailable = errors.New("no question provider was reachable")
	// ErrGenerationInvalid: ответ провайдера не удалось распарсить/починить до валидных вопросов.
	ErrGenerationInvalid = errors.New("question provider response could not be parsed into valid questions")
	// ErrPresentationTransient: рендер/edit не удался (сообщение удалено, rate limit).
	ErrPresentationTransient = errors.New("presenter render or edit failed transiently")
	// ErrAnswerRejected: синтаксически невалидный ответ, молча отбрасывается.
	ErrAnswerRejected = errors.New("answer rejected by syntactic gate")
	// ErrRecorderFailed: терминальная batch-запись не удалась.
	ErrRecorderFailed = errors.New("recorder failed to persist final batch")
	// ErrInternalInvariant: обнаружено нарушение инварианта состояния.
	ErrInternalInvariant = errors.New("internal invariant violated")
	// ErrSessionNotFound: для ключа (guild,channel) нет активной сессии.
	ErrSessionNotFound = errors.New("no session found for this channel")
)

