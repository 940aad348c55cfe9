package entity

import "strings"

// Mode определяет правило начисления очков и завершения вопроса.
type Mode string

const (
	ModeStandard         Mode = "standard"
	ModeFirstCorrectWins Mode = "first_correct_wins"
)

// Privacy определяет, видит ли канал вопросы/реплеи или только прогресс-уведомления.
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

const (
	soloMaxQuestionsDefault  = 20
	groupMaxQuestionsDefault = 5
	timeoutMinSDefault       = 5
	timeoutMaxSDefault       = 120
)

// QuizRequest — валидированные на уровне команд входные данные для старта Session.
// Само по себе не проверяет права/кулдауны (это ответственность командного слоя,
// см. §1 Non-goals); Clamp лишь приводит числовые поля в допустимый диапазон.
type QuizRequest struct {
	Topic        string
	Count        int
	Difficulty   Difficulty
	Type         QuestionType
	ProviderHint string
	CategoryHint string
	TemplateHint string
	TimeoutS     int
	Mode         Mode
	Privacy      Privacy
	HostID       string
	GuildID      string
	ChannelID    string
}

// ClampLimits параметризует верхнюю границу Count и нижнюю/верхнюю границы TimeoutS.
// Значения по умолчанию соответствуют §6 конфигурации движка; Engine передаёт сюда
// значения из Config вместо хардкода defaults.
type ClampLimits struct {
	SoloMaxQuestions  int
	GroupMaxQuestions int
	TimeoutMinS       int
	TimeoutMaxS       int
}

// DefaultClampLimits возвращает значения §6 по умолчанию.
func DefaultClampLimits() ClampLimits {
	return ClampLimits{
		SoloMaxQuestions:  soloMaxQuestionsDefault,
		GroupMaxQuestions: groupMaxQuestionsDefault,
		TimeoutMinS:       timeoutMinSDefault,
		TimeoutMaxS:       timeoutMaxSDefault,
	}
}

// Clamp нормализует Count и TimeoutS в допустимые диапазоны (§3: count ∈ [1,5] для
// group, [1,20] для solo; timeout_s ∈ [5,120]) и обрезает пустой Topic/пробелы.
func (r *QuizRequest) Clamp(limits ClampLimits) {
	r.Topic = strings.TrimSpace(r.Topic)

	maxCount := limits.SoloMaxQuestions
	if r.Privacy != PrivacyPrivate {
		// "solo" здесь означает single-participant режим; приватность используется
		// как доступный движку сигнал, поскольку явного поля "solo" нет в §3 —
		// группа без приватности применяет group.max_questions.
		maxCount = limits.GroupMaxQuestions
	}
	if r.Count < 1 {
		r.Count = 1
	}
	if r.Count > maxCount {
		r.Count = maxCount
	}

	if r.TimeoutS < limits.TimeoutMinS {
		r.TimeoutS = limits.TimeoutMinS
	}
	if r.TimeoutS > limits.TimeoutMaxS {
		r.TimeoutS = limits.TimeoutMaxS
	}

	if r.Mode == "" {
		r.Mode = ModeStandard
	}
	if r.Privacy == "" {
		r.Privacy = PrivacyPublic
	}
}
