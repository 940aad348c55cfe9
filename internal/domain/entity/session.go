package entity

import (
	"fmt"
	"sort"
	"time"
)

// State — состояние конечного автомата Session (§4.6).
type State string

const (
	StateSetup            State = "setup"
	StateActive           State = "active"
	StateWaitingForAnswer State = "waiting_for_answer"
	StateReviewing        State = "reviewing"
	StateFinished         State = "finished"
)

// Session — состояние одной живой викторины на (guild_id, channel_id). Мутируется
// исключительно владеющей задачей и ingress-путём под дисциплиной единственного
// писателя (§5); сама Session никаких горутин/каналов не заводит и не знает о них —
// дочерние задачи (TimerLoop) держат лишь handle на неё, сама Session на них не ссылается
// ("cyclic ownership", §9).
type Session struct {
	GuildID   string
	ChannelID string
	HostID    string
	Topic     string

	Questions    []Question
	CurrentIndex int
	State        State

	Participants map[string]*Participant
	// CurrentAnswers — сырые ответы текущего вопроса, user_id → text. Очищается на
	// границе вопроса.
	CurrentAnswers map[string]string
	// CurrentCorrect — кто ответил правильно на текущий вопрос.
	CurrentCorrect map[string]bool
	// firstCorrectOrder — правильно ответившие в текущем вопросе, в порядке
	// подачи ответов; используется Scorer'ом в режиме FirstCorrectWins.
	firstCorrectOrder []string

	CurrentQuestionMessageID string
	currentQuestionStartedAt time.Time

	CreatedAt      time.Time
	StartedAt      time.Time
	LastActivityAt time.Time
	EndedAt        time.Time

	QuestionTimeoutS    int
	InterQuestionPauseS int

	Mode    Mode
	Privacy Privacy

	// ProviderInfo — непрозрачные для движка данные о провайдере вопросов, только
	// для отчётности (§3).
	ProviderInfo map[string]string

	TimerCancelled  bool
	ResultsRecorded bool

	// QuizID — стабильный идентификатор для персистентности, производный от канала
	// и времени старта (§4.9): "trivia_<channel>_<started_at_epoch>".
	QuizID string

	// idleNudgeSent помечает, что уведомление "всё ещё здесь?" на 20 минутах
	// бездействия уже отправлено (SPEC_FULL.md §C.5); не влияет ни на один инвариант.
	idleNudgeSent bool
}

// NewSession строит Session в состоянии Setup из валидированного QuizRequest и
// заранее полученных вопросов. QuizID формируется здесь, т.к. он зависит от
// StartedAt, которую Engine фиксирует в момент вызова.
func NewSession(req QuizRequest, questions []Question, now time.Time) *Session {
	s := &Session{
		GuildID:             req.GuildID,
		ChannelID:           req.ChannelID,
		HostID:              req.HostID,
		Topic:               req.Topic,
		Questions:           questions,
		CurrentIndex:        0,
		State:               StateSetup,
		Participants:        make(map[string]*Participant),
		CurrentAnswers:      make(map[string]string),
		CurrentCorrect:      make(map[string]bool),
		CreatedAt:           now,
		StartedAt:           now,
		LastActivityAt:      now,
		QuestionTimeoutS:    req.TimeoutS,
		InterQuestionPauseS: 5,
		Mode:                req.Mode,
		Privacy:             req.Privacy,
		ProviderInfo:        make(map[string]string),
	}
	s.QuizID = fmt.Sprintf("trivia_%s_%d", req.ChannelID, now.Unix())
	return s
}

// Validate проверяет инварианты §3 перечисленные для Session. Используется в тестах;
// Engine его не вызывает, так что во время работы сессии нарушение инварианта
// не обнаруживается и сессию не завершает.
func (s *Session) Validate() error {
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.Questions) {
		return fmt.Errorf("current_index %d out of range [0,%d]", s.CurrentIndex, len(s.Questions))
	}
	if s.CurrentIndex == len(s.Questions) && s.State != StateFinished {
		return fmt.Errorf("current_index at end but state is %q, want finished", s.State)
	}
	for uid := range s.CurrentCorrect {
		if _, ok := s.Participants[uid]; !ok {
			return fmt.Errorf("current_correct references unknown participant %q", uid)
		}
	}
	for _, p := range s.Participants {
		if p.CorrectCount > len(s.Questions) {
			return fmt.Errorf("participant %q correct_count %d exceeds question count %d", p.UserID, p.CorrectCount, len(s.Questions))
		}
		if p.CorrectCount+p.WrongCount > len(s.Questions) {
			return fmt.Errorf("participant %q attempted %d exceeds question count %d", p.UserID, p.CorrectCount+p.WrongCount, len(s.Questions))
		}
	}
	return nil
}

// IsFinished сообщает, завершена ли сессия (единственный невозвратный статус).
func (s *Session) IsFinished() bool {
	return s.State == StateFinished
}

// CurrentQuestion возвращает текущий вопрос, если current_index в диапазоне.
func (s *Session) CurrentQuestion() (*Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil, false
	}
	return &s.Questions[s.CurrentIndex], true
}

// RegisterParticipant создаёт участника, если его ещё нет, и возвращает его.
// Используется как при ленивой регистрации на первом ответе, так и при явной
// пре-регистрации хоста в Private-режиме.
func (s *Session) RegisterParticipant(userID, displayName string) *Participant {
	if p, ok := s.Participants[userID]; ok {
		return p
	}
	p := NewParticipant(userID, displayName)
	s.Participants[userID] = p
	return p
}

// BeginQuestion переводит сессию Active → WaitingForAnswer: очищает per-question
// состояние и фиксирует время начала (используется AnswerIngress для response_time).
func (s *Session) BeginQuestion(now time.Time) {
	s.CurrentAnswers = make(map[string]string)
	s.CurrentCorrect = make(map[string]bool)
	s.firstCorrectOrder = nil
	s.currentQuestionStartedAt = now
	s.State = StateWaitingForAnswer
	s.LastActivityAt = now
}

// QuestionElapsed возвращает секунды, прошедшие с начала текущего вопроса.
func (s *Session) QuestionElapsed(now time.Time) float64 {
	return now.Sub(s.currentQuestionStartedAt).Seconds()
}

// RecordRawAnswer фиксирует сырой текстовый ответ пользователя на текущий вопрос
// (§4.6). Вызывающая сторона (AnswerIngress) уже провела syntактический фильтр и
// дедупликацию "уже отвечал" — здесь только состояние, без парсинга.
// Возвращает false, если пользователь уже ответил на этот вопрос (защитная
// идемпотентность на случай гонки в ingress).
func (s *Session) RecordRawAnswer(userID, text string) bool {
	if _, already := s.CurrentAnswers[userID]; already {
		return false
	}
	s.CurrentAnswers[userID] = text
	return true
}

// MarkCorrect фиксирует, что userID ответил правильно на текущий вопрос, и
// запоминает порядок для FirstCorrectWins. Должен вызываться не более одного раза
// на пользователя за вопрос.
func (s *Session) MarkCorrect(userID string) {
	if s.CurrentCorrect[userID] {
		return
	}
	s.CurrentCorrect[userID] = true
	s.firstCorrectOrder = append(s.firstCorrectOrder, userID)
}

// FirstCorrectUserID возвращает первого правильно ответившего на текущий вопрос,
// либо "" если никто ещё не ответил правильно.
func (s *Session) FirstCorrectUserID() string {
	if len(s.firstCorrectOrder) == 0 {
		return ""
	}
	return s.firstCorrectOrder[0]
}

// ShouldResolveFirstCorrectWins сообщает, пора ли завершать вопрос по правилу
// FirstCorrectWins (§4.6: "first-correct-wins satisfied").
func (s *Session) ShouldResolveFirstCorrectWins() bool {
	return s.Mode == ModeFirstCorrectWins && len(s.firstCorrectOrder) > 0
}

// BeginReviewing переводит WaitingForAnswer → Reviewing.
func (s *Session) BeginReviewing() {
	s.State = StateReviewing
}

// Advance переводит Reviewing → Active (есть ещё вопросы) либо Finished (вопросы
// кончились), инкрементируя current_index. Вызывающая сторона ответственна за паузу
// inter_question_pause_s перед рендером следующего вопроса.
func (s *Session) Advance(now time.Time) {
	s.CurrentIndex++
	if s.CurrentIndex >= len(s.Questions) {
		s.State = StateFinished
		s.EndedAt = now
		return
	}
	s.State = StateActive
}

// Finish переводит сессию в Finished из любого нетерминального состояния (host stop,
// inactivity, hard cap, invariant breach). Идемпотентен.
func (s *Session) Finish(now time.Time) {
	if s.State == StateFinished {
		return
	}
	s.State = StateFinished
	s.EndedAt = now
}

// InactivityExceeded сообщает, превышен ли порог бездействия относительно now.
func (s *Session) InactivityExceeded(now time.Time, inactivityLimit time.Duration) bool {
	return now.Sub(s.LastActivityAt) > inactivityLimit
}

// HardCapExceeded сообщает, превышена ли абсолютная длительность сессии.
func (s *Session) HardCapExceeded(now time.Time, hardCap time.Duration) bool {
	return now.Sub(s.StartedAt) > hardCap
}

// ShouldSendIdleNudge сообщает, пора ли отправить разовое уведомление о бездействии
// (SPEC_FULL.md §C.5, 20 минут) — не меняет никакое состояние автомата.
func (s *Session) ShouldSendIdleNudge(now time.Time, nudgeThreshold time.Duration) bool {
	if s.idleNudgeSent {
		return false
	}
	return now.Sub(s.LastActivityAt) >= nudgeThreshold
}

// MarkIdleNudgeSent отмечает, что уведомление о бездействии отправлено.
func (s *Session) MarkIdleNudgeSent() {
	s.idleNudgeSent = true
}

// Touch обновляет LastActivityAt — вызывается AnswerIngress при каждом принятом
// ответе; начало вопроса обновляет LastActivityAt само, в BeginQuestion.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// LeaderboardEntry — одна строка отсортированной таблицы лидеров.
type LeaderboardEntry struct {
	UserID      string
	DisplayName string
	Score       int
	Correct     int
}

// Leaderboard возвращает до limit участников, отсортированных по убыванию очков
// (при равенстве — по меньшему числу неверных ответов, затем по имени для
// детерминированности). limit ≤ 0 означает "без ограничения".
func (s *Session) Leaderboard(limit int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.Participants))
	for _, p := range s.Participants {
		entries = append(entries, LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			Correct:     p.CorrectCount,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].WrongTiebreak(s) != entries[j].WrongTiebreak(s) {
			return entries[i].WrongTiebreak(s) < entries[j].WrongTiebreak(s)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// WrongTiebreak — вспомогательный метод для сортировки Leaderboard по числу
// неверных ответов без хранения его в самой записи.
func (e LeaderboardEntry) WrongTiebreak(s *Session) int {
	if p, ok := s.Participants[e.UserID]; ok {
		return p.WrongCount
	}
	return 0
}

// ProgressInfo — снимок прогресса для рендера ("Question k/n").
type ProgressInfo struct {
	CurrentIndex   int
	TotalQuestions int
	State          State
}

// ProgressInfo возвращает текущий прогресс сессии.
func (s *Session) ProgressInfo() ProgressInfo {
	return ProgressInfo{
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: len(s.Questions),
		State:          s.State,
	}
}

// Snapshot строит RecoverySnapshot, записываемый журналом восстановления на каждой
// границе вопроса (§4.10).
func (s *Session) Snapshot(now time.Time) RecoverySnapshot {
	return RecoverySnapshot{
		GuildID:        s.GuildID,
		ChannelID:      s.ChannelID,
		Topic:          s.Topic,
		HostID:         s.HostID,
		StartedAt:      s.StartedAt,
		LastActivityAt: s.LastActivityAt,
		CurrentIndex:   s.CurrentIndex,
		TotalQuestions: len(s.Questions),
		SavedAt:        now,
	}
}

// ToResults строит терминальные Result-записи для Recorder из текущего состояния
// участников (§3, §4.9). difficulty/category берутся из первого вопроса батча как
// представительные для всей сессии (одна закачка QuestionSource — одна сложность
// /категория по запросу). Вызывается ровно один раз в терминальном пути Engine.
func (s *Session) ToResults() []Result {
	difficulty, category := "", ""
	if len(s.Questions) > 0 {
		first := s.Questions[0]
		difficulty, category = string(first.Difficulty), first.Category
	}
	results := make([]Result, 0, len(s.Participants))
	for _, p := range s.Participants {
		results = append(results, Result{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Correct:     p.CorrectCount,
			Wrong:       p.WrongCount,
			Points:      p.Score,
			Difficulty:  difficulty,
			Category:    category,
			QuizID:      s.QuizID,
			Topic:       s.Topic,
			GuildID:     s.GuildID,
		})
	}
	return results
}
