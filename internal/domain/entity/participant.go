package entity

// Participant — участник викторины внутри одной Session.
// Создаётся лениво при первом принятом ответе, либо явной пре-регистрацией
// (хост в Private-режиме регистрируется до первого вопроса).
type Participant struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Score         int       `json:"score"`
	CorrectCount  int       `json:"correct_count"`
	WrongCount    int       `json:"wrong_count"`
	ResponseTimes []float64 `json:"response_times"`
}

// NewParticipant создаёт участника с нулевой статистикой.
func NewParticipant(userID, displayName string) *Participant {
	return &Participant{
		UserID:      userID,
		DisplayName: displayName,
	}
}

// RecordOutcome фиксирует результат одного вопроса для участника: добавляет очки,
// инкрементирует correct/wrong и append'ит response_time. Не делает никаких проверок
// диапазона — инвариант "attempted ≤ total questions" поддерживается вызывающей стороной
// (AnswerIngress), которая вызывает это один раз на принятый ответ участника.
func (p *Participant) RecordOutcome(correct bool, points int, responseTime float64) {
	p.ResponseTimes = append(p.ResponseTimes, responseTime)
	if correct {
		p.CorrectCount++
		p.Score += points
		return
	}
	p.WrongCount++
}

// Attempted возвращает число вопросов, на которые участник успел ответить.
func (p *Participant) Attempted() int {
	return p.CorrectCount + p.WrongCount
}
