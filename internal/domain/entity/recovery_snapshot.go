package entity

import "time"

// RecoverySnapshot — минимальная запись, достаточная чтобы после рестарта процесса
// уведомить канал о прерванной викторине. Вопросы в снапшот не журналируются — §4.10
// прямо исключает попытку возобновить игру.
type RecoverySnapshot struct {
	GuildID        string    `json:"guild_id"`
	ChannelID      string    `json:"channel_id"`
	Topic          string    `json:"topic"`
	HostID         string    `json:"host_id"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CurrentIndex   int       `json:"current_index"`
	TotalQuestions int       `json:"total_questions"`
	SavedAt        time.Time `json:"saved_at"`
}

// Key возвращает ключ (guild_id, channel_id), под которым хранится снапшот.
func (s *RecoverySnapshot) Key() (guildID, channelID string) {
	return s.GuildID, s.ChannelID
}

// Age возвращает время, прошедшее с SavedAt относительно переданного "now".
func (s *RecoverySnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.SavedAt)
}
