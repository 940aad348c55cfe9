package entity

// Result — терминальная запись по одному участнику, передаваемая в Recorder (§3, §4.9).
// Session-level поля (QuizID, Topic, GuildID) дублируются на каждую запись батча,
// поскольку Store.RecordQuizBatch принимает их как часть Result, а не отдельным
// параметром транзакции (см. internal/domain/repository.Store).
type Result struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Correct     int    `json:"correct"`
	Wrong       int    `json:"wrong"`
	Points      int    `json:"points"`
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`

	QuizID  string `json:"quiz_id"`
	Topic   string `json:"topic"`
	GuildID string `json:"guild_id"`

	// Badges — необязательные достижения, вычисленные Recorder'ом перед записью
	// батча и записанные вместе с ним (см. SPEC_FULL.md §C.4): "speed_demon",
	// "perfectionist" и т.п.
	Badges []string `json:"badges,omitempty"`
}
