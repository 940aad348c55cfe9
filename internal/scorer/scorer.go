// Package scorer вычисляет очки за ответ из корректности, задержки, сложности и
// режима (§4.5), обобщая Question.CalculatePoints из teacher-репозитория на
// многоуровневую сложность и FirstCorrectWins.
package scorer

import (
	"math"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
)

// BaseByDifficulty — базовые очки по сложности (§4.5). Configurable через
// internal/config; здесь заданы дефолты.
var BaseByDifficulty = map[entity.Difficulty]int{
	entity.DifficultyEasy:   10,
	entity.DifficultyMedium: 20,
	entity.DifficultyHard:   30,
}

// Input — входные данные для расчёта очков за один ответ.
type Input struct {
	Correct        bool
	ResponseTimeS  float64
	TimeoutS       float64
	Difficulty     entity.Difficulty
	Mode           entity.Mode
	IsFirstCorrect bool
}

// Score вычисляет количество очков согласно §4.5:
//
//	f = max(0, 1 − response_time/timeout)
//	points = round(base · (0.5 + 0.5·f))  если correct
//
// В режиме FirstCorrectWins только самый быстрый корректный ответчик получает очки;
// остальные корректные ответы увеличивают correct_count, но начисляют 0.
func Score(in Input) int {
	if !in.Correct {
		return 0
	}
	if in.Mode == entity.ModeFirstCorrectWins && !in.IsFirstCorrect {
		return 0
	}

	base, ok := BaseByDifficulty[in.Difficulty]
	if !ok {
		base = BaseByDifficulty[entity.DifficultyMedium]
	}

	f := 0.0
	if in.TimeoutS > 0 {
		f = 1 - in.ResponseTimeS/in.TimeoutS
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}

	return int(math.Round(float64(base) * (0.5 + 0.5*f)))
}
