package timerloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-engine/internal/clock"
	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/presenter"
)

var testQuestion = &entity.Question{ID: 0, Text: "2+2?", Type: entity.QuestionShortAnswer, Answer: "4", Difficulty: entity.DifficultyEasy}

// driveVirtual продвигает виртуальные часы небольшими шагами, пока не сработает done.
func driveVirtual(t *testing.T, vc *clock.Virtual, step time.Duration, done <-chan struct{}) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		select {
		case <-done:
			return
		default:
		}
		vc.Advance(step)
		time.Sleep(time.Millisecond)
	}
}

func TestLoop_Run_TimesOutNaturally(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	pres := presenter.NewInMemory()
	loop := New(vc, pres)

	handle, err := pres.ShowQuestion(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, testQuestion, presenter.Progress{}, 10, "public")
	require.NoError(t, err)

	done := make(chan struct{})
	var result Result
	go func() {
		result = loop.Run(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, handle, vc.Now(), 10, nil)
		close(done)
	}()

	driveVirtual(t, vc, 250*time.Millisecond, done)
	<-done

	assert.True(t, result.TimedOut)
	assert.False(t, result.Cancelled)
}

func TestLoop_Run_CancelStopsPromptlyAndWaitsGrace(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	pres := presenter.NewInMemory()
	loop := New(vc, pres)

	handle, err := pres.ShowQuestion(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, testQuestion, presenter.Progress{}, 30, "public")
	require.NoError(t, err)

	cancel := make(chan struct{})
	done := make(chan struct{})
	var result Result
	go func() {
		result = loop.Run(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, handle, vc.Now(), 30, cancel)
		close(done)
	}()

	// Продвигаем немного, затем отменяем — раньше естественного дедлайна.
	var once sync.Once
	go driveVirtual(t, vc, 100*time.Millisecond, done)
	time.Sleep(10 * time.Millisecond)
	cancelAt := vc.Now()
	once.Do(func() { close(cancel) })

	<-done
	assert.False(t, result.TimedOut)
	assert.True(t, result.Cancelled)
	assert.True(t, vc.Now().Sub(cancelAt) >= revealGrace, "Run возвращается только после паузы revealGrace")
}

func TestLoop_Run_SkipsRedundantRedraws(t *testing.T) {
	vc := clock.NewVirtual(time.Unix(0, 0))
	pres := presenter.NewInMemory()
	loop := New(vc, pres)

	handle, err := pres.ShowQuestion(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, testQuestion, presenter.Progress{}, 5, "public")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		loop.Run(context.Background(), presenter.Destination{GuildID: "g", ChannelID: "c"}, handle, vc.Now(), 5, nil)
		close(done)
	}()
	driveVirtual(t, vc, 250*time.Millisecond, done)
	<-done

	timerUpdates := 0
	for _, ev := range pres.Events() {
		if ev.Type == "timer" {
			timerUpdates++
		}
	}
	// 5 секунд при cadence=1s: не больше 6 обновлений (5,4,3,2,1,0), без дублей на
	// промежуточных 250ms срезах.
	assert.LessOrEqual(t, timerUpdates, 6)
	assert.Greater(t, timerUpdates, 0)
}
