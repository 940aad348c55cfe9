// Package clock абстрагирует монотонное время и отменяемые задержки (§4.1), чтобы
// тесты могли подставлять виртуальные часы вместо time.Sleep.
package clock

import (
	"context"
	"time"
)

// Clock — поверхность времени, используемая всем движком. Ничто в internal/ не
// должно вызывать time.Now()/time.Sleep() напрямую — только через эту абстракцию.
type Clock interface {
	// Now возвращает текущее монотонное время.
	Now() time.Time
	// Sleep блокируется на d либо до отмены ctx, в зависимости от того, что раньше.
	Sleep(ctx context.Context, d time.Duration)
	// After возвращает канал, который получает значение по истечении d (аналог time.After).
	After(d time.Duration) <-chan time.Time
}

// Real — реализация Clock поверх стандартного time-пакета.
type Real struct{}

// New возвращает реальные часы.
func New() Real {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
