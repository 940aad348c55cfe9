package session

import (
	"sync"

	"github.com/yourusername/quiz-engine/internal/domain/entity"
	"github.com/yourusername/quiz-engine/internal/domain/repository"
)

// DefaultAnswerChannelCapacity — запасное значение answer_channel_capacity
// (§6), используется, если Registry сконструирован без явной ёмкости.
const DefaultAnswerChannelCapacity = 64

// Registry отслеживает живые сессии и принудительно соблюдает инвариант "не
// более одной активной сессии на (guild_id, channel_id)" (§5) через короткую
// критическую секцию вокруг create/get/remove — сама обработка команд идёт вне
// лока, внутри владеющей задачи каждой сессии.
type Registry struct {
	mu       sync.Mutex
	handles  map[Key]*Handle
	capacity int
}

// NewRegistry строит пустой реестр с заданной ёмкостью канала команд на
// сессию. capacity ≤ 0 использует DefaultAnswerChannelCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultAnswerChannelCapacity
	}
	return &Registry{handles: make(map[Key]*Handle), capacity: capacity}
}

// Create заводит владеющую задачу для новой Session и регистрирует её под key.
// Возвращает ErrAlreadyActive, если на этом (guild_id, channel_id) уже есть
// живая сессия (§5, §7).
func (r *Registry) Create(key Key, s *entity.Session) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[key]; exists {
		return nil, repository.ErrAlreadyActive
	}
	h := newHandle(key, s, r.capacity)
	r.handles[key] = h
	go h.run()
	return h, nil
}

// Get возвращает владеющую задачу для key, если сессия активна.
func (r *Registry) Get(key Key) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[key]
	return h, ok
}

// Remove останавливает владеющую задачу и снимает key с регистрации.
// Идемпотентен: повторный вызов для уже снятого key — no-op.
func (r *Registry) Remove(key Key) {
	r.mu.Lock()
	h, ok := r.handles[key]
	if ok {
		delete(r.handles, key)
	}
	r.mu.Unlock()

	if ok {
		h.stopAndWait()
	}
}

// Active возвращает снимок ключей всех живых сессий — используется периодической
// разверткой неактивности/hard cap (§5).
func (r *Registry) Active() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	return keys
}

// Count возвращает число живых сессий.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
