// ratelimit ограничивает число попыток входа с одного ключа (адреса клиента)
// в фиксированном окне. Реализации: в памяти процесса и в Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter решает, можно ли выполнить ещё одну попытку для key.
// При отказе возвращает время до открытия следующего окна.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// pruneThreshold — размер карты, после которого Memory вычищает истёкшие окна.
const pruneThreshold = 4096

type window struct {
	count   int
	resetAt time.Time
}

// Memory — лимитер в памяти процесса, подходит для одного экземпляра сервиса.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemory создаёт лимитер на limit попыток за окно w.
func NewMemory(limit int, w time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  w,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow увеличивает счётчик окна и сообщает, укладывается ли попытка в лимит.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.windows) >= pruneThreshold {
		m.prune(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(m.window)}
		m.windows[key] = w
	}

	w.count++
	if w.count > m.limit {
		return false, w.resetAt.Sub(now), nil
	}

	return true, 0, nil
}

func (m *Memory) prune(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}

var _ Limiter = (*Memory)(nil)
