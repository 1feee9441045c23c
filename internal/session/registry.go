package session

import (
	"context"
	"sync"
	"time"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// Compile-time check to ensure memoryCompletedRegistry implements CompletedRegistry
var _ interfaces.CompletedRegistry = (*memoryCompletedRegistry)(nil)

// memoryCompletedRegistry — реестр завершенных сессий в памяти процесса.
// Записи живут ограниченное время и вычищаются периодическим sweep.
type memoryCompletedRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time // session id -> момент завершения
	ttl     time.Duration

	now func() time.Time
}

// NewMemoryCompletedRegistry создает реестр завершенных сессий в памяти.
func NewMemoryCompletedRegistry(ttl time.Duration) interfaces.CompletedRegistry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memoryCompletedRegistry{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memoryCompletedRegistry) Add(_ context.Context, sessionID string) {
	r.mu.Lock()
	r.entries[sessionID] = r.now()
	r.mu.Unlock()
}

func (r *memoryCompletedRegistry) IsCompleted(_ context.Context, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	completedAt, ok := r.entries[sessionID]
	if !ok {
		return false
	}
	if r.now().Sub(completedAt) > r.ttl {
		delete(r.entries, sessionID)
		return false
	}
	return true
}

func (r *memoryCompletedRegistry) Cleanup(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	now := r.now()
	for id, completedAt := range r.entries {
		if now.Sub(completedAt) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
