package router

import (
	"context"
	"sync"
	"time"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// Compile-time check to ensure memoryPreferredCache implements PreferredModelCache
var _ interfaces.PreferredModelCache = (*memoryPreferredCache)(nil)

type preferredEntry struct {
	model  string
	expiry time.Time
}

// memoryPreferredCache — кэш предпочтительной модели пользователя в памяти
// процесса. Реестр передается, чтобы не выдавать модель в cooldown.
type memoryPreferredCache struct {
	mu       sync.Mutex
	entries  map[int64]preferredEntry
	ttl      time.Duration
	registry *Registry
	never    string // модель, которую нельзя ни кэшировать, ни выдавать

	now func() time.Time
}

// NewMemoryPreferredCache создает кэш предпочтительных моделей в памяти.
func NewMemoryPreferredCache(registry *Registry, ttl time.Duration, neverPromote string) interfaces.PreferredModelCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &memoryPreferredCache{
		entries:  make(map[int64]preferredEntry),
		ttl:      ttl,
		registry: registry,
		never:    neverPromote,
		now:      time.Now,
	}
}

func (c *memoryPreferredCache) Get(_ context.Context, userID int64) (string, bool) {
	if userID == 0 {
		return "", false
	}
	c.mu.Lock()
	entry, ok := c.entries[userID]
	if ok && (c.now().After(entry.expiry) || c.registry.InCooldown(entry.model)) {
		delete(c.entries, userID)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return "", false
	}
	return entry.model, true
}

func (c *memoryPreferredCache) Set(_ context.Context, userID int64, model string) {
	if userID == 0 || model == "" || model == c.never {
		return
	}
	c.mu.Lock()
	c.entries[userID] = preferredEntry{model: model, expiry: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *memoryPreferredCache) Delete(_ context.Context, userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
