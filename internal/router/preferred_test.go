package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

func newTestPreferredCache(registry *Registry) (*memoryPreferredCache, *time.Time) {
	cache := NewMemoryPreferredCache(registry, 30*time.Minute, "never/promote:free").(*memoryPreferredCache)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestPreferredCache_SetGet(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, _ := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 7, "m1")
	model, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "m1", model)
}

func TestPreferredCache_ExpiresAfterTTL(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, current := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 7, "m1")
	*current = current.Add(31 * time.Minute)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestPreferredCache_DropsModelInCooldown(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, _ := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 7, "m1")
	registry.HandleError("m1", models.ErrClassNotFound)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestPreferredCache_RefusesNeverPromote(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, _ := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 7, "never/promote:free")
	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestPreferredCache_RefusesZeroUser(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, _ := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 0, "m1")
	_, ok := cache.Get(ctx, 0)
	assert.False(t, ok)
}

func TestPreferredCache_Delete(t *testing.T) {
	registry, _ := newTestRegistry([]string{"m1"}, nil)
	cache, _ := newTestPreferredCache(registry)
	ctx := context.Background()

	cache.Set(ctx, 7, "m1")
	cache.Delete(ctx, 7)
	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}
