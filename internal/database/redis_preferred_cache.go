package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/router"
)

// Compile-time check to ensure redisPreferredCache implements PreferredModelCache
var _ interfaces.PreferredModelCache = (*redisPreferredCache)(nil)

type redisPreferredCache struct {
	client   *redis.Client
	registry *router.Registry
	ttl      time.Duration
	never    string
	logger   *zap.Logger
}

// NewRedisPreferredCache creates a Redis-backed cache of last successful model per user.
// Модель, попавшая в кулдаун после кэширования, отбрасывается при чтении.
func NewRedisPreferredCache(client *redis.Client, registry *router.Registry, ttl time.Duration, neverPromote string, logger *zap.Logger) interfaces.PreferredModelCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisPreferredCache{
		client:   client,
		registry: registry,
		ttl:      ttl,
		never:    neverPromote,
		logger:   logger.Named("RedisPreferredCache"),
	}
}

func preferredKey(userID int64) string {
	return fmt.Sprintf("preferred_model:%d", userID)
}

func (c *redisPreferredCache) Get(ctx context.Context, userID int64) (string, bool) {
	model, err := c.client.Get(ctx, preferredKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to get preferred model from redis", zap.Error(err), zap.Int64("userID", userID))
		}
		return "", false
	}
	if c.registry != nil && c.registry.InCooldown(model) {
		c.Delete(ctx, userID)
		return "", false
	}
	return model, true
}

func (c *redisPreferredCache) Set(ctx context.Context, userID int64, model string) {
	if userID == 0 || model == "" || model == c.never {
		return
	}
	if err := c.client.Set(ctx, preferredKey(userID), model, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to set preferred model in redis", zap.Error(err), zap.Int64("userID", userID))
	}
}

func (c *redisPreferredCache) Delete(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, preferredKey(userID)).Err(); err != nil {
		c.logger.Warn("Failed to delete preferred model from redis", zap.Error(err), zap.Int64("userID", userID))
	}
}
