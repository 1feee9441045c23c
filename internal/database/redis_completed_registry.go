package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
)

// Compile-time check to ensure redisCompletedRegistry implements CompletedRegistry
var _ interfaces.CompletedRegistry = (*redisCompletedRegistry)(nil)

type redisCompletedRegistry struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCompletedRegistry creates a Redis-backed registry of completed sessions.
// Записи истекают по TTL средствами самого Redis.
func NewRedisCompletedRegistry(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.CompletedRegistry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisCompletedRegistry{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisCompletedRegistry"),
	}
}

func completedKey(sessionID string) string {
	return fmt.Sprintf("completed_session:%s", sessionID)
}

func (r *redisCompletedRegistry) Add(ctx context.Context, sessionID string) {
	if err := r.client.Set(ctx, completedKey(sessionID), "1", r.ttl).Err(); err != nil {
		r.logger.Warn("Failed to register completed session in redis", zap.Error(err), zap.String("sessionID", sessionID))
	}
}

func (r *redisCompletedRegistry) IsCompleted(ctx context.Context, sessionID string) bool {
	_, err := r.client.Get(ctx, completedKey(sessionID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Failed to check completed session in redis", zap.Error(err), zap.String("sessionID", sessionID))
		}
		return false
	}
	return true
}

// Cleanup ничего не делает: Redis удаляет истекшие ключи самостоятельно.
func (r *redisCompletedRegistry) Cleanup(ctx context.Context) int {
	return 0
}
