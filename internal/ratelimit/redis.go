package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	client  *redis.Client
	logger  *slog.Logger
	prefix  string
	timeout time.Duration
}

// NewRedis returns a limiter shared across processes through Redis.
// It fails open: Redis errors are logged and the request is allowed.
func NewRedis(addr, password string, db int, logger *slog.Logger) (Limiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return newRedisLimiter(client, logger), nil
}

func newRedisLimiter(client *redis.Client, logger *slog.Logger) *redisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisLimiter{
		client:  client,
		logger:  logger,
		prefix:  "story:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

func (l *redisLimiter) Allow(key string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if win <= 0 {
		win = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	redisKey := l.prefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("redis rate limiter error", "op", "incr", "error", err)
		return Decision{Allowed: true}
	}

	// A fresh key, or one whose earlier EXPIRE failed, has no TTL yet.
	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := l.client.Expire(ctx, redisKey, win).Err(); err != nil {
			l.logger.Error("redis rate limiter error", "op", "expire", "error", err)
		}
		ttl = win
	}
	counter := int(incr.Val())
	return Decision{
		Allowed:   counter <= limit,
		Count:     counter,
		WindowEnd: time.Now().Add(ttl),
	}
}

func (l *redisLimiter) Close() {
	if l.client != nil {
		_ = l.client.Close()
	}
}
