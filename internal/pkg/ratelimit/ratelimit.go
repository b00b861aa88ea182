// Package ratelimit bounds the submission rate per authenticated player.
//
// The counter lives in Redis so every bot instance shares one view; keying
// by verified player id (never by network origin) means the limit cannot be
// dodged with proxies and is only consulted after signature verification.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a player may submit another result right now.
type Limiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

// Noop allows everything. Used when no Redis is configured.
type Noop struct{}

// Allow always permits the submission.
func (Noop) Allow(context.Context, int64) (bool, error) {
	return true, nil
}

// RedisLimiter is a fixed-window counter in Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New connects to Redis and returns a limiter allowing limit submissions
// per window per player.
func New(redisURL string, limit int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, limit, window), nil
}

// NewWithClient builds a limiter over an existing client (used by tests).
func NewWithClient(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments the player's counter for the current window and reports
// whether the limit is exceeded. The key expires with the window, so idle
// players cost nothing.
func (l *RedisLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("ratelimit:result:%d:%d", userID, bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to bump rate counter: %w", err)
	}

	return count.Val() <= int64(l.limit), nil
}

// Close closes the underlying Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
