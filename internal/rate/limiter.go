package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning parameters.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter enforces fixed-window request budgets per scoped key using Redis
// counters. Challenge requests are throttled per user and per caller IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one request for the scoped key and reports [ErrLimited] when
// the window budget is exhausted. Empty keys are not counted.
func (l *Limiter) Allow(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, throttleKey(scope, key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRequests) {
		return ErrLimited
	}

	return nil
}

// Reset clears the counter for the scoped key.
func (l *Limiter) Reset(ctx context.Context, scope, key string) error {
	if key == "" {
		return nil
	}
	if err := l.redis.Del(ctx, throttleKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Count returns the current counter for the scoped key. Missing keys return
// zero.
func (l *Limiter) Count(ctx context.Context, scope, key string) (int, error) {
	count, err := l.redis.Get(ctx, throttleKey(scope, key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func throttleKey(scope, key string) string {
	return "rl:" + scope + ":" + key
}
