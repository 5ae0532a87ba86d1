// Package ratelimit implements C5: a distributed token-bucket rate limiter
// over Redis sorted sets, one bucket per identifier (engine name).
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/musicfed/aggregator/internal/store"
)

const keyPrefix = "ratelimit"

// Limiter is a sliding-window token bucket keyed by an arbitrary identifier,
// ported from original_source/music/rate_limiter/limiter.py's RateLimiter.
type Limiter struct {
	redis *store.RedisClient
}

func New(redisClient *store.RedisClient) *Limiter {
	return &Limiter{redis: redisClient}
}

func (l *Limiter) key(identifier string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, identifier)
}

// Acquire tries to claim one token for identifier within the sliding window
// of period seconds capped at limit requests. On any Redis error it fails
// open — the request is allowed through and the error logged, matching
// limiter.py's behavior, because a rate limiter outage should never be the
// reason a search fails outright.
func (l *Limiter) Acquire(ctx context.Context, identifier string, limit int, period time.Duration) bool {
	key := l.key(identifier)
	now := time.Now().Unix()
	windowStart := now - int64(period.Seconds())

	pipe := l.redis.Client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[RATELIMIT] acquire failed for %s: %v", identifier, err)
		return true
	}

	if countCmd.Val() >= int64(limit) {
		return false
	}

	member := fmt.Sprintf("%d-%d", now, countCmd.Val())
	if err := l.redis.Client.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member}).Err(); err != nil {
		log.Printf("[RATELIMIT] zadd failed for %s: %v", identifier, err)
		return true
	}
	l.redis.Client.Expire(ctx, key, period+time.Second)

	return true
}

// Remaining mirrors limiter.py's get_remaining: current remaining token
// count plus the unix time the oldest entry falls out of the window.
type Remaining struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
	HasReset  bool
}

func (l *Limiter) Remaining(ctx context.Context, identifier string, limit int, period time.Duration) Remaining {
	key := l.key(identifier)
	now := time.Now().Unix()
	windowStart := now - int64(period.Seconds())

	if err := l.redis.Client.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart)).Err(); err != nil {
		log.Printf("[RATELIMIT] remaining cleanup failed for %s: %v", identifier, err)
		return Remaining{Remaining: limit, Limit: limit}
	}

	count, err := l.redis.Client.ZCard(ctx, key).Result()
	if err != nil {
		log.Printf("[RATELIMIT] zcard failed for %s: %v", identifier, err)
		return Remaining{Remaining: limit, Limit: limit}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	result := Remaining{Remaining: remaining, Limit: limit}

	oldest, err := l.redis.Client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		oldestAt := int64(oldest[0].Score)
		result.ResetAt = time.Unix(oldestAt+int64(period.Seconds()), 0)
		result.HasReset = true
	}

	return result
}

// Reset clears the bucket for identifier entirely.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Client.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("ratelimit reset failed: %w", err)
	}
	return nil
}
