package ratelimit

import (
	"context"
	"time"

	"github.com/musicfed/aggregator/internal/schema"
)

// EngineLimiter adapts Limiter to per-engine configuration, the Go
// equivalent of limiter.py's MultiEngineRateLimiter: each engine carries
// its own limit/period in its EngineDescriptor rather than a shared one.
type EngineLimiter struct {
	limiter *Limiter
}

func NewEngineLimiter(limiter *Limiter) *EngineLimiter {
	return &EngineLimiter{limiter: limiter}
}

// Acquire claims a token for the given engine descriptor. A descriptor with
// RateLimit <= 0 is treated as unthrottled.
func (e *EngineLimiter) Acquire(ctx context.Context, engine schema.EngineDescriptor) bool {
	if engine.RateLimit <= 0 {
		return true
	}
	period := engine.RatePeriod
	if period <= 0 {
		period = time.Minute
	}
	return e.limiter.Acquire(ctx, engine.Name, engine.RateLimit, period)
}

// AllStats reports remaining-token stats for every enabled engine, mirroring
// limiter.py's get_all_stats.
func (e *EngineLimiter) AllStats(ctx context.Context, engines []schema.EngineDescriptor) map[string]Remaining {
	stats := make(map[string]Remaining, len(engines))
	for _, eng := range engines {
		if !eng.Enabled || eng.RateLimit <= 0 {
			continue
		}
		period := eng.RatePeriod
		if period <= 0 {
			period = time.Minute
		}
		stats[eng.Name] = e.limiter.Remaining(ctx, eng.Name, eng.RateLimit, period)
	}
	return stats
}
