// Package engine defines the adapter contract (C6) concrete adapters
// implement, plus the shared Standardize helper every adapter's
// ParseResponse output flows through on its way to schema.NormalizedResult.
package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/musicfed/aggregator/internal/schema"
)

// SearchParams carries the per-request knobs BuildRequest and ParseResponse
// need beyond the raw query string: pagination, a normalized time range,
// and the per-engine soft timeout.
type SearchParams struct {
	Query      string
	Page       int
	TimeRange  string // "day", "week", "month", "year", or "" for unbounded
	SoftTimeout time.Duration
}

// Adapter is the narrow interface every concrete engine implements: a
// descriptor plus the two request/response operations. There is deliberately no shared base struct — Standardize is
// a free function, not inherited behavior, so adapters stay values.
type Adapter interface {
	Descriptor() schema.EngineDescriptor
	BuildRequest(ctx context.Context, params SearchParams) (*http.Request, error)
	ParseResponse(resp *http.Response, params SearchParams) ([]schema.RawResult, error)
}

// RateLimitError is returned by ParseResponse when the engine's own HTTP
// response signals the caller has been throttled (429, or a
// platform-specific equivalent). The Dispatcher maps this to
// schema.StatusRateLimited instead of schema.StatusFailed.
type RateLimitError struct {
	Engine     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "engine " + e.Engine + " rate limited"
}
