// Package dispatch implements C8: the concurrency core that fans a query
// out to every resolved engine adapter, one goroutine per engine, and
// aggregates whatever completes before the overall deadline.
package dispatch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/musicfed/aggregator/internal/cache"
	"github.com/musicfed/aggregator/internal/classify"
	"github.com/musicfed/aggregator/internal/engine"
	"github.com/musicfed/aggregator/internal/ratelimit"
	"github.com/musicfed/aggregator/internal/registry"
	"github.com/musicfed/aggregator/internal/schema"
	"github.com/musicfed/aggregator/internal/validate"
)

const (
	DefaultOverallDeadline = 15 * time.Second
	DefaultSoftTimeout     = 10 * time.Second

	// maxConcurrentFetches bounds how many engine HTTP round-trips run at
	// once, independent of how many engines a request resolves to — with
	// 20+ adapters fanning out on every query, an unbounded goroutine-per-
	// engine burst would open more sockets than a well-behaved client should.
	maxConcurrentFetches = 16
)

// Config carries the tunables §5 calls out as configurable.
type Config struct {
	OverallDeadline time.Duration
	SoftTimeout     time.Duration
	AllowedTypes    []schema.ContentType
}

func DefaultConfig() Config {
	return Config{OverallDeadline: DefaultOverallDeadline, SoftTimeout: DefaultSoftTimeout}
}

// Dispatcher wires the Registry, Cache, and rate limiter together into the
// per-request fan-out described in spec.md §4.4.
type Dispatcher struct {
	registry *registry.Registry
	cache    *cache.Cache
	limiter  *ratelimit.EngineLimiter
	client   *http.Client
	cfg      Config
	sem      *semaphore.Weighted
}

func New(reg *registry.Registry, c *cache.Cache, limiter *ratelimit.EngineLimiter, client *http.Client, cfg Config) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.OverallDeadline <= 0 {
		cfg.OverallDeadline = DefaultOverallDeadline
	}
	if cfg.SoftTimeout <= 0 {
		cfg.SoftTimeout = DefaultSoftTimeout
	}
	return &Dispatcher{registry: reg, cache: c, limiter: limiter, client: client, cfg: cfg, sem: semaphore.NewWeighted(maxConcurrentFetches)}
}

// Request is a single search's parameters, after Phase A validation has
// already run on Query and Engines.
type Request struct {
	Query   string
	Engines []string
	Page    int
}

// Response is what the Dispatcher hands back: the aggregated, classified,
// filtered result list plus a per-engine outcome map.
type Response struct {
	Query           string
	TotalQueried    int
	ElapsedMs       int64
	Results         []schema.NormalizedResult
	PerEngineStatus map[string]schema.EngineStatus
}

type workerOutcome struct {
	engine  string
	status  schema.EngineStatus
	results []schema.NormalizedResult
}

// Dispatch runs the full per-engine fan-out and returns whatever completed
// before cfg.OverallDeadline elapses. It never blocks past the deadline:
// workers still running at that point are canceled and their partial work
// discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	normalized := validate.NormalizeQuery(req.Query)
	descriptors := d.registry.Resolve(req.Engines)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.OverallDeadline)
	defer cancel()

	started := time.Now()
	outcomes := make(chan workerOutcome, len(descriptors))

	var wg sync.WaitGroup
	for _, desc := range descriptors {
		adapter, ok := d.registry.Adapter(desc.Name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(desc schema.EngineDescriptor, adapter engine.Adapter) {
			defer wg.Done()
			outcomes <- d.runWorker(ctx, desc, adapter, normalized, req.Page)
		}(desc, adapter)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	statusMap := make(map[string]schema.EngineStatus, len(descriptors))
	var aggregated []schema.NormalizedResult

drain:
	for {
		select {
		case outcome, open := <-outcomes:
			if !open {
				break drain
			}
			statusMap[outcome.engine] = outcome.status
			aggregated = append(aggregated, outcome.results...)
		case <-ctx.Done():
			// Deadline elapsed. Any worker still holding the channel open
			// loses its slot in statusMap/aggregated — its own goroutine is
			// still canceled via ctx and will exit on its own.
			for _, desc := range descriptors {
				if _, seen := statusMap[desc.Name]; !seen {
					statusMap[desc.Name] = schema.StatusTimeout
				}
			}
			break drain
		}
	}

	filtered := classify.FilterResults(aggregated, d.cfg.AllowedTypes)

	return &Response{
		Query:           normalized,
		TotalQueried:    len(descriptors),
		ElapsedMs:       time.Since(started).Milliseconds(),
		Results:         filtered,
		PerEngineStatus: statusMap,
	}, nil
}

// runWorker executes one engine's cache-check / rate-limit / fetch / parse /
// sanitize / normalize pipeline. It never returns an error: every failure
// mode is folded into a workerOutcome status so one bad engine can't sink
// the others.
func (d *Dispatcher) runWorker(ctx context.Context, desc schema.EngineDescriptor, adapter engine.Adapter, query string, page int) workerOutcome {
	if !desc.Enabled {
		return workerOutcome{engine: desc.Name, status: schema.StatusDisabled}
	}

	cacheKey := d.cacheKey(desc.Name, query, page)

	if d.cache != nil {
		if cached, hit := d.cache.Get(ctx, cacheKey); hit {
			var results []schema.NormalizedResult
			if err := json.Unmarshal([]byte(cached), &results); err == nil {
				return workerOutcome{engine: desc.Name, status: schema.StatusCacheHit, results: results}
			}
			log.Printf("[DISPATCH] %s: corrupted cache value, treating as miss", desc.Name)
		}
	}

	if d.limiter != nil && !d.limiter.Acquire(ctx, desc) {
		return workerOutcome{engine: desc.Name, status: schema.StatusRateLimited}
	}

	softTimeout := desc.DefaultTimeout
	if softTimeout <= 0 {
		softTimeout = d.cfg.SoftTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, softTimeout)
	defer cancel()

	httpReq, err := adapter.BuildRequest(reqCtx, engine.SearchParams{Query: query, Page: page, SoftTimeout: softTimeout})
	if err != nil {
		log.Printf("[DISPATCH] %s: build request failed: %v", desc.Name, err)
		return workerOutcome{engine: desc.Name, status: schema.StatusFailed}
	}

	if d.sem != nil {
		if err := d.sem.Acquire(reqCtx, 1); err != nil {
			return workerOutcome{engine: desc.Name, status: schema.StatusTimeout}
		}
		defer d.sem.Release(1)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || reqCtx.Err() != nil {
			return workerOutcome{engine: desc.Name, status: schema.StatusTimeout}
		}
		log.Printf("[DISPATCH] %s: http call failed: %v", desc.Name, err)
		return workerOutcome{engine: desc.Name, status: schema.StatusFailed}
	}
	defer resp.Body.Close()

	raw, err := adapter.ParseResponse(resp, engine.SearchParams{Query: query, Page: page})
	if err != nil {
		var rlErr *engine.RateLimitError
		if asRateLimitError(err, &rlErr) {
			return workerOutcome{engine: desc.Name, status: schema.StatusRateLimited}
		}
		log.Printf("[DISPATCH] %s: parse response failed: %v", desc.Name, err)
		return workerOutcome{engine: desc.Name, status: schema.StatusFailed}
	}

	normalized := make([]schema.NormalizedResult, 0, len(raw))
	for _, r := range raw {
		sanitized := validate.SanitizeResult(r)
		normalized = append(normalized, engine.Standardize(sanitized, desc.Name))
	}

	if d.cache != nil {
		if payload, err := json.Marshal(normalized); err == nil {
			ttl := desc.CacheTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			d.cache.SetWithTTL(ctx, cacheKey, string(payload), ttl)
		}
	}

	return workerOutcome{engine: desc.Name, status: schema.StatusCompleted, results: normalized}
}

func (d *Dispatcher) cacheKey(engineName, query string, page int) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s:%d", query, page)))
	return fmt.Sprintf("music:search:%s:%s", engineName, hex.EncodeToString(h[:]))
}

func asRateLimitError(err error, target **engine.RateLimitError) bool {
	rl, ok := err.(*engine.RateLimitError)
	if ok {
		*target = rl
	}
	return ok
}
