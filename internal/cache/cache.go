// Package cache implements C4: a Redis-backed, optionally zlib-compressed,
// TTL-bounded cache for NormalizedResult batches keyed by engine+query.
package cache

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/musicfed/aggregator/internal/store"
)

const defaultKeyPrefix = "searxng_music"

// Config mirrors original_source/music/cache/music_cache.py's constructor
// dict: backend toggle, compression toggle, key prefix.
type Config struct {
	Enabled     bool
	Compression bool
	KeyPrefix   string
}

func DefaultConfig() Config {
	return Config{Enabled: true, Compression: true, KeyPrefix: defaultKeyPrefix}
}

// Stats reports the same shape music_cache.py's get_stats returns. Hits,
// Misses and HitRatio come from counters this Cache itself keeps;
// UsedMemory comes from Redis's INFO memory section and TotalKeys from the
// number of keys under this cache's prefix.
type Stats struct {
	Enabled     bool
	Hits        int64
	Misses      int64
	HitRatio    float64
	UsedMemory  string
	TotalKeys   int64
}

// Cache wraps a store.RedisClient with key-prefix scoping, zlib compression,
// and hit/miss counters, the way music_cache.py wraps a raw redis.Redis.
type Cache struct {
	redis  *store.RedisClient
	cfg    Config
	hits   atomic.Int64
	misses atomic.Int64
}

func New(redisClient *store.RedisClient, cfg Config) *Cache {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &Cache{redis: redisClient, cfg: cfg}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:%s", c.cfg.KeyPrefix, key)
}

// Get returns the cached value for key, or ("", false) on a miss. A Redis
// error is logged and treated as a miss (fail open), matching
// music_cache.py's get().
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if !c.cfg.Enabled || c.redis == nil {
		return "", false
	}

	raw, err := c.redis.Client.Get(ctx, c.fullKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[CACHE] get failed for key %s: %v", key, err)
		}
		c.misses.Add(1)
		return "", false
	}

	value := raw
	if c.cfg.Compression {
		if decompressed, derr := decompress(raw); derr == nil {
			value = decompressed
		}
		// if decompression fails, the value might not have been compressed
		// (written before compression was enabled) — fall through with raw.
	}

	c.hits.Add(1)
	return string(value), true
}

// SetWithTTL stores value under key for the given duration, compressing it
// first if compression is enabled. Failures are logged and swallowed —
// a cache-set failure must never fail the search that produced the value.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) {
	if !c.cfg.Enabled || c.redis == nil {
		return
	}

	payload := []byte(value)
	if c.cfg.Compression {
		compressed, err := compress(payload)
		if err == nil {
			payload = compressed
		}
	}

	if err := c.redis.Client.Set(ctx, c.fullKey(key), payload, ttl).Err(); err != nil {
		log.Printf("[CACHE] set failed for key %s: %v", key, err)
	}
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.cfg.Enabled || c.redis == nil {
		return nil
	}
	if err := c.redis.Client.Del(ctx, c.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ClearPrefix deletes every key matching pattern under this cache's key
// prefix, mirroring music_cache.py's clear_pattern. pattern uses Redis glob
// syntax ("engine:discogs:*").
func (c *Cache) ClearPrefix(ctx context.Context, pattern string) (int64, error) {
	if !c.cfg.Enabled || c.redis == nil {
		return 0, nil
	}

	fullPattern := c.fullKey(pattern)
	keys, err := c.redis.Client.Keys(ctx, fullPattern).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := c.redis.Client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return deleted, nil
}

// Stats reports cumulative hit/miss counters for this process plus a
// snapshot of Redis's own memory/key counts.
func (c *Cache) Stats(ctx context.Context) Stats {
	if !c.cfg.Enabled || c.redis == nil {
		return Stats{Enabled: false}
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	stats := Stats{Enabled: true, Hits: hits, Misses: misses}
	total := hits + misses
	if total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}

	info, err := c.redis.Client.Info(ctx, "memory").Result()
	if err != nil {
		log.Printf("[CACHE] stats unavailable: %v", err)
		return stats
	}
	stats.UsedMemory = parseInfoField(info, "used_memory_human")

	if keys, err := c.redis.Client.Keys(ctx, c.fullKey("*")).Result(); err == nil {
		stats.TotalKeys = int64(len(keys))
	}

	return stats
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func parseInfoField(info, field string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, field+":") {
			return strings.TrimPrefix(line, field+":")
		}
	}
	return "N/A"
}
