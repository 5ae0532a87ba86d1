package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicfed/aggregator/internal/store"
)

var testRedis *store.RedisClient

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")

	var err error
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/1"
	}

	fmt.Printf("Connecting to Redis at %s...\n", redisURL)
	testRedis, err = store.NewRedisConnection(redisURL)
	if err != nil {
		fmt.Printf("Warning: Could not connect to Redis: %v\n", err)
		fmt.Println("Some tests will be skipped")
	}

	code := m.Run()

	if testRedis != nil {
		ctx := context.Background()
		testRedis.Client.FlushDB(ctx)
		testRedis.Close()
	}

	os.Exit(code)
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	ctx := context.Background()

	c.SetWithTTL(ctx, "round-trip", `{"title":"Test"}`, time.Minute)

	value, ok := c.Get(ctx, "round-trip")
	require.True(t, ok)
	assert.Equal(t, `{"title":"Test"}`, value)
}

func TestCache_Miss(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	_, ok := c.Get(context.Background(), "does-not-exist")
	assert.False(t, ok)
}

func TestCache_UncompressedValueStillReadable(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	ctx := context.Background()

	// Write directly through the raw client, bypassing Cache's compression,
	// to simulate a value written before compression was enabled.
	require.NoError(t, testRedis.Client.Set(ctx, c.fullKey("legacy"), "plain-value", time.Minute).Err())

	value, ok := c.Get(ctx, "legacy")
	require.True(t, ok)
	assert.Equal(t, "plain-value", value)
}

func TestCache_Delete(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	ctx := context.Background()

	c.SetWithTTL(ctx, "to-delete", "value", time.Minute)
	require.NoError(t, c.Delete(ctx, "to-delete"))

	_, ok := c.Get(ctx, "to-delete")
	assert.False(t, ok)
}

func TestCache_ClearPrefix(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	ctx := context.Background()

	c.SetWithTTL(ctx, "engine:discogs:q1", "a", time.Minute)
	c.SetWithTTL(ctx, "engine:discogs:q2", "b", time.Minute)
	c.SetWithTTL(ctx, "engine:spotify:q1", "c", time.Minute)

	deleted, err := c.ClearPrefix(ctx, "engine:discogs:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, ok := c.Get(ctx, "engine:spotify:q1")
	assert.True(t, ok)
}

func TestCache_DisabledIsNoop(t *testing.T) {
	c := New(nil, Config{Enabled: false})
	ctx := context.Background()

	c.SetWithTTL(ctx, "key", "value", time.Minute)
	_, ok := c.Get(ctx, "key")
	assert.False(t, ok)

	stats := c.Stats(ctx)
	assert.False(t, stats.Enabled)
}

func TestCache_Stats(t *testing.T) {
	if testRedis == nil {
		t.Skip("Redis not available")
	}

	c := New(testRedis, DefaultConfig())
	ctx := context.Background()

	c.SetWithTTL(ctx, "stats-key", "value", time.Minute)
	c.Get(ctx, "stats-key")
	c.Get(ctx, "missing-key")

	stats := c.Stats(ctx)
	assert.True(t, stats.Enabled)
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
	assert.GreaterOrEqual(t, stats.Misses, int64(1))
}
