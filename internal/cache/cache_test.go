package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	hits, misses map[string]int
}

func (o *countingObserver) CacheHit(name string)  { o.hits[name]++ }
func (o *countingObserver) CacheMiss(name string) { o.misses[name]++ }

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 27, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore[[]int]()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "NVDA:2025-01-27", []int{1, 2}, time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []int{3}, 0))

	v, err := store.Get(ctx, "NVDA:2025-01-27")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)

	now = now.Add(time.Hour + time.Second)

	_, err = store.Get(ctx, "NVDA:2025-01-27")
	assert.True(t, errors.Is(err, ErrMiss))
	assert.Equal(t, 1, store.Len(), "expired entry is evicted on read")

	v, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, v)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[string]()
	_ = store.Set(ctx, "a", "1", time.Minute)
	_ = store.Set(ctx, "b", "2", time.Minute)

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, store.Len())

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestWithObserver(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
	store := WithObserver[string](NewMemoryStore[string](), "prices", obs)

	_, _ = store.Get(ctx, "x")
	_ = store.Set(ctx, "x", "y", time.Minute)
	v, err := store.Get(ctx, "x")

	require.NoError(t, err)
	assert.Equal(t, "y", v)
	assert.Equal(t, 1, obs.hits["prices"])
	assert.Equal(t, 1, obs.misses["prices"])

	plain := NewMemoryStore[string]()
	assert.Same(t, plain, WithObserver[string](plain, "prices", nil))
}

// TestRedisStore needs a live server: TRUTHLINE_TEST_REDIS=localhost:6379
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TRUTHLINE_TEST_REDIS")
	if addr == "" {
		t.Skip("TRUTHLINE_TEST_REDIS not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	type payload struct {
		Ticker string  `json:"ticker"`
		Close  float64 `json:"close"`
	}

	store := NewRedisStore[payload](client, "truthline-test", "prices")
	require.NoError(t, store.Clear(ctx))

	_, err = store.Get(ctx, "NVDA")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "NVDA", payload{"NVDA", 131.5}, time.Minute))
	got, err := store.Get(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, payload{"NVDA", 131.5}, got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Get(ctx, "NVDA")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStoreKeys(t *testing.T) {
	store := NewRedisStore[int](nil, "truthline", "truth")
	assert.Equal(t, "truthline:truth:NVDA", store.wrapKey("NVDA"))
}
