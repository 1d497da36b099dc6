package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(t *testing.T, clock *fakeClock, size int) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(WithMemoryMaxSize(size), WithMemoryClock(clock.now), WithMemoryCleanup(time.Hour))
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, &fakeClock{t: time.Now()}, 10)

	type state struct {
		Mid float64 `json:"mid"`
	}
	require.NoError(t, mc.Set(ctx, "state", state{Mid: 101.5}, time.Minute))

	var got state
	require.NoError(t, mc.Get(ctx, "state", &got))
	assert.Equal(t, 101.5, got.Mid)

	var s string
	require.NoError(t, mc.Set(ctx, "s", "plain", time.Minute))
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := newTestCache(t, clock, 10)

	require.NoError(t, mc.Set(ctx, "k", 1, time.Minute))
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := newTestCache(t, clock, 2)

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	clock.t = clock.t.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	clock.t = clock.t.Add(time.Second)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	clock.t = clock.t.Add(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "a")
	assert.True(t, ok)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := newTestCache(t, clock, 10)

	got, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, got)

	clock.t = clock.t.Add(2 * time.Minute)
	got, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, got, "expired lock is reclaimable")

	require.NoError(t, mc.Unlock(ctx, "lock"))
	got, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "state:latest", Key("state", "latest"))
}
