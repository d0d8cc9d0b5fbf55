package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingProvider struct {
	calls int
	pct   *float64
	err   error
}

func (m *countingProvider) SoilMoisture(_ context.Context, _, _ float64) (*float64, error) {
	m.calls++
	return m.pct, m.err
}

func pctPtr(v float64) *float64 { return &v }

// --- CachedProvider tests ---

func TestCachedProvider_CacheHit(t *testing.T) {
	inner := &countingProvider{pct: pctPtr(35.0)}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClockAt(testNow))

	r1, err := cached.SoilMoisture(context.Background(), 31.55, 74.35)
	require.NoError(t, err)
	require.NotNil(t, r1)
	assert.Equal(t, 35.0, *r1)

	r2, err := cached.SoilMoisture(context.Background(), 31.55, 74.35)
	require.NoError(t, err)
	require.NotNil(t, r2)
	assert.Equal(t, 35.0, *r2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedProvider_NearbyPointsShareEntry(t *testing.T) {
	inner := &countingProvider{pct: pctPtr(35.0)}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClockAt(testNow))

	_, _ = cached.SoilMoisture(context.Background(), 31.551, 74.352)
	_, _ = cached.SoilMoisture(context.Background(), 31.552, 74.351)

	assert.Equal(t, 1, inner.calls, "points rounding to the same key share one fetch")
}

func TestCachedProvider_DifferentPointsMiss(t *testing.T) {
	inner := &countingProvider{pct: pctPtr(35.0)}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClockAt(testNow))

	_, _ = cached.SoilMoisture(context.Background(), 31.55, 74.35)
	_, _ = cached.SoilMoisture(context.Background(), 30.20, 71.45)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_NilSignalNotCached(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClockAt(testNow))

	r, err := cached.SoilMoisture(context.Background(), 31.55, 74.35)
	require.NoError(t, err)
	assert.Nil(t, r)

	_, _ = cached.SoilMoisture(context.Background(), 31.55, 74.35)
	assert.Equal(t, 2, inner.calls, "no-signal responses must be retried")
}

func TestCachedProvider_ErrorNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("power api down")}
	cached := NewCachedProvider(inner, 10, time.Hour, clockwork.NewFakeClockAt(testNow))

	_, err := cached.SoilMoisture(context.Background(), 31.55, 74.35)
	require.Error(t, err)

	_, _ = cached.SoilMoisture(context.Background(), 31.55, 74.35)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ExpiryRefetches(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	inner := &countingProvider{pct: pctPtr(35.0)}
	cached := NewCachedProvider(inner, 10, time.Hour, clock)

	_, _ = cached.SoilMoisture(context.Background(), 31.55, 74.35)
	clock.Advance(2 * time.Hour)
	_, _ = cached.SoilMoisture(context.Background(), 31.55, 74.35)

	assert.Equal(t, 2, inner.calls, "expired entry must be refetched")
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3, time.Hour, clockwork.NewFakeClockAt(testNow))

	c.put("a", 1)
	c.put("b", 2)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2, time.Hour, clockwork.NewFakeClockAt(testNow))

	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2, time.Hour, clockwork.NewFakeClockAt(testNow))

	c.put("a", 1)
	c.put("b", 2)

	// Access "a" to promote it.
	c.get("a")

	// Inserting "c" evicts the least recently used "b", not "a".
	c.put("c", 3)

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2, time.Hour, clockwork.NewFakeClockAt(testNow))

	c.put("a", 1)
	c.put("a", 2)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}
