package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutThenGetHits(t *testing.T) {
	c := New[string](DefaultConfig())
	defer c.Close()

	key := NewKey("hello world", "literal", nil, nil, 10, 0)
	c.Put(key, "hello world", "cached response")

	value, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "cached response", value)

	snap := c.Metrics()
	assert.Equal(t, int64(1), snap.Hits)
	assert.Equal(t, int64(1), snap.TotalQueries)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c := New[string](DefaultConfig())
	defer c.Close()

	_, ok := c.Get(NewKey("nope", "literal", nil, nil, 10, 0))
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Metrics().Misses)
}

func TestCacheDoesNotAdmitShortQueries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinQueryLength = 3
	c := New[string](cfg)
	defer c.Close()

	key := NewKey("ab", "literal", nil, nil, 10, 0)
	c.Put(key, "ab", "should not be stored")

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = 10 * time.Millisecond
	cfg.SweepInterval = 0
	c := New[string](cfg)
	defer c.Close()

	key := NewKey("expiring query", "literal", nil, nil, 10, 0)
	c.Put(key, "expiring query", "value")

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheEvictsOldestLastAccessedWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 2
	c := New[string](cfg)
	defer c.Close()

	keyA := NewKey("a query", "literal", nil, nil, 10, 0)
	keyB := NewKey("b query", "literal", nil, nil, 10, 0)
	keyC := NewKey("c query", "literal", nil, nil, 10, 0)

	c.Put(keyA, "a query", "a")
	c.Put(keyB, "b query", "b")

	// Touch A so it is more recently accessed than B.
	_, _ = c.Get(keyA)

	c.Put(keyC, "c query", "c")

	_, okB := c.Get(keyB)
	_, okA := c.Get(keyA)
	_, okC := c.Get(keyC)
	assert.False(t, okB, "b should have been evicted as the oldest-accessed entry")
	assert.True(t, okA)
	assert.True(t, okC)
}

func TestCacheClearRemovesEverything(t *testing.T) {
	c := New[string](DefaultConfig())
	defer c.Close()

	key := NewKey("clearable", "literal", nil, nil, 10, 0)
	c.Put(key, "clearable", "value")
	c.Clear()

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheInvalidatePatternRemovesMatchingEntries(t *testing.T) {
	c := New[string](DefaultConfig())
	defer c.Close()

	keyAuth := NewKey("authenticate user", "literal", nil, nil, 10, 0)
	keyOther := NewKey("parse config", "literal", nil, nil, 10, 0)
	c.Put(keyAuth, "authenticate user", "auth result")
	c.Put(keyOther, "parse config", "config result")

	removed := c.InvalidatePattern("auth")
	assert.Equal(t, 1, removed)

	_, okAuth := c.Get(keyAuth)
	_, okOther := c.Get(keyOther)
	assert.False(t, okAuth)
	assert.True(t, okOther)
}

func TestCacheKeyDistinguishesFiltersAndPagination(t *testing.T) {
	base := NewKey("query", "literal", []string{"repoA"}, nil, 10, 0)
	differentRepo := NewKey("query", "literal", []string{"repoB"}, nil, 10, 0)
	differentOffset := NewKey("query", "literal", []string{"repoA"}, nil, 10, 10)
	sameAgain := NewKey("query", "literal", []string{"repoA"}, nil, 10, 0)

	assert.NotEqual(t, base, differentRepo)
	assert.NotEqual(t, base, differentOffset)
	assert.Equal(t, base, sameAgain)
}

func TestCacheObserveAccumulatesServiceTime(t *testing.T) {
	c := New[string](DefaultConfig())
	defer c.Close()

	c.Observe(10 * time.Millisecond)
	c.Observe(20 * time.Millisecond)

	key := NewKey("query", "literal", nil, nil, 10, 0)
	c.Put(key, "query", "v")
	_, _ = c.Get(key) // one query recorded

	snap := c.Metrics()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Greater(t, snap.AverageServiceNanos, int64(0))
}
