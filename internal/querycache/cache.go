package querycache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Config tunes cache capacity, expiry, and admission.
type Config struct {
	Capacity       int           // max entries before oldest-last-accessed eviction (default 10000)
	TTL            time.Duration // entry lifetime (default 5m)
	MinQueryLength int           // queries shorter than this are never cached (default 2)
	SweepInterval  time.Duration // background expired-entry sweep cadence (default 1m, 0 disables)
}

// DefaultConfig returns the cache's documented defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:       10000,
		TTL:            5 * time.Minute,
		MinQueryLength: 2,
		SweepInterval:  time.Minute,
	}
}

type entry[T any] struct {
	key          Key
	queryText    string
	value        T
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	expiresAt    time.Time
}

// Cache is a bounded, TTL-governed map from Key to a cached value of type T.
// Eviction on a full cache removes the entry with the oldest last-access
// time; this is the same intrusive doubly-linked access-order list
// golang-lru uses internally, hand-rolled because this cache also needs
// per-entry expiry (a fixed TTL from the last Put; Get does not extend it)
// and substring pattern invalidation that a plain LRU cache doesn't expose.
type Cache[T any] struct {
	cfg Config

	mu      sync.Mutex
	entries map[Key]*list.Element // element.Value is *entry[T]
	order   *list.List            // front = most recently accessed

	metrics Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// New creates a cache with the given configuration, starting a background
// sweep goroutine when cfg.SweepInterval > 0.
func New[T any](cfg Config) *Cache[T] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.MinQueryLength < 0 {
		cfg.MinQueryLength = DefaultConfig().MinQueryLength
	}

	c := &Cache[T]{
		cfg:     cfg,
		entries: make(map[Key]*list.Element),
		order:   list.New(),
		stopCh:  make(chan struct{}),
	}

	if cfg.SweepInterval > 0 {
		c.ticker = time.NewTicker(cfg.SweepInterval)
		go c.sweepLoop()
	}

	return c
}

func (c *Cache[T]) sweepLoop() {
	for {
		select {
		case <-c.ticker.C:
			c.sweepExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[T]) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []*list.Element
	for e := c.order.Back(); e != nil; e = e.Prev() {
		if now.After(e.Value.(*entry[T]).expiresAt) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.removeElement(e)
	}
}

// Get looks up key, returning the cached value and true on a live hit. A
// hit whose entry has expired is treated as a miss and evicted. Every call
// increments the total-queries counter plus the hit or miss counter.
func (c *Cache[T]) Get(key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.entries[key]
	if !ok {
		c.metrics.recordMiss()
		return zero, false
	}

	ent := elem.Value.(*entry[T])
	if time.Now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.metrics.recordMiss()
		return zero, false
	}

	ent.lastAccessed = time.Now()
	ent.accessCount++
	c.order.MoveToFront(elem)
	c.metrics.recordHit()
	return ent.value, true
}

// Put admits a value into the cache under key, unless queryText is shorter
// than the configured minimum query length. Inserting into a full cache
// evicts the single oldest-last-accessed entry first.
func (c *Cache[T]) Put(key Key, queryText string, value T) {
	if len(queryText) < c.cfg.MinQueryLength {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[T])
		ent.value = value
		ent.queryText = queryText
		ent.lastAccessed = now
		ent.expiresAt = now.Add(c.cfg.TTL)
		c.order.MoveToFront(elem)
		return
	}

	if len(c.entries) >= c.cfg.Capacity {
		c.evictOldest()
	}

	ent := &entry[T]{
		key: key, queryText: queryText, value: value,
		createdAt: now, lastAccessed: now, expiresAt: now.Add(c.cfg.TTL),
	}
	elem := c.order.PushFront(ent)
	c.entries[key] = elem
}

// evictOldest removes the entry with the oldest last-access time. Because
// every access moves its element to the front, the back of the list is
// always the least-recently-accessed entry.
func (c *Cache[T]) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.removeElement(back)
}

func (c *Cache[T]) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry[T])
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*list.Element)
	c.order = list.New()
}

// InvalidatePattern evicts every entry whose original query text contains
// substr, returning the number of entries removed.
func (c *Cache[T]) InvalidatePattern(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []*list.Element
	for e := c.order.Front(); e != nil; e = e.Next() {
		if strings.Contains(e.Value.(*entry[T]).queryText, substr) {
			matched = append(matched, e)
		}
	}
	for _, e := range matched {
		c.removeElement(e)
	}
	return len(matched)
}

// Observe adds a query's service time to the cumulative total used to
// derive the average service time, regardless of whether it was a hit or
// a miss.
func (c *Cache[T]) Observe(elapsed time.Duration) {
	c.metrics.serviceNanosTotal.Add(elapsed.Nanoseconds())
}

// Metrics returns a snapshot of cache activity counters.
func (c *Cache[T]) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Len returns the current number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweep goroutine. Safe to call more than once.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.stopCh)
}
