package querycache

import "sync/atomic"

// Metrics holds atomic counters for cache activity, mirroring the
// teacher's atomic-counter telemetry style without the persistence layer
// this cache has no use for.
type Metrics struct {
	hits              atomic.Int64
	misses            atomic.Int64
	totalQueries      atomic.Int64
	serviceNanosTotal atomic.Int64
}

// MetricsSnapshot is an immutable view of cache metrics at a point in time.
type MetricsSnapshot struct {
	Hits                int64
	Misses              int64
	TotalQueries        int64
	HitRate             float64
	AverageServiceNanos int64
}

func (m *Metrics) recordHit() {
	m.hits.Add(1)
	m.totalQueries.Add(1)
}

func (m *Metrics) recordMiss() {
	m.misses.Add(1)
	m.totalQueries.Add(1)
}

// Snapshot returns the current metrics, deriving hit rate and average
// service time from the raw counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()
	total := m.totalQueries.Load()
	serviceNanos := m.serviceNanosTotal.Load()

	snap := MetricsSnapshot{Hits: hits, Misses: misses, TotalQueries: total}
	if total > 0 {
		snap.HitRate = float64(hits) / float64(total)
		snap.AverageServiceNanos = serviceNanos / total
	}
	return snap
}
