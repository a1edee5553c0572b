// Package metrics provides scan and query metrics.
// Counters are kept as atomics for in-process snapshots and mirrored to
// Prometheus collectors for scraping.
package metrics

import (
	"sync/atomic"
	"time"
)

// Outcome is the terminal state of one gap-limit scan.
type Outcome string

// Scan outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Scan metrics
	scansStarted   atomic.Int64
	scansCompleted atomic.Int64
	scansFailed    atomic.Int64
	scansCanceled  atomic.Int64
	batchesTotal   atomic.Int64

	addressesChecked atomic.Int64
	addressesUsed    atomic.Int64

	// Query metrics
	queriesTotal      atomic.Int64
	queryErrorsTotal  atomic.Int64
	queryLatencyNanos atomic.Int64

	// Cache metrics
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordScanStart records the start of a gap-limit scan.
func (m *Metrics) RecordScanStart() {
	m.scansStarted.Add(1)
	scansStarted.Inc()
}

// RecordScanEnd records the outcome of a gap-limit scan.
// used and checked are only counted for completed scans.
func (m *Metrics) RecordScanEnd(outcome Outcome, used, checked int, duration time.Duration) {
	switch outcome {
	case OutcomeCompleted:
		m.scansCompleted.Add(1)
		m.addressesUsed.Add(int64(used))
		m.addressesChecked.Add(int64(checked))
		addressesChecked.Add(float64(checked))
		addressesUsed.Add(float64(used))
	case OutcomeFailed:
		m.scansFailed.Add(1)
	case OutcomeCanceled:
		m.scansCanceled.Add(1)
	}
	scansFinished.WithLabelValues(string(outcome)).Inc()
	scanDuration.Observe(duration.Seconds())
}

// RecordBatch records one query batch of size addresses.
func (m *Metrics) RecordBatch(size int) {
	m.batchesTotal.Add(1)
	batchSize.Observe(float64(size))
}

// RecordQuery records an oracle query with its duration and success status.
func (m *Metrics) RecordQuery(oracle string, duration time.Duration, err error) {
	m.queriesTotal.Add(1)
	m.queryLatencyNanos.Add(duration.Nanoseconds())

	result := "ok"
	if err != nil {
		m.queryErrorsTotal.Add(1)
		result = "error"
	}
	queriesTotal.WithLabelValues(oracle, result).Inc()
	queryLatency.WithLabelValues(oracle).Observe(duration.Seconds())
}

// RecordCacheHit records n cache hits.
func (m *Metrics) RecordCacheHit(n int) {
	m.cacheHits.Add(int64(n))
	cacheLookups.WithLabelValues("hit").Add(float64(n))
}

// RecordCacheMiss records n cache misses.
func (m *Metrics) RecordCacheMiss(n int) {
	m.cacheMisses.Add(int64(n))
	cacheLookups.WithLabelValues("miss").Add(float64(n))
}

// Snapshot returns a point-in-time copy of all metrics.
type Snapshot struct {
	ScansStarted      int64 `json:"scans_started"`
	ScansCompleted    int64 `json:"scans_completed"`
	ScansFailed       int64 `json:"scans_failed"`
	ScansCanceled     int64 `json:"scans_canceled"`
	BatchesTotal      int64 `json:"batches_total"`
	AddressesChecked  int64 `json:"addresses_checked"`
	AddressesUsed     int64 `json:"addresses_used"`
	QueriesTotal      int64 `json:"queries_total"`
	QueryErrorsTotal  int64 `json:"query_errors_total"`
	QueryLatencyNanos int64 `json:"query_latency_nanos"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ScansStarted:      m.scansStarted.Load(),
		ScansCompleted:    m.scansCompleted.Load(),
		ScansFailed:       m.scansFailed.Load(),
		ScansCanceled:     m.scansCanceled.Load(),
		BatchesTotal:      m.batchesTotal.Load(),
		AddressesChecked:  m.addressesChecked.Load(),
		AddressesUsed:     m.addressesUsed.Load(),
		QueriesTotal:      m.queriesTotal.Load(),
		QueryErrorsTotal:  m.queryErrorsTotal.Load(),
		QueryLatencyNanos: m.queryLatencyNanos.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
	}
}

// QueryLatencyAvgMs returns the average query latency in milliseconds.
// Returns 0 if no queries have been made.
func (m *Metrics) QueryLatencyAvgMs() float64 {
	calls := m.queriesTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.queryLatencyNanos.Load()) / float64(calls) / 1e6
}

// CacheHitRate returns the cache hit rate as a percentage (0-100).
// Returns 0 if no cache operations have occurred.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all counters to zero. Prometheus collectors are cumulative and
// are not reset.
func (m *Metrics) Reset() {
	m.scansStarted.Store(0)
	m.scansCompleted.Store(0)
	m.scansFailed.Store(0)
	m.scansCanceled.Store(0)
	m.batchesTotal.Store(0)
	m.addressesChecked.Store(0)
	m.addressesUsed.Store(0)
	m.queriesTotal.Store(0)
	m.queryErrorsTotal.Store(0)
	m.queryLatencyNanos.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
}
