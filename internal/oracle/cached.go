package oracle

import (
	"context"
	"time"

	"github.com/mrz1836/hdscan/internal/cache"
	"github.com/mrz1836/hdscan/internal/discovery"
	"github.com/mrz1836/hdscan/internal/metrics"
)

// Cached answers from an activity cache where possible and forwards only
// the misses to the wrapped querier. Answers from the inner querier are
// stored for later scans.
type Cached struct {
	inner     discovery.Querier
	cache     cache.Cache
	network   string
	staleness time.Duration
	metrics   *metrics.Metrics
}

// NewCached wraps inner with c, keying entries by network. A non-positive
// staleness uses cache.DefaultStaleness; a nil m disables metrics.
func NewCached(inner discovery.Querier, c cache.Cache, network string, staleness time.Duration, m *metrics.Metrics) *Cached {
	if staleness <= 0 {
		staleness = cache.DefaultStaleness
	}
	return &Cached{inner: inner, cache: c, network: network, staleness: staleness, metrics: m}
}

// Query implements discovery.Querier.
func (c *Cached) Query(ctx context.Context, batch []string, reply discovery.Reply) {
	result := make(map[string]bool, len(batch))
	misses := make([]string, 0, len(batch))
	for _, addr := range batch {
		used, ok := c.cache.Lookup(c.network, addr, c.staleness)
		if !ok {
			misses = append(misses, addr)
			continue
		}
		if used {
			result[addr] = true
		}
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit(len(batch) - len(misses))
		c.metrics.RecordCacheMiss(len(misses))
	}

	if len(misses) == 0 {
		reply(result, nil)
		return
	}

	c.inner.Query(ctx, misses, func(inner any, err error) {
		if err != nil {
			reply(nil, err)
			return
		}
		isUsed, err := discovery.UsedSet(inner)
		if err != nil {
			reply(nil, err)
			return
		}

		for _, addr := range misses {
			used := isUsed(addr)
			c.cache.Set(cache.ActivityEntry{Network: c.network, Address: addr, Used: used})
			if used {
				result[addr] = true
			}
		}
		reply(result, nil)
	})
}
