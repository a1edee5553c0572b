// Package cache provides address activity caching.
//
// Used addresses stay used forever, so used entries never go stale. Unused
// entries expire after a staleness window because an address can gain
// activity at any time.
package cache

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// DefaultStaleness is the default duration after which unused entries are
// considered stale.
const DefaultStaleness = 5 * time.Minute

// Cache defines the interface for address activity caching operations.
type Cache interface {
	// Get retrieves a cached activity entry.
	Get(network, address string) (*ActivityEntry, bool, time.Duration)

	// Set stores an activity entry in the cache.
	Set(entry ActivityEntry)

	// Lookup returns whether address is known used, and whether the answer is
	// fresh enough to trust.
	Lookup(network, address string, staleness time.Duration) (used, ok bool)

	// Delete removes a cache entry.
	Delete(network, address string)

	// Clear removes all cache entries.
	Clear()

	// Size returns the number of cache entries.
	Size() int

	// Prune removes unused entries older than maxAge.
	Prune(maxAge time.Duration) int
}

// Compile-time interface check
var _ Cache = (*ActivityCache)(nil)

// ActivityCache stores cached address activity.
type ActivityCache struct {
	mu      sync.RWMutex             `json:"-"`
	clock   clock.Clock
	Entries map[string]ActivityEntry `json:"entries"`
}

// ActivityEntry is the cached activity of one address.
type ActivityEntry struct {
	Network   string    `json:"network"`
	Address   string    `json:"address"`
	Used      bool      `json:"used"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewActivityCache creates a new empty activity cache using the system clock.
func NewActivityCache() *ActivityCache {
	return NewActivityCacheWithClock(clock.NewDefaultClock())
}

// NewActivityCacheWithClock creates a new empty activity cache using clk.
func NewActivityCacheWithClock(clk clock.Clock) *ActivityCache {
	return &ActivityCache{
		clock:   clk,
		Entries: make(map[string]ActivityEntry),
	}
}

// SetClock replaces the clock, e.g. after loading from disk.
func (c *ActivityCache) SetClock(clk clock.Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clk
}

func (c *ActivityCache) now() time.Time {
	if c.clock == nil {
		return time.Now()
	}
	return c.clock.Now()
}

// Key generates a cache key for an address on a network.
func Key(network, address string) string {
	return network + ":" + address
}

// Get retrieves a cached entry.
// Returns the entry, whether it exists, and its age.
func (c *ActivityCache) Get(network, address string) (*ActivityEntry, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.Entries[Key(network, address)]
	if !exists {
		return nil, false, 0
	}
	return &entry, true, c.now().Sub(entry.UpdatedAt)
}

// Set stores an entry in the cache. A used entry is never downgraded to
// unused.
func (c *ActivityCache) Set(entry ActivityEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(entry.Network, entry.Address)
	if prev, ok := c.Entries[key]; ok && prev.Used && !entry.Used {
		return
	}
	entry.UpdatedAt = c.now()
	c.Entries[key] = entry
}

// Lookup returns a cached answer. Used entries are always trusted; unused
// entries are trusted while younger than staleness.
func (c *ActivityCache) Lookup(network, address string, staleness time.Duration) (used, ok bool) {
	entry, exists, age := c.Get(network, address)
	switch {
	case !exists:
		return false, false
	case entry.Used:
		return true, true
	default:
		return false, age <= staleness
	}
}

// Delete removes a cache entry.
func (c *ActivityCache) Delete(network, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.Entries, Key(network, address))
}

// Clear removes all cache entries.
func (c *ActivityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Entries = make(map[string]ActivityEntry)
}

// Size returns the number of cache entries.
func (c *ActivityCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.Entries)
}

// UsedAddresses returns the cached used addresses for a network.
func (c *ActivityCache) UsedAddresses(network string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, entry := range c.Entries {
		if entry.Network == network && entry.Used {
			out = append(out, entry.Address)
		}
	}
	return out
}

// Prune removes unused entries older than maxAge. Used entries are kept.
func (c *ActivityCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.now().Add(-maxAge)

	for key, entry := range c.Entries {
		if !entry.Used && entry.UpdatedAt.Before(cutoff) {
			delete(c.Entries, key)
			removed++
		}
	}

	return removed
}
