// Package memory provides the in-process quote cache used when no shared
// cache backend is configured.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	price    float64
	cachedAt time.Time
}

// QuoteCache is a TTL-bounded in-memory price cache. Entries past the TTL
// are reported as stale rather than dropped, so callers can fall back to a
// stale price when every live source is down.
type QuoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewQuoteCache creates a QuoteCache with the given freshness TTL.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached price for symbol. found reports whether any entry
// exists; fresh reports whether it is within the TTL.
func (c *QuoteCache) Get(_ context.Context, symbol string) (float64, bool, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return 0, false, false
	}
	fresh := c.now().Sub(e.cachedAt) < c.ttl
	return e.price, true, fresh
}

// Put stores a price for symbol, stamping it with the given time.
func (c *QuoteCache) Put(_ context.Context, symbol string, price float64, now time.Time) {
	c.mu.Lock()
	c.entries[symbol] = entry{price: price, cachedAt: now}
	c.mu.Unlock()
}

// Purge removes entries whose age exceeds maxAge and returns how many were
// dropped. Called periodically so abandoned symbols do not accumulate.
func (c *QuoteCache) Purge(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()
	var dropped int
	for sym, e := range c.entries {
		if e.cachedAt.Before(cutoff) {
			delete(c.entries, sym)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of cached entries, fresh or stale.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
