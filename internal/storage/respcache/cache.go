// Package respcache keeps previously rendered responses for replay.
//
// Entries are immutable and replaced whole. Load does not check expiry;
// callers apply their own staleness policy and expired entries disappear on
// the periodic sweep driven by Maintain.
package respcache

import (
	"sync"
	"time"

	"github.com/yndnr/kkmgate/internal/core/domain"
)

// DefaultCleanupThreshold is the number of Maintain calls between sweeps.
const DefaultCleanupThreshold = 200

const keySep = "::::"

// IdempotencyKey builds the cache key for a replayable device operation.
func IdempotencyKey(remote, key string) string {
	return "kkm" + keySep + remote + keySep + key
}

// StaticKey builds the cache key for a static file.
func StaticKey(path string) string {
	return "static" + keySep + path
}

// Entry is a cached response. The payload is shared, never copied.
type Entry struct {
	Payload     domain.Payload
	Status      domain.Status
	CachedAt    time.Time
	ExpiresAt   time.Time
	Fingerprint uint64
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Cache is a mutex-guarded map of entries.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]Entry
	calls     int
	threshold int
	now       func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithThreshold sets the number of Maintain calls between sweeps.
func WithThreshold(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.threshold = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]Entry),
		threshold: DefaultCleanupThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store inserts or replaces the entry for key, stamping CachedAt with the
// current time.
func (c *Cache) Store(key string, expiresAt time.Time, status domain.Status, payload domain.Payload, fingerprint uint64) {
	e := Entry{
		Payload:     payload,
		Status:      status,
		CachedAt:    c.now(),
		ExpiresAt:   expiresAt,
		Fingerprint: fingerprint,
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Load returns a snapshot of the entry for key. Expired entries are still
// returned until swept.
func (c *Cache) Load(key string) (Entry, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	return e, ok
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Maintain counts a cache access and sweeps expired entries every
// threshold calls. It reports the number of entries removed.
func (c *Cache) Maintain() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls < c.threshold {
		return 0
	}
	c.calls = 0
	return c.sweepLocked(c.now())
}

// Sweep removes every entry that expired before now.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(now)
}

func (c *Cache) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if e.Expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
