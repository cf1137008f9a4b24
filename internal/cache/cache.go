package cache

import (
	"context"
	"sync"
	"time"

	"econ-health-api/internal/logger"
	"econ-health-api/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// entry is one cached payload. Entries are replaced wholesale on refresh,
// never mutated.
type entry struct {
	payload   interface{}
	fetchedAt time.Time
	expiresAt time.Time
}

// Result is what a lookup hands back: the payload plus whether it came
// from an expired entry kept alive by an upstream failure.
type Result struct {
	Payload   interface{}
	Stale     bool
	FetchedAt time.Time
}

// Cache is an injectable in-memory TTL cache with stale fallback. Expired
// entries are served when a refresh fails, up to a hard staleness ceiling;
// past the ceiling an entry is purged lazily and treated as absent.
// Concurrent refreshes of the same key are coalesced.
type Cache struct {
	mutex   sync.RWMutex
	entries map[string]entry

	ceiling time.Duration
	group   singleflight.Group
	logger  *logger.Logger

	// now is swappable in tests
	now func() time.Time
}

// New creates a cache with the given hard staleness ceiling.
func New(ceiling time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ceiling: ceiling,
		logger:  log,
		now:     time.Now,
	}
}

// GetOrFetch returns the cached payload for key when fresh; otherwise it
// runs fetchFn (coalesced across callers) and caches the result for ttl.
// When fetchFn fails and a previous entry is younger than the staleness
// ceiling, that entry is returned marked stale instead of the error.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn func(context.Context) (interface{}, error)) (Result, error) {
	if cached, ok := c.lookup(key); ok {
		metrics.CacheEvents.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheEvents.WithLabelValues("miss").Inc()

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller in the same flight may have refreshed already.
		if cached, ok := c.lookup(key); ok {
			return cached, nil
		}

		payload, fetchErr := fetchFn(ctx)
		if fetchErr == nil {
			now := c.now()
			c.mutex.Lock()
			c.entries[key] = entry{payload: payload, fetchedAt: now, expiresAt: now.Add(ttl)}
			c.mutex.Unlock()
			return Result{Payload: payload, FetchedAt: now}, nil
		}

		if stale, ok := c.staleLookup(key); ok {
			c.logger.Warnf("cache: serving stale %q after fetch failure: %v", key, fetchErr)
			metrics.CacheEvents.WithLabelValues("stale").Inc()
			return stale, nil
		}
		return Result{}, fetchErr
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

// Peek returns the cached payload regardless of expiry, respecting only
// the staleness ceiling.
func (c *Cache) Peek(key string) (Result, bool) {
	if cached, ok := c.lookup(key); ok {
		return cached, true
	}
	return c.staleLookup(key)
}

// Purge removes a key unconditionally.
func (c *Cache) Purge(key string) {
	c.mutex.Lock()
	delete(c.entries, key)
	c.mutex.Unlock()
}

// Len reports how many entries are currently held, expired or not.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// lookup returns a live (unexpired) entry.
func (c *Cache) lookup(key string) (Result, bool) {
	c.mutex.RLock()
	cached, exists := c.entries[key]
	c.mutex.RUnlock()
	if !exists || c.now().After(cached.expiresAt) {
		return Result{}, false
	}
	return Result{Payload: cached.payload, FetchedAt: cached.fetchedAt}, true
}

// staleLookup returns an expired entry still under the ceiling, purging
// entries beyond it.
func (c *Cache) staleLookup(key string) (Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached, exists := c.entries[key]
	if !exists {
		return Result{}, false
	}
	if c.now().Sub(cached.fetchedAt) > c.ceiling {
		delete(c.entries, key)
		metrics.CacheEvents.WithLabelValues("purge").Inc()
		return Result{}, false
	}
	return Result{Payload: cached.payload, Stale: true, FetchedAt: cached.fetchedAt}, true
}
