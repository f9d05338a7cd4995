package lookahead

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc resolves a key to a record via the remote collaborator.
type FetchFunc[V any] func(ctx context.Context, key string) (V, error)

// Cache is a keyed record cache with force-refresh and per-key in-flight
// de-duplication. Entries live for the process lifetime; the key space is
// bounded by the operator's working set so there is no eviction.
//
// At most one fetch is outstanding per key at any time: concurrent lookups
// for the same uncached key join the outstanding call instead of issuing a
// duplicate fetch, and concurrent force-refreshes coalesce the same way.
type Cache[V any] struct {
	fetch   FetchFunc[V]
	mu      sync.RWMutex
	entries map[string]V
	flight  singleflight.Group
}

// New creates a cache backed by the supplied fetch function.
func New[V any](fetch FetchFunc[V]) *Cache[V] {
	return &Cache[V]{
		fetch:   fetch,
		entries: make(map[string]V),
	}
}

// Get returns the cached record for key, fetching it on a miss. A failed
// first fetch leaves no entry behind and surfaces the error.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	return c.resolve(ctx, key)
}

// Refresh bypasses any cached value and re-fetches the record. On failure
// the previously cached entry, if any, is left untouched.
func (c *Cache[V]) Refresh(ctx context.Context, key string) (V, error) {
	return c.resolve(ctx, key)
}

// Lookup reports the cached record without triggering a fetch.
func (c *Cache[V]) Lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Invalidate drops the cached entry for key, if any.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) resolve(ctx context.Context, key string) (V, error) {
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		fetched, err := c.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
