// Package idempotency fronts a request_id-keyed store probe with an
// in-process LRU so that a retry storm against the same request_id does
// not round-trip to Postgres on every attempt.
package idempotency

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache remembers the outcome of a request_id for a bounded number of
// recent keys. It is a read-through accelerator, never the system of
// record: callers must still write through to the store on first sight of
// a key, and a cache miss always means "ask the store," not "doesn't exist."
type Cache[V any] struct {
	lru *lru.Cache[string, V]
}

// New creates a Cache holding up to size most-recently-used entries.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: c}, nil
}

// Get returns the cached value for requestID, if present.
func (c *Cache[V]) Get(requestID string) (V, bool) {
	return c.lru.Get(requestID)
}

// Put records the outcome for requestID, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache[V]) Put(requestID string, value V) {
	c.lru.Add(requestID, value)
}

// Len returns the number of entries currently cached.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
