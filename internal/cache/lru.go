// Package cache provides the bounded, content-addressed render caches.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

// Stats reports cache occupancy and effectiveness.
type Stats struct {
	Len    int
	Hits   uint64
	Misses uint64
}

// LRU is a fixed-capacity least-recently-used cache safe for concurrent use.
// Values are treated as immutable once stored.
type LRU[K comparable, V any] struct {
	entries *lru.Cache[K, V]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// New creates an LRU holding at most capacity entries.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails on non-positive sizes, excluded above.
	entries, _ := lru.New[K, V](capacity)
	return &LRU[K, V]{entries: entries}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *LRU[K, V]) Set(key K, value V) {
	c.entries.Add(key, value)
}

// Clear drops every entry. Counters are kept.
func (c *LRU[K, V]) Clear() {
	c.entries.Purge()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of occupancy and hit counters.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Len:    c.entries.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
