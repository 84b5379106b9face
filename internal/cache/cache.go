// Package cache provides the bounded in-memory stores used to reuse pipeline answers.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize is the default number of entries kept by an LRU store.
const DefaultSize = 256

// Store is a key/value cache. Implementations are safe for concurrent use.
type Store[V any] interface {
	Get(key string) (V, bool)
	Add(key string, value V)
	Remove(key string)
	Len() int
	Purge()
	Stats() Stats
}

// Stats reports cache usage since creation.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	Enabled bool   `json:"enabled"`
}

// Config holds configuration for an LRU store.
type Config struct {
	// Size is the maximum number of entries. Default: 256.
	Size int

	// TTL expires entries after this long. Zero keeps entries until evicted.
	TTL time.Duration
}

// backend is the subset shared by lru.Cache and expirable.LRU.
type backend[V any] interface {
	Get(key string) (V, bool)
	Add(key string, value V) bool
	Remove(key string) bool
	Len() int
	Purge()
}

// LRU is a size-bounded least-recently-used store, optionally with expiry.
type LRU[V any] struct {
	entries backend[V]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewLRU creates an LRU store.
func NewLRU[V any](cfg Config) (*LRU[V], error) {
	size := cfg.Size
	if size <= 0 {
		size = DefaultSize
	}

	if cfg.TTL > 0 {
		return &LRU[V]{entries: expirable.NewLRU[string, V](size, nil, cfg.TTL)}, nil
	}

	entries, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &LRU[V]{entries: entries}, nil
}

// Get returns the cached value and marks it recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	v, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add stores value, evicting the least recently used entry when full.
func (c *LRU[V]) Add(key string, value V) {
	c.entries.Add(key, value)
}

// Remove deletes key.
func (c *LRU[V]) Remove(key string) {
	c.entries.Remove(key)
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	return c.entries.Len()
}

// Purge removes every entry.
func (c *LRU[V]) Purge() {
	c.entries.Purge()
}

// Stats returns usage counters.
func (c *LRU[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
		Enabled: true,
	}
}

// Noop is a Store that keeps nothing. Use it to disable caching.
type Noop[V any] struct{}

func (Noop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (Noop[V]) Add(string, V) {}
func (Noop[V]) Remove(string) {}
func (Noop[V]) Len() int { return 0 }
func (Noop[V]) Purge() {}
func (Noop[V]) Stats() Stats { return Stats{} }
