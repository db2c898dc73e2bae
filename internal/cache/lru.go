// Package cache stores computed embeddings: an in-memory LRU with an optional
// persistent SQLite tier behind it.
package cache

import (
	"container/list"
	"sync"
)

// LRU is an in-memory least-recently-used embedding cache.
// A nil *LRU is valid and caches nothing.
type LRU struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type lruEntry struct {
	key   string
	value []float32
}

// NewLRU creates a cache with the given capacity. A non-positive capacity
// returns nil (caching disabled).
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		return nil
	}
	return &LRU{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached embedding for key if present. A hit moves the entry
// to the front of the eviction order, so Get takes the write lock.
func (c *LRU) Get(key string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*lruEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *LRU) Set(key string, value []float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry).value = value
		return
	}

	entry := &lruEntry{key: key, value: value}
	elem := c.order.PushFront(entry)
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
