package cache

import "context"

// Tiered combines the in-memory LRU with an optional persistent store. Memory
// is consulted first; store hits are copied back into memory. Store errors
// degrade to cache misses so a broken cache never fails an embedding call.
// A nil *Tiered is valid and caches nothing.
type Tiered struct {
	lru   *LRU
	store *Store
}

// NewTiered builds a tiered cache. Either tier may be nil.
func NewTiered(lru *LRU, store *Store) *Tiered {
	return &Tiered{lru: lru, store: store}
}

// Get returns the cached embedding for key if present in either tier.
func (t *Tiered) Get(ctx context.Context, key string) ([]float32, bool) {
	if t == nil {
		return nil, false
	}
	if vec, ok := t.lru.Get(key); ok {
		return vec, true
	}
	if t.store == nil {
		return nil, false
	}
	vec, ok, err := t.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	t.lru.Set(key, vec)
	return vec, true
}

// Put stores the embedding in both tiers. Store errors are dropped.
func (t *Tiered) Put(ctx context.Context, key, model string, vec []float32) {
	if t == nil {
		return
	}
	t.lru.Set(key, vec)
	if t.store != nil {
		_ = t.store.Put(ctx, key, model, vec)
	}
}

// Close closes the persistent tier, when present.
func (t *Tiered) Close() error {
	if t == nil || t.store == nil {
		return nil
	}
	return t.store.Close()
}
