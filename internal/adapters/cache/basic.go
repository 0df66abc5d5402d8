package cache

import (
	"sync"
	"time"
)

type basicCacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// basicCache is a mutex-guarded map for tests. Expired entries are dropped
// on read rather than by a background sweeper.
type basicCache[T any] struct {
	mu      sync.Mutex
	entries map[string]basicCacheEntry[T]
	now     func() time.Time
}

func (c *basicCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		var empty T
		return empty, false
	}
	return entry.value, true
}

func (c *basicCache[T]) Set(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = basicCacheEntry[T]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *basicCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func NewBasicCache[T any](now func() time.Time) *basicCache[T] {
	if now == nil {
		now = time.Now
	}
	return &basicCache[T]{
		entries: make(map[string]basicCacheEntry[T]),
		now:     now,
	}
}
