package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a string-keyed store with per-entry expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T, ttl time.Duration)
	Delete(key string)
}

type ttlCache[T any] struct {
	cache *ttlcache.Cache[string, T]
}

func (c *ttlCache[T]) Get(key string) (T, bool) {
	item := c.cache.Get(key)
	if item == nil {
		var empty T
		return empty, false
	}
	return item.Value(), true
}

func (c *ttlCache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.cache.Set(key, value, ttl)
}

func (c *ttlCache[T]) Delete(key string) {
	c.cache.Delete(key)
}

func NewTTLCache[T any](defaultTTL time.Duration) Cache[T] {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, T](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, T](),
	)
	go cache.Start()
	return &ttlCache[T]{cache: cache}
}
