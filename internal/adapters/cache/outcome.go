package cache

import (
	"context"
	"time"

	"github.com/Amund211/beacon/internal/resolve"
)

// OutcomeCache stores resolved outcomes with separate lifetimes for values
// and failures. An errorTTL of zero disables negative caching entirely.
type OutcomeCache[T any] struct {
	cache    Cache[resolve.Outcome[T]]
	valueTTL time.Duration
	errorTTL time.Duration
}

func NewOutcomeCache[T any](cache Cache[resolve.Outcome[T]], valueTTL, errorTTL time.Duration) *OutcomeCache[T] {
	if cache == nil {
		panic("logic error: cache is required")
	}
	return &OutcomeCache[T]{
		cache:    cache,
		valueTTL: valueTTL,
		errorTTL: errorTTL,
	}
}

// Get returns the cached outcomes for the given entity ids. It satisfies
// resolve.Getter.
func (c *OutcomeCache[T]) Get(ctx context.Context, entityIDs []string) (map[string]resolve.Outcome[T], error) {
	outcomes := make(map[string]resolve.Outcome[T])
	for _, entityID := range entityIDs {
		if outcome, ok := c.cache.Get(entityID); ok {
			outcomes[entityID] = outcome
		}
	}
	return outcomes, nil
}

func (c *OutcomeCache[T]) StoreValue(ctx context.Context, entityID string, value T) {
	c.cache.Set(entityID, resolve.Value(value), c.valueTTL)
}

// StoreError caches a failure so repeated lookups don't hammer the backend
// while it is known to fail.
func (c *OutcomeCache[T]) StoreError(ctx context.Context, entityID string, err error) {
	if c.errorTTL <= 0 {
		return
	}
	c.cache.Set(entityID, resolve.SoftError[T](err), c.errorTTL)
}

func (c *OutcomeCache[T]) Invalidate(entityID string) {
	c.cache.Delete(entityID)
}
