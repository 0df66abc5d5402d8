package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Amund211/beacon/internal/adapters/cache"
	"github.com/Amund211/beacon/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveOutcome = resolve.Outcome[string]

func TestOutcomeCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns only the ids it has seen", func(t *testing.T) {
		t.Parallel()

		outcomeCache := cache.NewOutcomeCache(
			cache.NewBasicCache[resolveOutcome](nil),
			1*time.Minute,
			10*time.Second,
		)

		outcomeCache.StoreValue(ctx, "id1", "stored")

		outcomes, err := outcomeCache.Get(ctx, []string{"id1", "id2"})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		value, ok := outcomes["id1"].Data()
		require.True(t, ok)
		assert.Equal(t, "stored", value)
	})

	t.Run("caches failures as error outcomes", func(t *testing.T) {
		t.Parallel()

		outcomeCache := cache.NewOutcomeCache(
			cache.NewBasicCache[resolveOutcome](nil),
			1*time.Minute,
			10*time.Second,
		)

		backendErr := errors.New("entity not found")
		outcomeCache.StoreError(ctx, "id1", backendErr)

		outcomes, err := outcomeCache.Get(ctx, []string{"id1"})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)

		outcomeErr, ok := outcomes["id1"].Error()
		require.True(t, ok)
		assert.ErrorIs(t, outcomeErr, backendErr)
	})

	t.Run("zero error ttl disables negative caching", func(t *testing.T) {
		t.Parallel()

		outcomeCache := cache.NewOutcomeCache(
			cache.NewBasicCache[resolveOutcome](nil),
			1*time.Minute,
			0,
		)

		outcomeCache.StoreError(ctx, "id1", errors.New("entity not found"))

		outcomes, err := outcomeCache.Get(ctx, []string{"id1"})
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})

	t.Run("invalidate removes the entry", func(t *testing.T) {
		t.Parallel()

		outcomeCache := cache.NewOutcomeCache(
			cache.NewBasicCache[resolveOutcome](nil),
			1*time.Minute,
			10*time.Second,
		)

		outcomeCache.StoreValue(ctx, "id1", "stored")
		outcomeCache.Invalidate("id1")

		outcomes, err := outcomeCache.Get(ctx, []string{"id1"})
		require.NoError(t, err)
		assert.Empty(t, outcomes)
	})
}
