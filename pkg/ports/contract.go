package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultCacheContract runs a suite of tests to verify that a ResultCache
// implementation adheres to the interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		want := &CachedResult{
			Newick:        "(((A)#H1,B),(#H1.2,C),D);",
			Trees:         2,
			Taxa:          4,
			Reticulations: 1,
			CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		require.NoError(t, cache.Put(ctx, key, want), "Put should not return error")

		got, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, want.Newick, got.Newick)
		assert.Equal(t, want.Taxa, got.Taxa)
		assert.Equal(t, want.Reticulations, got.Reticulations)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, &CachedResult{Newick: "(A,B);"}))
		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		got.Newick = "mutated"

		again, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "(A,B);", again.Newick)
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, key, &CachedResult{Newick: "(A,B);"}))
		require.NoError(t, cache.Delete(ctx, key), "Delete should not return error")

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss, "Get after Delete should return ErrCacheMiss")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		_ = cache.Put(ctx, k1, &CachedResult{Newick: "(A,B);"})
		_ = cache.Put(ctx, k2, &CachedResult{Newick: "(C,D);"})
		defer func() {
			_ = cache.Delete(ctx, k1)
			_ = cache.Delete(ctx, k2)
		}()

		keys, err := cache.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
