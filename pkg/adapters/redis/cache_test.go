package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/reticula/pkg/adapters/redis"
	"github.com/aretw0/reticula/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCache_Contract(t *testing.T) {
	_, client := newClient(t)
	cache := redis.NewFromClient(client)
	ports.RunResultCacheContract(t, cache)
}

func TestRedisCache_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	err := cache.Put(ctx, "abc", &ports.CachedResult{Newick: "(A,B);", Taxa: 2})
	require.NoError(t, err)

	got, err := cache.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "(A,B);", got.Newick)

	mr.FastForward(2 * time.Second)

	_, err = cache.Get(ctx, "abc")
	assert.ErrorIs(t, err, ports.ErrCacheMiss, "result should expire with its TTL")

	// The index is scored in wall-clock seconds, so pruning needs real time.
	time.Sleep(1200 * time.Millisecond)
	keys, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "expired results should be pruned from the index")
}

func TestRedisCache_Prefix(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "deadbeef", &ports.CachedResult{Newick: "(A,B);"}))

	assert.True(t, mr.Exists("custom:app:deadbeef"))
	assert.True(t, mr.Exists("custom:app:index"))
	assert.False(t, mr.Exists("reticula:result:deadbeef"))
}

func TestRedisCache_DefaultPrefix(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client)

	require.NoError(t, cache.Put(context.Background(), "k", &ports.CachedResult{}))
	assert.True(t, mr.Exists("reticula:result:k"))
	assert.Equal(t, 0*time.Second, mr.TTL("reticula:result:k"), "no TTL unless configured")
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewFromClient(client)
	require.NoError(t, mr.Set("reticula:result:bad", "{not json"))

	_, err := cache.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrCacheMiss)
}
