package reticula_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/pkg/adapters/memory"
	"github.com/aretw0/reticula/pkg/newick"
	"github.com/aretw0/reticula/pkg/ports"
	"github.com/aretw0/reticula/pkg/rooting"
)

const scenarioD = "((A,B),(C,D));((A,C),(B,D));"

func TestInfer_Binding(t *testing.T) {
	out, err := reticula.Infer(scenarioD)
	require.NoError(t, err)
	assert.Contains(t, out, "#H1")

	n, err := newick.ParseNetwork(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, n.Taxa())
}

func TestInfer_BindingErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"((A,B),(C,D)", newick.ErrUnbalancedParentheses},
		{"(A:-1,B);", newick.ErrInvalidBranchLength},
		{"", newick.ErrUnexpectedEnd},
		{"();", rooting.ErrNoLeaves},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := reticula.Infer(tt.input)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEngine_Key(t *testing.T) {
	a := reticula.New(reticula.WithOutgroup("A"))
	b := reticula.New(reticula.WithOutgroup("A"), reticula.WithWorkers(3))
	c := reticula.New(reticula.WithOutgroup("B"))

	assert.Equal(t, a.Key(scenarioD), b.Key(scenarioD))
	assert.NotEqual(t, a.Key(scenarioD), c.Key(scenarioD))
	assert.NotEqual(t, a.Key(scenarioD), a.Key("(A,B);"))
	assert.Len(t, a.Key(scenarioD), 64)
}

func TestEngine_CacheHit(t *testing.T) {
	cache := memory.NewCache()
	eng := reticula.New(reticula.WithCache(cache))
	ctx := context.Background()

	first, err := eng.Infer(ctx, scenarioD)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	keys, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.Key}, keys)

	second, err := eng.Infer(ctx, scenarioD)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Newick, second.Newick)
	assert.Equal(t, first.Reticulations, second.Reticulations)
	require.NotNil(t, second.Network)
	assert.Len(t, second.Network.Reticulations(), first.Reticulations)
}

func TestEngine_ErrorsAreNotCached(t *testing.T) {
	cache := memory.NewCache()
	eng := reticula.New(reticula.WithCache(cache))

	_, err := eng.Infer(context.Background(), "(A,B")
	require.Error(t, err)

	keys, err := cache.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type brokenCache struct{}

func (brokenCache) Put(context.Context, string, *ports.CachedResult) error {
	return errors.New("disk full")
}
func (brokenCache) Get(context.Context, string) (*ports.CachedResult, error) {
	return nil, errors.New("connection reset")
}
func (brokenCache) Delete(context.Context, string) error  { return nil }
func (brokenCache) List(context.Context) ([]string, error) { return nil, nil }

func TestEngine_CacheFailuresAreIgnored(t *testing.T) {
	eng := reticula.New(reticula.WithCache(brokenCache{}))
	inf, err := eng.Infer(context.Background(), scenarioD)
	require.NoError(t, err)
	assert.False(t, inf.Cached)
	assert.Equal(t, 1, inf.Reticulations)
}

func TestEngine_UnreadableCacheEntryIsRecomputed(t *testing.T) {
	cache := memory.NewCache()
	eng := reticula.New(reticula.WithCache(cache))
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, eng.Key(scenarioD), &ports.CachedResult{Newick: "((A,B"}))

	inf, err := eng.Infer(ctx, scenarioD)
	require.NoError(t, err)
	assert.False(t, inf.Cached)
	assert.Contains(t, inf.Newick, "#H1")
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	lastKey string
	lastTTL time.Duration
	lockErr error
}

func (l *countingLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.locks++
	l.lastKey, l.lastTTL = key, ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestEngine_LocksOnMiss(t *testing.T) {
	locker := &countingLocker{}
	eng := reticula.New(
		reticula.WithCache(memory.NewCache()),
		reticula.WithLocker(locker, time.Minute),
	)
	ctx := context.Background()

	_, err := eng.Infer(ctx, scenarioD)
	require.NoError(t, err)
	_, err = eng.Infer(ctx, scenarioD)
	require.NoError(t, err)

	assert.Equal(t, 1, locker.locks, "a hit must not take the lock")
	assert.Equal(t, 1, locker.unlocks)
	assert.Equal(t, eng.Key(scenarioD), locker.lastKey)
	assert.Equal(t, time.Minute, locker.lastTTL)
}

func TestEngine_LockFailure(t *testing.T) {
	locker := &countingLocker{lockErr: context.DeadlineExceeded}
	eng := reticula.New(
		reticula.WithCache(memory.NewCache()),
		reticula.WithLocker(locker, time.Second),
	)
	_, err := eng.Infer(context.Background(), scenarioD)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reticula.New().Infer(ctx, scenarioD)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  string
	}{
		{"unbalanced", "((A,B)", reticula.KindUnbalancedParentheses},
		{"length", "(A:abc,B);", reticula.KindInvalidBranchLength},
		{"empty", "   ", reticula.KindUnexpectedEnd},
		{"token", "(A,B)(C,D);", reticula.KindUnexpectedToken},
		{"no leaves", "();", reticula.KindNoLeaves},
		{"control", "(A\x00,B);", reticula.KindControlCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reticula.Infer(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.kind, reticula.Kind(err))
			assert.True(t, reticula.IsInputError(err))
		})
	}

	assert.Empty(t, reticula.Kind(nil))
	assert.Equal(t, reticula.KindInternal, reticula.Kind(errors.New("boom")))
	assert.Equal(t, reticula.KindCanceled, reticula.Kind(context.Canceled))
	assert.False(t, reticula.IsInputError(context.Canceled))
}
