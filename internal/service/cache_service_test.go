package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberLoadsOnceThenHits(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(newFakeCacheRepo(), nil, 0, nil, true)
	loads := 0
	load := func(context.Context) (map[string]int, error) {
		loads++
		return map[string]int{"CS": 2}, nil
	}

	first, hit, err := Remember(ctx, cache, "k", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, first["CS"])

	second, hit, err := Remember(ctx, cache, "k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
}

func TestRememberWithoutCacheAlwaysLoads(t *testing.T) {
	ctx := context.Background()
	loads := 0
	load := func(context.Context) (string, error) {
		loads++
		return "fresh", nil
	}

	var disabled *CacheService
	for i := 0; i < 2; i++ {
		v, hit, err := Remember(ctx, disabled, "k", load)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "fresh", v)
	}
	assert.Equal(t, 2, loads)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, true)

	_, _, err := Remember(context.Background(), cache, "k", func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.Empty(t, repo.data)
}

func TestInvalidateSkippedWhenDisabled(t *testing.T) {
	repo := newFakeCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, cache.Invalidate(context.Background(), "analytics:*"))
	assert.Empty(t, repo.invalidated)
	assert.False(t, cache.Enabled())
}
