package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/asset-tokenizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*AssetCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	rc, err := NewRedisCache(&config.RedisConfig{
		Host:           mr.Host(),
		Port:           mr.Port(),
		MaxConnections: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rc.Close()
	})

	return NewAssetCache(rc, 20*time.Second), mr
}

type assetView struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestAssetCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetAsset(ctx, 1, &assetView{ID: 1, Name: "BMW 2019"}))

	var got assetView
	require.NoError(t, cache.GetAsset(ctx, 1, &got))
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, "BMW 2019", got.Name)
}

func TestAssetCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	var got assetView
	err := cache.GetAsset(context.Background(), 42, &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestAssetCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetAsset(ctx, 1, &assetView{ID: 1, Name: "BMW 2019"}))
	require.NoError(t, cache.SetFillableStats(ctx, &FillableStats{Count: 1, MinFillableAmount: "50000"}))

	require.NoError(t, cache.InvalidateAsset(ctx, 1))

	var got assetView
	assert.ErrorIs(t, cache.GetAsset(ctx, 1, &got), ErrCacheMiss)

	_, err := cache.GetFillableStats(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestAssetCacheTTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetFillableStats(ctx, &FillableStats{Count: 2, MinFillableAmount: "10000"}))

	stats, err := cache.GetFillableStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, "10000", stats.MinFillableAmount)

	mr.FastForward(21 * time.Second)

	_, err = cache.GetFillableStats(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
