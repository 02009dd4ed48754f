package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the key was not present in the cache.
var ErrCacheMiss = errors.New("cache miss")

// AssetCache caches read-side asset views in Redis with a short TTL.
type AssetCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewAssetCache creates a new asset cache
func NewAssetCache(cache *RedisCache, ttl time.Duration) *AssetCache {
	return &AssetCache{cache: cache, ttl: ttl}
}

func assetKey(id int) string {
	return fmt.Sprintf("asset:%d", id)
}

const fillableStatsKey = "fillable:stats"

// SetAsset caches the JSON view of an asset.
func (c *AssetCache) SetAsset(ctx context.Context, id int, view interface{}) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal asset %d: %w", id, err)
	}
	return c.cache.Set(ctx, assetKey(id), data, c.ttl)
}

// GetAsset retrieves a cached asset view into dest.
func (c *AssetCache) GetAsset(ctx context.Context, id int, dest interface{}) error {
	data, err := c.cache.Get(ctx, assetKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get asset %d from cache: %w", id, err)
	}
	return json.Unmarshal([]byte(data), dest)
}

// InvalidateAsset removes an asset view from the cache.
func (c *AssetCache) InvalidateAsset(ctx context.Context, id int) error {
	return c.cache.Del(ctx, assetKey(id), fillableStatsKey)
}

// FillableStats is the cached summary of the fillable index.
type FillableStats struct {
	Count             int    `json:"count"`
	MinFillableAmount string `json:"minFillableAmount"`
}

// SetFillableStats caches the fillable index summary.
func (c *AssetCache) SetFillableStats(ctx context.Context, stats *FillableStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal fillable stats: %w", err)
	}
	return c.cache.Set(ctx, fillableStatsKey, data, c.ttl)
}

// GetFillableStats retrieves the cached fillable index summary.
func (c *AssetCache) GetFillableStats(ctx context.Context) (*FillableStats, error) {
	data, err := c.cache.Get(ctx, fillableStatsKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get fillable stats from cache: %w", err)
	}

	var stats FillableStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fillable stats: %w", err)
	}
	return &stats, nil
}
