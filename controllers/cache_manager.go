package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	ShopListCachePrefix = "catalog:shop:v:"
	CacheVersionKey     = "catalog:shop:version"
)

// CacheManager caches shop catalog pages in Redis. Every import batch that
// commits products bumps the version key, orphaning older pages.
type CacheManager struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCacheManager(redis *redis.Client) *CacheManager {
	return &CacheManager{
		redis: redis,
		ttl:   DefaultCacheTTL,
	}
}

// GetShopList retrieves a cached catalog page.
func (cm *CacheManager) GetShopList(ctx context.Context, page, perPage int) (map[string]interface{}, bool) {
	if cm == nil || cm.redis == nil {
		return nil, false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil || version == 0 {
		return nil, false
	}

	cached, err := cm.redis.Get(ctx, listCacheKey(version, page, perPage)).Result()
	if err != nil {
		return nil, false
	}

	var response map[string]interface{}
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		zap.L().Warn("Failed to unmarshal cached catalog page", zap.Error(err))
		return nil, false
	}
	return response, true
}

// SetShopListAsync caches a catalog page in the background.
func (cm *CacheManager) SetShopListAsync(page, perPage int, response map[string]interface{}) {
	if cm == nil || cm.redis == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.getCacheVersion(bgCtx)
		if err != nil || version == 0 {
			return
		}

		body, err := json.Marshal(response)
		if err != nil {
			zap.L().Warn("Failed to marshal catalog page for cache", zap.Error(err))
			return
		}
		if err := cm.redis.Set(bgCtx, listCacheKey(version, page, perPage), body, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache catalog page", zap.Error(err))
		}
	}()
}

// Invalidate bumps the cache version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zap.L().Debug("Catalog cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// OnCatalogChanged adapts Invalidate to the importer's catalog hook.
func (cm *CacheManager) OnCatalogChanged(ctx context.Context) {
	if err := cm.Invalidate(ctx); err != nil {
		zap.L().Error("Failed to invalidate catalog cache after import batch", zap.Error(err))
	}
}

// getCacheVersion retrieves the current cache version with retry logic
func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}
		if err == redis.Nil {
			if err := cm.redis.Set(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				return 1, nil
			}
		}
		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func listCacheKey(version int64, page, perPage int) string {
	return fmt.Sprintf("%s%d:p:%d:l:%d", ShopListCachePrefix, version, page, perPage)
}
