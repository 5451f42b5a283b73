package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gourmetmarketplace/backend/services/marketplace-service/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ProductCachePrefix     = "product:detail:"
	ProductListCachePrefix = "products:v:"
	CacheVersionKey        = "products:version"

	DefaultTTL = 10 * time.Minute
)

// CacheManager is a read-through cache for catalog reads. List and detail
// entries are keyed by a version counter so a single INCR drops all of them.
// A nil *CacheManager is valid and caches nothing.
type CacheManager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewCacheManager(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheManager {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheManager{redis: client, ttl: ttl, logger: logger}
}

// GetProduct decodes the cached product into dst.
func (cm *CacheManager) GetProduct(ctx context.Context, productID string, dst interface{}) bool {
	if cm == nil {
		return false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return false
	}
	return cm.get(ctx, detailKey(version, productID), dst)
}

// SetProductAsync caches a single product in the background.
func (cm *CacheManager) SetProductAsync(productID string, v interface{}) {
	if cm == nil {
		return
	}
	cm.async(func(ctx context.Context) {
		version, err := cm.getCacheVersion(ctx)
		if err != nil {
			return
		}
		cm.set(ctx, detailKey(version, productID), v)
	})
}

// GetProductList decodes the cached page for q into dst.
func (cm *CacheManager) GetProductList(ctx context.Context, q models.ProductQuery, dst interface{}) bool {
	if cm == nil {
		return false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return false
	}
	return cm.get(ctx, listKey(version, q), dst)
}

// SetProductListAsync caches the page for q under the current version.
func (cm *CacheManager) SetProductListAsync(q models.ProductQuery, v interface{}) {
	if cm == nil {
		return
	}
	cm.async(func(ctx context.Context) {
		version, err := cm.getCacheVersion(ctx)
		if err != nil {
			return
		}
		cm.set(ctx, listKey(version, q), v)
	})
}

// Invalidate drops every cached list and product by bumping the version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if cm == nil {
		return nil
	}
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	cm.logger.Debug("Cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// InvalidateProduct drops the product's entry along with every list that
// may include it.
func (cm *CacheManager) InvalidateProduct(ctx context.Context, productID string) {
	if cm == nil {
		return
	}
	if err := cm.Invalidate(ctx); err != nil {
		cm.logger.Error("Failed to invalidate cache", zap.Error(err), zap.String("product_id", productID))
	}
}

// Wait blocks until background cache writes finish.
func (cm *CacheManager) Wait() {
	if cm == nil {
		return
	}
	cm.wg.Wait()
}

func (cm *CacheManager) async(fn func(ctx context.Context)) {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func (cm *CacheManager) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := cm.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cm.logger.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		cm.logger.Warn("Failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (cm *CacheManager) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		cm.logger.Warn("Failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cm.redis.Set(ctx, key, data, cm.ttl).Err(); err != nil {
		cm.logger.Warn("Failed to write cache", zap.String("key", key), zap.Error(err))
	}
}

// getCacheVersion reads the list version, initializing it on first use.
func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil && ver > 0 {
		return ver, nil
	}
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Invalidate is not overwritten
		if err := cm.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return cm.redis.Get(ctx, CacheVersionKey).Int64()
	}
	if err == nil {
		err = fmt.Errorf("invalid cache version %d", ver)
	}
	return 0, err
}

func detailKey(version int64, productID string) string {
	return fmt.Sprintf("%s%d:%s", ProductCachePrefix, version, productID)
}

func listKey(version int64, q models.ProductQuery) string {
	category, active, search := "", "", ""
	if q.Category != nil {
		category = q.Category.Hex()
	}
	if q.IsActive != nil {
		active = fmt.Sprint(*q.IsActive)
	}
	if q.Search != nil {
		search = *q.Search
	}
	return fmt.Sprintf("%s%d:p:%d:l:%d:c:%s:a:%s:s:%q",
		ProductListCachePrefix, version, q.Page.Page, q.Page.Limit, category, active, search)
}
