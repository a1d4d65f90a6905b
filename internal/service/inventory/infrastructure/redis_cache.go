// internal/service/inventory/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/redis"
	"gomall/internal/service/inventory/domain"
)

const cacheTTL = 30 * time.Second

// RedisSnapshotCache 缓存台账快照，只服务读请求；
// 任何写操作成功后都会使对应键失效，保证缓存最多落后一个 TTL。
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

type cachedLedger struct {
	Total       int64         `json:"total"`
	Available   int64         `json:"available"`
	Reserved    int64         `json:"reserved"`
	Frozen      int64         `json:"frozen"`
	SafetyStock int64         `json:"safetyStock"`
	Status      domain.Status `json:"status"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func cacheKey(skuID, warehouseID string) string {
	return fmt.Sprintf("inventory:snapshot:{%s:%s}", skuID, warehouseID)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, bool) {
	data, err := c.client.GetClient().Get(ctx, cacheKey(skuID, warehouseID)).Bytes()
	if err != nil {
		return nil, false
	}
	var cached cachedLedger
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	// 快照不携带预占明细，只用于展示查询
	return domain.RestoreInventory(
		skuID, warehouseID,
		cached.Total, cached.Available, cached.Reserved, cached.Frozen, cached.SafetyStock,
		cached.Status, cached.Version, cached.CreatedAt, cached.UpdatedAt, nil,
	), true
}

func (c *RedisSnapshotCache) Put(ctx context.Context, inv *domain.Inventory) {
	data, err := json.Marshal(cachedLedger{
		Total:       inv.Total,
		Available:   inv.Available,
		Reserved:    inv.Reserved,
		Frozen:      inv.Frozen,
		SafetyStock: inv.SafetyStock,
		Status:      inv.Status,
		Version:     inv.Version,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.GetClient().Set(ctx, cacheKey(inv.SkuID, inv.WarehouseID), data, cacheTTL).Err(); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("failed to populate inventory cache")
	}
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, skuID, warehouseID string) {
	if err := c.client.GetClient().Del(ctx, cacheKey(skuID, warehouseID)).Err(); err != nil {
		logger.Ctx(ctx).Debug().Err(err).Msg("failed to invalidate inventory cache")
	}
}
