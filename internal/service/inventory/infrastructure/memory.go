// internal/service/inventory/infrastructure/memory.go
package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"gomall/internal/service/inventory/domain"
)

// MemoryRepository 是 domain.Repository 的内存实现。
// 存储的是聚合的深拷贝快照，Save 在互斥锁内做版本比较，
// 与数据库实现具有相同的 CAS 语义，用于测试和本地运行。
type MemoryRepository struct {
	mu      sync.Mutex
	ledgers map[string]*domain.Inventory
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ledgers: make(map[string]*domain.Inventory)}
}

func key(skuID, warehouseID string) string {
	return skuID + "/" + warehouseID
}

func (r *MemoryRepository) FindBySku(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.ledgers[key(skuID, warehouseID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(stored), nil
}

func (r *MemoryRepository) Save(ctx context.Context, inv *domain.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(inv.SkuID, inv.WarehouseID)
	stored, ok := r.ledgers[k]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != inv.Version {
		return domain.ErrVersionConflict
	}

	snapshot := clone(inv)
	snapshot.Version = inv.Version + 1
	snapshot.PendingOperations() // 内存实现不保留操作流水
	r.ledgers[k] = snapshot
	inv.Version = snapshot.Version
	return nil
}

func (r *MemoryRepository) Create(ctx context.Context, inv *domain.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(inv.SkuID, inv.WarehouseID)
	if _, ok := r.ledgers[k]; ok {
		return fmt.Errorf("inventory already exists for (%s, %s)", inv.SkuID, inv.WarehouseID)
	}
	r.ledgers[k] = clone(inv)
	return nil
}

func clone(inv *domain.Inventory) *domain.Inventory {
	reservations := make(map[string]*domain.Reservation, len(inv.Reservations))
	for id, rec := range inv.Reservations {
		reservations[id] = rec.Clone()
	}
	return domain.RestoreInventory(
		inv.SkuID, inv.WarehouseID,
		inv.Total, inv.Available, inv.Reserved, inv.Frozen, inv.SafetyStock,
		inv.Status, inv.Version, inv.CreatedAt, inv.UpdatedAt, reservations,
	)
}
