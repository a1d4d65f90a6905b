// internal/service/order/infrastructure/memory.go
package infrastructure

import (
	"context"
	"sync"

	"gomall/internal/service/order/domain"
)

// MemoryOrderRepository 是订单仓储的内存实现，用于测试与本地运行。
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]domain.Order)}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := *order
	snapshot.Items = append([]domain.Item(nil), order.Items...)
	r.orders[order.ID] = snapshot
	return nil
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order := stored
	order.Items = append([]domain.Item(nil), stored.Items...)
	return &order, nil
}
