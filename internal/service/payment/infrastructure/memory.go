// internal/service/payment/infrastructure/memory.go
package infrastructure

import (
	"context"
	"sync"

	"gomall/internal/service/payment/domain"
)

// MemoryPaymentRepository 是支付仓储的内存实现，用于测试与本地运行。
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
	byOrder  map[string]string
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[string]domain.Payment),
		byOrder:  make(map[string]string),
	}
}

func (r *MemoryPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.ID] = *payment
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

func (r *MemoryPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	payment := stored
	return &payment, nil
}

func (r *MemoryPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored := r.payments[id]
	payment := stored
	return &payment, nil
}
