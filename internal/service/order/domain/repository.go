// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"errors"
)

// ErrNotFound 表示订单不存在。
var ErrNotFound = errors.New("order: not found")

// OrderRepository 定义订单聚合的持久化接口，由基础设施层实现。
type OrderRepository interface {
	// Save 保存订单聚合（创建或整体更新）。
	Save(ctx context.Context, order *Order) error

	// FindByID 按 ID 查找订单，不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)
}
