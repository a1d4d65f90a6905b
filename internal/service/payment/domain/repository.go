// internal/service/payment/domain/repository.go
package domain

import (
	"context"
	"errors"
)

// ErrNotFound 表示支付记录不存在。
var ErrNotFound = errors.New("payment: not found")

// PaymentRepository 定义支付聚合的持久化接口。
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
}
