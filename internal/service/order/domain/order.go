// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status 定义订单的生命周期状态。
// 正向流转 PENDING -> CONFIRMED -> PAID -> SHIPPED -> DELIVERED，
// CANCELLED 可从任意非 DELIVERED 状态到达。
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// InvalidStateTransitionError 标明一次非法的状态迁移边。
type InvalidStateTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("order: invalid state transition %s -> %s", e.From, e.To)
}

// Item 是订单行。金额一律以分为单位。
type Item struct {
	SkuID         string
	Quantity      int64
	UnitPrice     int64
	OriginalPrice int64
}

// Amounts 是订单的金额拆解，单位为分。
type Amounts struct {
	Product  int64
	Discount int64
	Shipping int64
	Tax      int64
	Total    int64
}

// Address 是收货地址值对象。
type Address struct {
	Country      string
	Province     string
	City         string
	District     string
	Street       string
	PostalCode   string
	ContactName  string
	ContactPhone string
}

// Order 是订单聚合根。
type Order struct {
	ID           string
	OrderNumber  string
	UserID       string
	Items        []Item
	Amounts      Amounts
	Address      Address
	Remark       string
	CouponID     string
	Status       Status
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder 创建一个待确认的订单。orderID 为空时自动生成；
// 编排器会预先生成订单号，并将其用作库存预留的幂等键。
func NewOrder(orderID, userID string, items []Item, amounts Amounts, address Address, remark, couponID string) (*Order, error) {
	if userID == "" {
		return nil, errors.New("order: user id is required")
	}
	if len(items) == 0 {
		return nil, errors.New("order: at least one item is required")
	}
	for _, item := range items {
		if item.SkuID == "" || item.Quantity <= 0 {
			return nil, fmt.Errorf("order: invalid item (sku=%q, qty=%d)", item.SkuID, item.Quantity)
		}
	}

	now := time.Now()
	id := orderID
	if id == "" {
		id = uuid.New().String()
	}
	return &Order{
		ID:          id,
		OrderNumber: fmt.Sprintf("ORD%s%s", now.Format("20060102150405"), id[:8]),
		UserID:      userID,
		Items:       items,
		Amounts:     amounts,
		Address:     address,
		Remark:      remark,
		CouponID:    couponID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (o *Order) transition(from, to Status) error {
	if o.Status != from {
		return &InvalidStateTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// Confirm 确认订单。
func (o *Order) Confirm() error { return o.transition(StatusPending, StatusConfirmed) }

// Pay 标记订单已支付。
func (o *Order) Pay() error { return o.transition(StatusConfirmed, StatusPaid) }

// Ship 标记订单已发货。
func (o *Order) Ship() error { return o.transition(StatusPaid, StatusShipped) }

// Deliver 标记订单已送达。DELIVERED 之后状态不再变化。
func (o *Order) Deliver() error { return o.transition(StatusShipped, StatusDelivered) }

// Cancel 取消订单。重复取消是幂等的，便于补偿重试；
// 已送达的订单不能取消。
func (o *Order) Cancel(reason string) error {
	if o.Status == StatusCancelled {
		return nil
	}
	if o.Status == StatusDelivered {
		return &InvalidStateTransitionError{From: o.Status, To: StatusCancelled}
	}
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.UpdatedAt = time.Now()
	return nil
}

// IsTerminal 判断订单是否处于终态。
func (o *Order) IsTerminal() bool {
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}
