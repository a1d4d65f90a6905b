// internal/service/orchestrator/port/ports.go
// Package port 定义编排器依赖的协作方接口。
// 生产实现走 HTTP/Kafka，测试里用内存假实现。
package port

import "context"

// User 是用户档案的最小视图。
type User struct {
	ID     string
	Name   string
	Status string
}

// Sku 是商品的最小视图，价格以分为单位。
type Sku struct {
	ID            string
	Name          string
	Price         int64
	OriginalPrice int64
	Status        string
}

// OrderItem 是下单的一行。
type OrderItem struct {
	SkuID         string
	Quantity      int64
	UnitPrice     int64
	OriginalPrice int64
}

// OrderAmounts 是订单金额拆解，单位为分。
type OrderAmounts struct {
	Product  int64
	Discount int64
	Shipping int64
	Tax      int64
	Total    int64
}

// Address 是收货地址。
type Address struct {
	Country      string `json:"country"`
	Province     string `json:"province"`
	City         string `json:"city"`
	District     string `json:"district"`
	Street       string `json:"street"`
	PostalCode   string `json:"postalCode"`
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`
}

// Order 是订单服务返回的订单视图。
type Order struct {
	ID          string
	OrderNumber string
	Status      string
	TotalAmount int64
}

// Payment 是支付服务返回的支付单视图。
type Payment struct {
	ID     string
	Status string
	Method string
	Amount int64
}

// UserService 对接用户中心。
type UserService interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

// ProductService 对接商品中心。
type ProductService interface {
	BatchGetSkus(ctx context.Context, skuIDs []string) ([]Sku, error)
}

// InventoryService 对接库存账本。referenceID 是幂等键。
type InventoryService interface {
	Reserve(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error
	Release(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error
}

// OrderService 对接订单服务。
type OrderService interface {
	CreateOrder(ctx context.Context, orderID, userID string, items []OrderItem, amounts OrderAmounts,
		address Address, remark, couponID string) (*Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) error
}

// PaymentService 对接支付服务。
type PaymentService interface {
	CreatePayment(ctx context.Context, orderID, userID string, amount int64, method string) (*Payment, error)
}

// Notification 是下单完成后发出的通知事件。
type Notification struct {
	UserID   string            `json:"userId"`
	Channel  string            `json:"channel"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

// NotificationProducer 发布通知事件，失败不影响编排结果。
type NotificationProducer interface {
	Send(ctx context.Context, n Notification) error
}

// CouponRuleEngine 判定优惠券是否适用于这笔订单。
type CouponRuleEngine interface {
	Eligible(ctx context.Context, couponID, userID string, productAmount int64) (bool, error)
}
