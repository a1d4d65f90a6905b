// internal/service/product/domain/sku.go
package domain

import "errors"

// ErrNotFound 表示商品不存在。
var ErrNotFound = errors.New("product: not found")

// Status 是商品上下架状态，下单要求 ON_SALE。
type Status string

const (
	StatusOnSale  Status = "ON_SALE"
	StatusOffSale Status = "OFF_SALE"
)

// Sku 是商品最小库存单元的只读视图。价格以分为单位。
type Sku struct {
	ID            string
	Name          string
	Price         int64
	OriginalPrice int64
	Status        Status
}

// Sellable 判断该 SKU 当前可售。
func (s *Sku) Sellable() bool {
	return s.Status == StatusOnSale
}
