// internal/service/inventory/domain/repository.go
package domain

import "context"

// Repository 定义库存聚合的持久化接口，由基础设施层实现。
//
// Save 是一次显式的 compare-and-swap：实现必须以聚合携带的 Version
// 作为条件写回，成功后把存储中的版本推进一位；版本不匹配时返回
// ErrVersionConflict，由应用层决定重读重试。
type Repository interface {
	// FindBySku 按 (SKU, 仓库) 读取聚合，不存在时返回 ErrNotFound。
	FindBySku(ctx context.Context, skuID, warehouseID string) (*Inventory, error)

	// Save 条件写回聚合，参见接口注释。
	Save(ctx context.Context, inv *Inventory) error

	// Create 创建新台账，(SKU, 仓库) 已存在时报错。
	Create(ctx context.Context, inv *Inventory) error
}
