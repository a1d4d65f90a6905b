// internal/service/inventory/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"gomall/internal/service/inventory/domain"
)

// InventoryModel 对应 inventories 表，version 列承载乐观锁。
type InventoryModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SkuID       string `gorm:"column:sku_id;size:64;uniqueIndex:uk_sku_warehouse"`
	WarehouseID string `gorm:"column:warehouse_id;size:64;uniqueIndex:uk_sku_warehouse"`
	Total       int64  `gorm:"column:total_quantity"`
	Available   int64  `gorm:"column:available_quantity"`
	Reserved    int64  `gorm:"column:reserved_quantity"`
	Frozen      int64  `gorm:"column:frozen_quantity"`
	SafetyStock int64  `gorm:"column:safety_stock_quantity"`
	Status      string `gorm:"size:16"`
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (InventoryModel) TableName() string { return "inventories" }

// ReservationModel 对应 inventory_reservations 表，(sku, warehouse, reference) 唯一。
type ReservationModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SkuID       string `gorm:"column:sku_id;size:64;uniqueIndex:uk_reservation"`
	WarehouseID string `gorm:"column:warehouse_id;size:64;uniqueIndex:uk_reservation"`
	ReferenceID string `gorm:"column:reference_id;size:64;uniqueIndex:uk_reservation"`
	Quantity    int64
	State       string `gorm:"size:16"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ReservationModel) TableName() string { return "inventory_reservations" }

// OperationModel 对应 inventory_operations 流水表，只增不改。
type OperationModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SkuID       string `gorm:"column:sku_id;size:64;index"`
	WarehouseID string `gorm:"column:warehouse_id;size:64"`
	Type        string `gorm:"column:operation_type;size:32"`
	Quantity    int64
	ReferenceID string `gorm:"column:reference_id;size:64"`
	OperatorID  string `gorm:"column:operator_id;size:64"`
	Reason      string `gorm:"size:255"`
	OccurredAt  time.Time
}

func (OperationModel) TableName() string { return "inventory_operations" }

// toDomain 把数据库行还原为聚合。
func toDomain(m *InventoryModel, reservations []ReservationModel) *domain.Inventory {
	recs := make(map[string]*domain.Reservation, len(reservations))
	for _, r := range reservations {
		recs[r.ReferenceID] = &domain.Reservation{
			ReferenceID: r.ReferenceID,
			Quantity:    r.Quantity,
			State:       domain.ReservationState(r.State),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return domain.RestoreInventory(
		m.SkuID, m.WarehouseID,
		m.Total, m.Available, m.Reserved, m.Frozen, m.SafetyStock,
		domain.Status(m.Status), m.Version, m.CreatedAt, m.UpdatedAt, recs,
	)
}
