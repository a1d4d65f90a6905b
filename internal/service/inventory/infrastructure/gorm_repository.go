// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"gomall/internal/service/inventory/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository 是 domain.Repository 的 MySQL 实现。
// 写回通过 `UPDATE ... WHERE version = ?` 完成单行 CAS，
// 影响行数为 0 即视为版本冲突。
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate 建表，供本地环境与集成测试使用。
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&InventoryModel{}, &ReservationModel{}, &OperationModel{})
}

func (r *GormRepository) FindBySku(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, error) {
	var model InventoryModel
	err := r.db.WithContext(ctx).
		Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).
		First(&model).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "query inventory")
	}

	var reservations []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("sku_id = ? AND warehouse_id = ?", skuID, warehouseID).
		Find(&reservations).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "query reservations")
	}

	return toDomain(&model, reservations), nil
}

func (r *GormRepository) Save(ctx context.Context, inv *domain.Inventory) error {
	ops := inv.PendingOperations()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 单行 CAS：条件更新数量与版本号
		res := tx.Model(&InventoryModel{}).
			Where("sku_id = ? AND warehouse_id = ? AND version = ?", inv.SkuID, inv.WarehouseID, inv.Version).
			Updates(map[string]interface{}{
				"total_quantity":        inv.Total,
				"available_quantity":    inv.Available,
				"reserved_quantity":     inv.Reserved,
				"frozen_quantity":       inv.Frozen,
				"safety_stock_quantity": inv.SafetyStock,
				"status":                string(inv.Status),
				"version":               inv.Version + 1,
				"updated_at":            inv.UpdatedAt,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "cas update inventory")
		}
		if res.RowsAffected == 0 {
			return domain.ErrVersionConflict
		}

		// 预占记录随聚合一起落库（upsert，幂等）
		for _, rec := range inv.Reservations {
			model := ReservationModel{
				SkuID:       inv.SkuID,
				WarehouseID: inv.WarehouseID,
				ReferenceID: rec.ReferenceID,
				Quantity:    rec.Quantity,
				State:       string(rec.State),
				CreatedAt:   rec.CreatedAt,
				UpdatedAt:   rec.UpdatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "sku_id"}, {Name: "warehouse_id"}, {Name: "reference_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"quantity", "state", "updated_at"}),
			}).Create(&model).Error; err != nil {
				return pkgerrors.Wrap(err, "upsert reservation")
			}
		}

		// 操作流水只增不改
		for _, op := range ops {
			model := OperationModel{
				SkuID:       inv.SkuID,
				WarehouseID: inv.WarehouseID,
				Type:        string(op.Type),
				Quantity:    op.Quantity,
				ReferenceID: op.ReferenceID,
				OperatorID:  op.OperatorID,
				Reason:      op.Reason,
				OccurredAt:  op.OccurredAt,
			}
			if err := tx.Create(&model).Error; err != nil {
				return pkgerrors.Wrap(err, "append operation log")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	inv.Version++
	return nil
}

func (r *GormRepository) Create(ctx context.Context, inv *domain.Inventory) error {
	model := InventoryModel{
		SkuID:       inv.SkuID,
		WarehouseID: inv.WarehouseID,
		Total:       inv.Total,
		Available:   inv.Available,
		Reserved:    inv.Reserved,
		Frozen:      inv.Frozen,
		SafetyStock: inv.SafetyStock,
		Status:      string(inv.Status),
		Version:     inv.Version,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return pkgerrors.Wrap(err, "create inventory")
	}
	return nil
}
