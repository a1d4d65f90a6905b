// internal/service/inventory/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"

	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/metrics"
	"gomall/internal/service/inventory/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxConflictRetries 是单次操作允许的版本冲突重试次数。
// 超出后向调用方返回 ConflictError，由上游按瞬时失败处理。
const maxConflictRetries = 5

// ConflictError 表示乐观锁冲突重试耗尽，属于可重试的瞬时失败。
type ConflictError struct {
	SkuID       string
	WarehouseID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("inventory: too many version conflicts on (%s, %s)", e.SkuID, e.WarehouseID)
}

// SnapshotCache 是读侧缓存的出站端口，写操作成功后刷新，读请求优先命中。
type SnapshotCache interface {
	Get(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, bool)
	Put(ctx context.Context, inv *domain.Inventory)
	Invalidate(ctx context.Context, skuID, warehouseID string)
}

// InventoryService 是库存服务的应用层：对每个操作执行
// "读取 -> 领域方法 -> CAS 写回 -> 冲突重读" 的循环。
type InventoryService struct {
	repo   domain.Repository
	cache  SnapshotCache // 可为 nil
	tracer trace.Tracer
}

func NewInventoryService(repo domain.Repository, cache SnapshotCache, tracer trace.Tracer) *InventoryService {
	return &InventoryService{repo: repo, cache: cache, tracer: tracer}
}

// mutate 以 CAS 重试循环执行一次聚合变更。
// op 返回 (replayed, err)：replayed 表示幂等重放，无需写回。
func (s *InventoryService) mutate(ctx context.Context, spanName, skuID, warehouseID string,
	op func(inv *domain.Inventory) (bool, error)) (*domain.Inventory, error) {

	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("sku.id", skuID),
		attribute.String("warehouse.id", warehouseID),
	)

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inv, err := s.repo.FindBySku(ctx, skuID, warehouseID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		replayed, err := op(inv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if replayed {
			span.AddEvent("idempotent replay, ledger unchanged")
			return inv, nil
		}

		if err := inv.ValidateConsistency(); err != nil {
			// 不变式被破坏说明领域代码存在缺陷，绝不能落库
			span.RecordError(err)
			return nil, err
		}

		if err := s.repo.Save(ctx, inv); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				metrics.LedgerConflicts.Inc()
				span.AddEvent("version conflict, retrying")
				continue
			}
			span.RecordError(err)
			return nil, err
		}

		if s.cache != nil {
			s.cache.Invalidate(ctx, skuID, warehouseID)
		}
		return inv, nil
	}

	err := &ConflictError{SkuID: skuID, WarehouseID: warehouseID}
	span.RecordError(err)
	span.SetStatus(codes.Error, "conflict retries exhausted")
	logger.Ctx(ctx).Warn().Str("sku", skuID).Str("warehouse", warehouseID).
		Msg("inventory operation gave up after version conflicts")
	return nil, err
}

// Reserve 为订单预占库存，referenceID 为幂等键。
func (s *InventoryService) Reserve(ctx context.Context, skuID, warehouseID string, qty int64, referenceID, operatorID string) (*domain.Inventory, error) {
	inv, err := s.mutate(ctx, "inventory.Reserve", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return inv.Reserve(qty, referenceID, operatorID)
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			metrics.ReservationRejected.WithLabelValues("insufficient_stock").Inc()
		} else if errors.Is(err, domain.ErrInactiveInventory) {
			metrics.ReservationRejected.WithLabelValues("inactive").Inc()
		}
		return nil, err
	}
	return inv, nil
}

// Release 释放预占，是 Reserve 的补偿。
func (s *InventoryService) Release(ctx context.Context, skuID, warehouseID string, qty int64, referenceID, operatorID string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.Release", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return inv.ReleaseReservation(qty, referenceID, operatorID)
	})
}

// Confirm 确认预占，库存实际出库。
func (s *InventoryService) Confirm(ctx context.Context, skuID, warehouseID string, qty int64, referenceID, operatorID string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.Confirm", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return inv.ConfirmReservation(qty, referenceID, operatorID)
	})
}

// Adjust 按盘点结果调整总库存。
func (s *InventoryService) Adjust(ctx context.Context, skuID, warehouseID string, newTotal int64, reason string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.Adjust", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return false, inv.Adjust(newTotal, reason)
	})
}

// Freeze 冻结库存（审计等非订单占用）。
func (s *InventoryService) Freeze(ctx context.Context, skuID, warehouseID string, qty int64, reason string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.Freeze", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return false, inv.Freeze(qty, reason)
	})
}

// Unfreeze 解冻库存。
func (s *InventoryService) Unfreeze(ctx context.Context, skuID, warehouseID string, qty int64, reason string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.Unfreeze", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return false, inv.Unfreeze(qty, reason)
	})
}

// StockIn 入库。
func (s *InventoryService) StockIn(ctx context.Context, skuID, warehouseID string, qty int64, reason string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.StockIn", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return false, inv.StockIn(qty, reason)
	})
}

// StockOut 非预占路径的直接出库。
func (s *InventoryService) StockOut(ctx context.Context, skuID, warehouseID string, qty int64, reason string) (*domain.Inventory, error) {
	return s.mutate(ctx, "inventory.StockOut", skuID, warehouseID, func(inv *domain.Inventory) (bool, error) {
		return false, inv.StockOut(qty, reason)
	})
}

// Create 初始化一条新台账。
func (s *InventoryService) Create(ctx context.Context, skuID, warehouseID string, initial, safetyStock int64) (*domain.Inventory, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Create")
	defer span.End()

	inv, err := domain.NewInventory(skuID, warehouseID, initial, safetyStock)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return inv, nil
}

// Get 查询台账，优先命中读缓存。
func (s *InventoryService) Get(ctx context.Context, skuID, warehouseID string) (*domain.Inventory, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Get")
	defer span.End()

	if s.cache != nil {
		if inv, ok := s.cache.Get(ctx, skuID, warehouseID); ok {
			span.AddEvent("cache hit")
			return inv, nil
		}
	}

	inv, err := s.repo.FindBySku(ctx, skuID, warehouseID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, inv)
	}
	return inv, nil
}
