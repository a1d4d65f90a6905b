// internal/service/inventory/domain/inventory.go
package domain

import (
	"time"
)

// Status 定义库存记录的生命周期状态。
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusDeleted  Status = "DELETED"
)

// OperationType 标识一次库存变更的种类，持久化后形成操作流水。
type OperationType string

const (
	OpStockIn            OperationType = "STOCK_IN"
	OpStockOut           OperationType = "STOCK_OUT"
	OpReserve            OperationType = "RESERVE"
	OpReleaseReservation OperationType = "RELEASE_RESERVATION"
	OpConfirmReservation OperationType = "CONFIRM_RESERVATION"
	OpFreeze             OperationType = "FREEZE"
	OpUnfreeze           OperationType = "UNFREEZE"
	OpAdjustIncrease     OperationType = "ADJUST_INCREASE"
	OpAdjustDecrease     OperationType = "ADJUST_DECREASE"
)

// Operation 是一条库存操作流水。
type Operation struct {
	Type        OperationType
	Quantity    int64
	ReferenceID string
	OperatorID  string
	Reason      string
	OccurredAt  time.Time
}

// Inventory 是库存聚合根：某个 SKU 在某个仓库的台账。
//
// 始终满足不变式 Total == Available + Reserved + Frozen，
// 且四个数量均不为负。所有数量变更只能通过下面的业务方法完成，
// 每个方法都是"校验前置条件 -> 应用状态迁移"的单个原子步骤，
// 配合仓储层的版本号 CAS 写回，构成乐观并发控制。
type Inventory struct {
	SkuID       string
	WarehouseID string

	Total       int64
	Available   int64
	Reserved    int64
	Frozen      int64
	SafetyStock int64

	Status  Status
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time

	// Reservations 以 referenceID（即订单号）为键记录每一笔预占，
	// 同时充当幂等键：重放的 reserve 直接返回先前的结果。
	Reservations map[string]*Reservation

	// pendingOps 累积本次内存变更产生的操作流水，由仓储层随聚合一起落库。
	pendingOps []Operation
}

// NewInventory 创建一条新的库存台账。
func NewInventory(skuID, warehouseID string, initialQuantity, safetyStock int64) (*Inventory, error) {
	if skuID == "" || warehouseID == "" {
		return nil, ErrMissingIdentity
	}
	if initialQuantity < 0 || safetyStock < 0 {
		return nil, ErrNonPositiveQuantity
	}
	now := time.Now()
	return &Inventory{
		SkuID:        skuID,
		WarehouseID:  warehouseID,
		Total:        initialQuantity,
		Available:    initialQuantity,
		SafetyStock:  safetyStock,
		Status:       StatusActive,
		Version:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
		Reservations: make(map[string]*Reservation),
	}, nil
}

// RestoreInventory 从持久化数据重建聚合，替代任何反射式的字段回填。
func RestoreInventory(skuID, warehouseID string, total, available, reserved, frozen, safetyStock int64,
	status Status, version int64, createdAt, updatedAt time.Time, reservations map[string]*Reservation) *Inventory {
	if reservations == nil {
		reservations = make(map[string]*Reservation)
	}
	return &Inventory{
		SkuID:        skuID,
		WarehouseID:  warehouseID,
		Total:        total,
		Available:    available,
		Reserved:     reserved,
		Frozen:       frozen,
		SafetyStock:  safetyStock,
		Status:       status,
		Version:      version,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		Reservations: reservations,
	}
}

// Reserve 把 qty 从可用库存移入预占库存，以 referenceID 为幂等键。
// 返回 replayed=true 表示这是一次重放，聚合状态没有变化。
func (inv *Inventory) Reserve(qty int64, referenceID, operatorID string) (replayed bool, err error) {
	if qty <= 0 {
		return false, ErrNonPositiveQuantity
	}
	if referenceID == "" {
		return false, ErrMissingReference
	}
	if inv.Status != StatusActive {
		return false, ErrInactiveInventory
	}

	if rec, ok := inv.Reservations[referenceID]; ok {
		// 同一 referenceID 的重试：返回先前的结果，不再重复预占
		if rec.State == ReservationReserved || rec.State == ReservationConfirmed {
			return true, nil
		}
		// 已释放的预占不允许复用同一 referenceID 再次预占
		return false, ErrReservationReleased
	}

	if inv.Available < qty {
		return false, &InsufficientStockError{
			SkuID:     inv.SkuID,
			Requested: qty,
			Available: inv.Available,
		}
	}

	inv.Available -= qty
	inv.Reserved += qty
	inv.Reservations[referenceID] = newReservation(referenceID, qty)
	inv.record(OpReserve, qty, referenceID, operatorID, "order reservation")
	return false, nil
}

// ReleaseReservation 把预占库存退回可用库存，是 Reserve 的补偿操作。
func (inv *Inventory) ReleaseReservation(qty int64, referenceID, operatorID string) (replayed bool, err error) {
	if qty <= 0 {
		return false, ErrNonPositiveQuantity
	}

	rec, ok := inv.Reservations[referenceID]
	if !ok {
		// 没有预占记录说明预占从未成功，补偿时当作已释放处理
		return true, nil
	}
	switch rec.State {
	case ReservationReleased:
		return true, nil // 补偿重放
	case ReservationConfirmed:
		return false, ErrReservationConfirmed
	}
	// 按记录的数量释放，忽略调用方传入的差异数量
	qty = rec.Quantity

	if inv.Reserved < qty {
		return false, ErrInsufficientReserved
	}
	rec.markReleased()

	inv.Reserved -= qty
	inv.Available += qty
	inv.record(OpReleaseReservation, qty, referenceID, operatorID, "reservation released")
	return false, nil
}

// ConfirmReservation 把预占库存转为实际出库：预占与总量同时扣减。
func (inv *Inventory) ConfirmReservation(qty int64, referenceID, operatorID string) (replayed bool, err error) {
	if qty <= 0 {
		return false, ErrNonPositiveQuantity
	}

	if rec, ok := inv.Reservations[referenceID]; ok {
		switch rec.State {
		case ReservationConfirmed:
			return true, nil
		case ReservationReleased:
			return false, ErrReservationReleased
		}
		qty = rec.Quantity
		rec.markConfirmed()
	}

	if inv.Reserved < qty {
		return false, ErrInsufficientReserved
	}

	inv.Reserved -= qty
	inv.Total -= qty
	inv.record(OpConfirmReservation, qty, referenceID, operatorID, "reservation confirmed")
	return false, nil
}

// Freeze 冻结可用库存（盘点、审计等非订单占用）。
func (inv *Inventory) Freeze(qty int64, reason string) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	if inv.Status != StatusActive {
		return ErrInactiveInventory
	}
	if inv.Available < qty {
		return &InsufficientStockError{SkuID: inv.SkuID, Requested: qty, Available: inv.Available}
	}
	inv.Available -= qty
	inv.Frozen += qty
	inv.record(OpFreeze, qty, "", "", reason)
	return nil
}

// Unfreeze 解冻库存。
func (inv *Inventory) Unfreeze(qty int64, reason string) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	if inv.Frozen < qty {
		return ErrInsufficientFrozen
	}
	inv.Frozen -= qty
	inv.Available += qty
	inv.record(OpUnfreeze, qty, "", "", reason)
	return nil
}

// Adjust 按盘点结果把总量调整到 newTotal，可用量重算为 newTotal - (预占+冻结)。
func (inv *Inventory) Adjust(newTotal int64, reason string) error {
	if inv.Status != StatusActive {
		return ErrInactiveInventory
	}
	if newTotal < 0 {
		return ErrNonPositiveQuantity
	}

	occupied := inv.Reserved + inv.Frozen
	if newTotal < occupied {
		return &BelowOccupiedError{NewTotal: newTotal, Occupied: occupied}
	}
	if newTotal == inv.Total {
		return nil
	}

	opType := OpAdjustIncrease
	delta := newTotal - inv.Total
	if delta < 0 {
		opType = OpAdjustDecrease
		delta = -delta
	}

	inv.Total = newTotal
	inv.Available = newTotal - occupied
	inv.record(opType, delta, "", "", reason)
	return nil
}

// StockIn 入库。
func (inv *Inventory) StockIn(qty int64, reason string) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	if inv.Status != StatusActive {
		return ErrInactiveInventory
	}
	inv.Total += qty
	inv.Available += qty
	inv.record(OpStockIn, qty, "", "", reason)
	return nil
}

// StockOut 直接出库（不经过预占的场景）。
func (inv *Inventory) StockOut(qty int64, reason string) error {
	if qty <= 0 {
		return ErrNonPositiveQuantity
	}
	if inv.Status != StatusActive {
		return ErrInactiveInventory
	}
	if inv.Available < qty {
		return &InsufficientStockError{SkuID: inv.SkuID, Requested: qty, Available: inv.Available}
	}
	inv.Total -= qty
	inv.Available -= qty
	inv.record(OpStockOut, qty, "", "", reason)
	return nil
}

// Activate 启用台账。
func (inv *Inventory) Activate() {
	inv.Status = StatusActive
	inv.UpdatedAt = time.Now()
}

// Deactivate 停用台账，停用后不再接受预占与出入库。
func (inv *Inventory) Deactivate() {
	inv.Status = StatusInactive
	inv.UpdatedAt = time.Now()
}

// Delete 逻辑删除，仅允许零库存时删除。
func (inv *Inventory) Delete() error {
	if inv.Total != 0 {
		return ErrNonZeroOnDelete
	}
	inv.Status = StatusDeleted
	inv.UpdatedAt = time.Now()
	return nil
}

// IsSufficient 判断可用库存是否满足需求。
func (inv *Inventory) IsSufficient(qty int64) bool {
	return inv.Available >= qty
}

// IsBelowSafetyStock 判断总量是否已低于安全库存。
func (inv *Inventory) IsBelowSafetyStock() bool {
	return inv.Total < inv.SafetyStock
}

// ValidateConsistency 校验不变式 Total == Available + Reserved + Frozen。
func (inv *Inventory) ValidateConsistency() error {
	if inv.Available < 0 || inv.Reserved < 0 || inv.Frozen < 0 {
		return ErrInconsistentLedger
	}
	if inv.Total != inv.Available+inv.Reserved+inv.Frozen {
		return ErrInconsistentLedger
	}
	return nil
}

// PendingOperations 返回并清空累积的操作流水，由仓储层在落库时调用。
func (inv *Inventory) PendingOperations() []Operation {
	ops := inv.pendingOps
	inv.pendingOps = nil
	return ops
}

func (inv *Inventory) record(opType OperationType, qty int64, referenceID, operatorID, reason string) {
	inv.UpdatedAt = time.Now()
	inv.pendingOps = append(inv.pendingOps, Operation{
		Type:        opType,
		Quantity:    qty,
		ReferenceID: referenceID,
		OperatorID:  operatorID,
		Reason:      reason,
		OccurredAt:  inv.UpdatedAt,
	})
}
