// internal/service/inventory/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 业务错误（不可重试）。
var (
	ErrMissingIdentity      = errors.New("inventory: sku id and warehouse id are required")
	ErrMissingReference     = errors.New("inventory: reference id is required")
	ErrNonPositiveQuantity  = errors.New("inventory: quantity must be positive")
	ErrInactiveInventory    = errors.New("inventory: ledger is not active")
	ErrInsufficientReserved = errors.New("inventory: insufficient reserved stock")
	ErrInsufficientFrozen   = errors.New("inventory: insufficient frozen stock")
	ErrReservationReleased  = errors.New("inventory: reservation was already released")
	ErrReservationConfirmed = errors.New("inventory: reservation was already confirmed")
	ErrNonZeroOnDelete      = errors.New("inventory: cannot delete ledger with non-zero stock")
	ErrInconsistentLedger   = errors.New("inventory: ledger quantities violate total == available + reserved + frozen")
	ErrNotFound             = errors.New("inventory: ledger not found")
)

// ErrVersionConflict 表示 CAS 写回时版本号已被其他操作推进，可重试。
var ErrVersionConflict = errors.New("inventory: version conflict")

// InsufficientStockError 携带缺口信息的可用库存不足错误。
type InsufficientStockError struct {
	SkuID     string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for sku %s: requested %d, available %d",
		e.SkuID, e.Requested, e.Available)
}

// Shortfall 返回缺口数量。
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// BelowOccupiedError 表示盘点调整的目标总量低于已占用量（预占+冻结）。
type BelowOccupiedError struct {
	NewTotal int64
	Occupied int64
}

func (e *BelowOccupiedError) Error() string {
	return fmt.Sprintf("inventory: new total %d is below occupied quantity %d", e.NewTotal, e.Occupied)
}

// IsBusinessError 判断错误是否属于不可重试的业务错误。
// 版本冲突、未知错误不在此列。
func IsBusinessError(err error) bool {
	var insufficient *InsufficientStockError
	var belowOccupied *BelowOccupiedError
	switch {
	case errors.As(err, &insufficient), errors.As(err, &belowOccupied):
		return true
	case errors.Is(err, ErrMissingIdentity),
		errors.Is(err, ErrMissingReference),
		errors.Is(err, ErrNonPositiveQuantity),
		errors.Is(err, ErrInactiveInventory),
		errors.Is(err, ErrInsufficientReserved),
		errors.Is(err, ErrInsufficientFrozen),
		errors.Is(err, ErrReservationReleased),
		errors.Is(err, ErrReservationConfirmed),
		errors.Is(err, ErrNonZeroOnDelete),
		errors.Is(err, ErrNotFound):
		return true
	}
	return false
}
