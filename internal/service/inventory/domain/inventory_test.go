// internal/service/inventory/domain/inventory_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, available int64) *Inventory {
	t.Helper()
	inv, err := NewInventory("sku-1", "WH-1", available, 0)
	require.NoError(t, err)
	return inv
}

// assertInvariant 校验台账不变式，所有用例的每一步之后都要成立。
func assertInvariant(t *testing.T, inv *Inventory) {
	t.Helper()
	require.NoError(t, inv.ValidateConsistency())
}

func TestReserveMovesAvailableToReserved(t *testing.T) {
	inv := newLedger(t, 10)

	replayed, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(6), inv.Available)
	assert.Equal(t, int64(4), inv.Reserved)
	assert.Equal(t, int64(10), inv.Total)
	assertInvariant(t, inv)
}

func TestReserveAllThenOneMoreFails(t *testing.T) {
	inv := newLedger(t, 10)

	_, err := inv.Reserve(10, "order-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), inv.Available)
	assert.Equal(t, int64(10), inv.Reserved)

	_, err = inv.Reserve(1, "order-2", "op-1")
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Requested)
	assert.Equal(t, int64(0), insufficient.Available)
	assert.Equal(t, int64(1), insufficient.Shortfall())
	assertInvariant(t, inv)
}

func TestReserveIsIdempotentOnReference(t *testing.T) {
	inv := newLedger(t, 10)

	_, err := inv.Reserve(3, "order-1", "op-1")
	require.NoError(t, err)

	replayed, err := inv.Reserve(3, "order-1", "op-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	// 状态只变化一次
	assert.Equal(t, int64(7), inv.Available)
	assert.Equal(t, int64(3), inv.Reserved)
	assertInvariant(t, inv)
}

func TestReserveReusedReferenceAfterRelease(t *testing.T) {
	inv := newLedger(t, 10)

	_, err := inv.Reserve(3, "order-1", "op-1")
	require.NoError(t, err)
	_, err = inv.ReleaseReservation(3, "order-1", "op-1")
	require.NoError(t, err)

	_, err = inv.Reserve(3, "order-1", "op-1")
	assert.ErrorIs(t, err, ErrReservationReleased)
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	inv := newLedger(t, 10)

	_, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)
	replayed, err := inv.ReleaseReservation(4, "order-1", "op-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.Equal(t, int64(10), inv.Available)
	assert.Equal(t, int64(0), inv.Reserved)
	assert.Equal(t, int64(10), inv.Total)
	assertInvariant(t, inv)
}

func TestReleaseIsIdempotent(t *testing.T) {
	inv := newLedger(t, 10)

	_, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)
	_, err = inv.ReleaseReservation(4, "order-1", "op-1")
	require.NoError(t, err)

	replayed, err := inv.ReleaseReservation(4, "order-1", "op-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, int64(10), inv.Available)
	assertInvariant(t, inv)
}

func TestReleaseUnknownReferenceIsNoop(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)

	// 从未预占过的 referenceID，释放不应动任何数量
	replayed, err := inv.ReleaseReservation(4, "order-unknown", "op-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, int64(6), inv.Available)
	assert.Equal(t, int64(4), inv.Reserved)
	assertInvariant(t, inv)
}

func TestReleaseConfirmedReservationFails(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)
	_, err = inv.ConfirmReservation(4, "order-1", "op-1")
	require.NoError(t, err)

	_, err = inv.ReleaseReservation(4, "order-1", "op-1")
	assert.ErrorIs(t, err, ErrReservationConfirmed)
}

func TestConfirmRemovesFromReservedAndTotal(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(4, "order-1", "op-1")
	require.NoError(t, err)

	replayed, err := inv.ConfirmReservation(4, "order-1", "op-1")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(6), inv.Total)
	assert.Equal(t, int64(6), inv.Available)
	assert.Equal(t, int64(0), inv.Reserved)
	assertInvariant(t, inv)

	replayed, err = inv.ConfirmReservation(4, "order-1", "op-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, int64(6), inv.Total)
}

func TestReserveOnInactiveLedger(t *testing.T) {
	inv := newLedger(t, 10)
	inv.Deactivate()

	_, err := inv.Reserve(1, "order-1", "op-1")
	assert.ErrorIs(t, err, ErrInactiveInventory)
}

func TestAdjustRecomputesAvailable(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(3, "order-1", "op-1")
	require.NoError(t, err)
	require.NoError(t, inv.Freeze(2, "audit"))

	require.NoError(t, inv.Adjust(20, "stocktaking"))
	assert.Equal(t, int64(20), inv.Total)
	assert.Equal(t, int64(15), inv.Available)
	assert.Equal(t, int64(3), inv.Reserved)
	assert.Equal(t, int64(2), inv.Frozen)
	assertInvariant(t, inv)
}

func TestAdjustBelowOccupiedRejected(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(3, "order-1", "op-1")
	require.NoError(t, err)
	require.NoError(t, inv.Freeze(2, "audit"))

	err = inv.Adjust(4, "stocktaking")
	var belowOccupied *BelowOccupiedError
	require.ErrorAs(t, err, &belowOccupied)
	assert.Equal(t, int64(5), belowOccupied.Occupied)
	assertInvariant(t, inv)
}

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	inv := newLedger(t, 10)

	require.NoError(t, inv.Freeze(6, "audit"))
	assert.Equal(t, int64(4), inv.Available)
	assert.Equal(t, int64(6), inv.Frozen)
	assertInvariant(t, inv)

	require.NoError(t, inv.Unfreeze(6, "audit done"))
	assert.Equal(t, int64(10), inv.Available)
	assert.Equal(t, int64(0), inv.Frozen)
	assertInvariant(t, inv)

	assert.ErrorIs(t, inv.Unfreeze(1, "too much"), ErrInsufficientFrozen)
}

func TestDeleteRequiresZeroStock(t *testing.T) {
	inv := newLedger(t, 10)
	assert.ErrorIs(t, inv.Delete(), ErrNonZeroOnDelete)

	require.NoError(t, inv.StockOut(10, "clear out"))
	require.NoError(t, inv.Delete())
	assert.Equal(t, StatusDeleted, inv.Status)
}

// TestInvariantAcrossOperationSequence 跑一段混合操作序列，
// 每一步之后不变式都必须成立。
func TestInvariantAcrossOperationSequence(t *testing.T) {
	inv := newLedger(t, 100)

	steps := []func() error{
		func() error { _, err := inv.Reserve(30, "order-1", "op"); return err },
		func() error { return inv.Freeze(10, "audit") },
		func() error { _, err := inv.Reserve(20, "order-2", "op"); return err },
		func() error { _, err := inv.ReleaseReservation(30, "order-1", "op"); return err },
		func() error { return inv.StockIn(50, "replenish") },
		func() error { _, err := inv.ConfirmReservation(20, "order-2", "op"); return err },
		func() error { return inv.Unfreeze(10, "audit done") },
		func() error { return inv.Adjust(200, "stocktaking") },
		func() error { return inv.StockOut(5, "damage") },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assertInvariant(t, inv)
	}
}

func TestPendingOperationsDrained(t *testing.T) {
	inv := newLedger(t, 10)
	_, err := inv.Reserve(2, "order-1", "op")
	require.NoError(t, err)
	require.NoError(t, inv.Freeze(1, "audit"))

	ops := inv.PendingOperations()
	require.Len(t, ops, 2)
	assert.Equal(t, OpReserve, ops[0].Type)
	assert.Equal(t, OpFreeze, ops[1].Type)
	assert.Empty(t, inv.PendingOperations())
}
