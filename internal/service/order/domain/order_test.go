// internal/service/order/domain/order_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("", "user-1",
		[]Item{{SkuID: "sku-1", Quantity: 2, UnitPrice: 3000, OriginalPrice: 3500}},
		Amounts{Product: 6000, Shipping: 1000, Total: 7000},
		Address{City: "Hangzhou"}, "", "")
	require.NoError(t, err)
	return order
}

func TestNewOrderDefaults(t *testing.T) {
	order := newOrder(t)

	assert.Equal(t, StatusPending, order.Status)
	assert.NotEmpty(t, order.ID)
	assert.Contains(t, order.OrderNumber, "ORD")
	assert.False(t, order.IsTerminal())
}

func TestNewOrderUsesCallerSuppliedID(t *testing.T) {
	order, err := NewOrder("order-given", "user-1",
		[]Item{{SkuID: "sku-1", Quantity: 1, UnitPrice: 100}},
		Amounts{Product: 100, Total: 100}, Address{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "order-given", order.ID)
}

func TestNewOrderValidation(t *testing.T) {
	_, err := NewOrder("", "", []Item{{SkuID: "sku-1", Quantity: 1}}, Amounts{}, Address{}, "", "")
	assert.Error(t, err)

	_, err = NewOrder("", "user-1", nil, Amounts{}, Address{}, "", "")
	assert.Error(t, err)

	_, err = NewOrder("", "user-1", []Item{{SkuID: "sku-1", Quantity: 0}}, Amounts{}, Address{}, "", "")
	assert.Error(t, err)
}

func TestForwardLifecycle(t *testing.T) {
	order := newOrder(t)

	require.NoError(t, order.Confirm())
	require.NoError(t, order.Pay())
	require.NoError(t, order.Ship())
	require.NoError(t, order.Deliver())
	assert.Equal(t, StatusDelivered, order.Status)
	assert.True(t, order.IsTerminal())
}

func TestSkippingStatesRejected(t *testing.T) {
	order := newOrder(t)

	// PENDING 不能直接支付或发货
	var invalid *InvalidStateTransitionError
	require.ErrorAs(t, order.Pay(), &invalid)
	assert.Equal(t, StatusPending, invalid.From)
	assert.ErrorAs(t, order.Ship(), &invalid)
	assert.Equal(t, StatusPending, order.Status)
}

func TestCancelIsIdempotent(t *testing.T) {
	order := newOrder(t)
	require.NoError(t, order.Confirm())

	require.NoError(t, order.Cancel("saga compensation"))
	assert.Equal(t, StatusCancelled, order.Status)
	assert.Equal(t, "saga compensation", order.CancelReason)

	// 补偿重试会重复取消，第二次保持第一次的原因
	require.NoError(t, order.Cancel("retry"))
	assert.Equal(t, "saga compensation", order.CancelReason)
	assert.True(t, order.IsTerminal())
}

func TestCancelAfterDeliveredRejected(t *testing.T) {
	order := newOrder(t)
	require.NoError(t, order.Confirm())
	require.NoError(t, order.Pay())
	require.NoError(t, order.Ship())
	require.NoError(t, order.Deliver())

	var invalid *InvalidStateTransitionError
	require.ErrorAs(t, order.Cancel("too late"), &invalid)
	assert.Equal(t, StatusDelivered, invalid.From)
	assert.Equal(t, StatusCancelled, invalid.To)
}

func TestNoForwardTransitionAfterCancel(t *testing.T) {
	order := newOrder(t)
	require.NoError(t, order.Cancel("user requested"))

	assert.Error(t, order.Confirm())
	assert.Error(t, order.Pay())
	assert.Equal(t, StatusCancelled, order.Status)
}
