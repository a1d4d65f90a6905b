// internal/service/payment/domain/payment_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := NewPayment("order-1", "user-1", 7000, MethodAlipay)
	require.NoError(t, err)
	return p
}

func TestNewPaymentDefaults(t *testing.T) {
	p := newPayment(t)
	assert.Equal(t, StatusPending, p.Status)
	assert.False(t, p.IsTerminal())

	// 不指定支付方式时默认支付宝
	p2, err := NewPayment("order-2", "user-1", 100, "")
	require.NoError(t, err)
	assert.Equal(t, MethodAlipay, p2.Method)
}

func TestNewPaymentValidation(t *testing.T) {
	_, err := NewPayment("", "user-1", 100, MethodAlipay)
	assert.Error(t, err)
	_, err = NewPayment("order-1", "user-1", 0, MethodAlipay)
	assert.Error(t, err)
	_, err = NewPayment("order-1", "user-1", -5, MethodAlipay)
	assert.Error(t, err)
}

func TestPaymentHappyPath(t *testing.T) {
	p := newPayment(t)

	require.NoError(t, p.StartProcessing())
	require.NoError(t, p.MarkPaid("txn-123", "alipay-gateway"))

	assert.Equal(t, StatusPaid, p.Status)
	assert.Equal(t, "txn-123", p.TransactionID)
	assert.Equal(t, "alipay-gateway", p.Gateway)
	assert.False(t, p.PaidAt.IsZero())
	assert.True(t, p.IsTerminal())
}

func TestMarkPaidRequiresTransactionID(t *testing.T) {
	p := newPayment(t)
	require.NoError(t, p.StartProcessing())
	assert.Error(t, p.MarkPaid("", "alipay-gateway"))
	assert.Equal(t, StatusProcessing, p.Status)
}

func TestMarkFailedThenNoFurtherTransitions(t *testing.T) {
	p := newPayment(t)
	require.NoError(t, p.StartProcessing())
	require.NoError(t, p.MarkFailed("insufficient balance"))

	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "insufficient balance", p.FailureReason)
	assert.True(t, p.IsTerminal())

	var invalid *InvalidStateTransitionError
	require.ErrorAs(t, p.MarkPaid("txn-1", "gw"), &invalid)
	assert.Equal(t, StatusFailed, invalid.From)
	assert.ErrorAs(t, p.StartProcessing(), &invalid)
}

func TestRefundOnlyFromPaid(t *testing.T) {
	p := newPayment(t)

	var invalid *InvalidStateTransitionError
	require.ErrorAs(t, p.Refund("not yet paid"), &invalid)

	require.NoError(t, p.StartProcessing())
	require.NoError(t, p.MarkPaid("txn-1", "gw"))
	require.NoError(t, p.Refund("saga compensation"))
	assert.Equal(t, StatusRefunded, p.Status)

	// 退过款的单子不能再退
	assert.ErrorAs(t, p.Refund("again"), &invalid)
}
