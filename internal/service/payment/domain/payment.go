// internal/service/payment/domain/payment.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status 定义支付单的生命周期状态。
// PENDING -> PROCESSING -> {PAID | FAILED}，PAID -> REFUNDED。
// PAID / FAILED / REFUNDED 对支付单而言是终态。
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

// Method 是支付方式。
type Method string

const (
	MethodAlipay     Method = "ALIPAY"
	MethodWechat     Method = "WECHAT"
	MethodCreditCard Method = "CREDIT_CARD"
)

// InvalidStateTransitionError 标明一次非法的支付状态迁移边。
type InvalidStateTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("payment: invalid state transition %s -> %s", e.From, e.To)
}

// Payment 是支付聚合根。金额以分为单位。
type Payment struct {
	ID            string
	OrderID       string
	UserID        string
	Amount        int64
	Method        Method
	Status        Status
	TransactionID string
	Gateway       string
	FailureReason string
	CreatedAt     time.Time
	PaidAt        time.Time
	UpdatedAt     time.Time
}

// NewPayment 为订单开一笔待支付记录。
func NewPayment(orderID, userID string, amount int64, method Method) (*Payment, error) {
	if orderID == "" || userID == "" {
		return nil, errors.New("payment: order id and user id are required")
	}
	if amount <= 0 {
		return nil, errors.New("payment: amount must be positive")
	}
	if method == "" {
		method = MethodAlipay // 默认支付宝
	}
	now := time.Now()
	return &Payment{
		ID:        "PAY" + uuid.New().String(),
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StartProcessing 开始处理支付。
func (p *Payment) StartProcessing() error {
	if p.Status != StatusPending {
		return &InvalidStateTransitionError{From: p.Status, To: StatusProcessing}
	}
	p.Status = StatusProcessing
	p.UpdatedAt = time.Now()
	return nil
}

// MarkPaid 标记支付成功，记录第三方交易号与网关。
func (p *Payment) MarkPaid(transactionID, gateway string) error {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return &InvalidStateTransitionError{From: p.Status, To: StatusPaid}
	}
	if transactionID == "" {
		return errors.New("payment: transaction id is required")
	}
	p.Status = StatusPaid
	p.TransactionID = transactionID
	p.Gateway = gateway
	p.FailureReason = ""
	p.PaidAt = time.Now()
	p.UpdatedAt = p.PaidAt
	return nil
}

// MarkFailed 标记支付失败。
func (p *Payment) MarkFailed(reason string) error {
	if p.Status != StatusPending && p.Status != StatusProcessing {
		return &InvalidStateTransitionError{From: p.Status, To: StatusFailed}
	}
	p.Status = StatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return nil
}

// Refund 退款，仅已支付的记录可退。
func (p *Payment) Refund(reason string) error {
	if p.Status != StatusPaid {
		return &InvalidStateTransitionError{From: p.Status, To: StatusRefunded}
	}
	p.Status = StatusRefunded
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	return nil
}

// IsTerminal 判断支付单是否处于终态。
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusPaid || p.Status == StatusFailed || p.Status == StatusRefunded
}
