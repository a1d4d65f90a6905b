// internal/service/payment/application/service.go
package application

import (
	"context"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/payment/domain"
)

// PaymentService 处理支付单的创建、回调确认与退款。
type PaymentService struct {
	repo domain.PaymentRepository
}

func NewPaymentService(repo domain.PaymentRepository) *PaymentService {
	return &PaymentService{repo: repo}
}

// CreatePayment 为订单开一笔支付单并立即进入处理中。
// 以 orderID 做幂等键，重复请求直接返回已有的支付单。
func (s *PaymentService) CreatePayment(ctx context.Context, orderID, userID string, amount int64, method domain.Method) (*domain.Payment, error) {
	if existing, err := s.repo.FindByOrderID(ctx, orderID); err == nil {
		logger.Ctx(ctx).Info().
			Str("order_id", orderID).
			Str("payment_id", existing.ID).
			Msg("payment already exists, returning existing record")
		return existing, nil
	} else if err != domain.ErrNotFound {
		return nil, err
	}

	payment, err := domain.NewPayment(orderID, userID, amount, method)
	if err != nil {
		return nil, err
	}
	if err := payment.StartProcessing(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("payment_id", payment.ID).
		Str("order_id", orderID).
		Int64("amount", amount).
		Str("method", string(payment.Method)).
		Msg("payment created")
	return payment, nil
}

// ConfirmPayment 是支付网关回调的入口，标记支付成功。
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID, transactionID, gateway string) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkPaid(transactionID, gateway); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().
		Str("payment_id", payment.ID).
		Str("transaction_id", transactionID).
		Msg("payment confirmed")
	return payment, nil
}

// FailPayment 标记支付失败。
func (s *PaymentService) FailPayment(ctx context.Context, paymentID, reason string) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RefundPayment 按订单号退款，补偿场景下对未支付的支付单直接返回成功。
func (s *PaymentService) RefundPayment(ctx context.Context, orderID, reason string) (*domain.Payment, error) {
	payment, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// 补偿到来时支付单可能还未支付，此时改为失败即可。
	if payment.Status == domain.StatusPending || payment.Status == domain.StatusProcessing {
		if err := payment.MarkFailed(reason); err != nil {
			return nil, err
		}
	} else if payment.Status != domain.StatusRefunded {
		if err := payment.Refund(reason); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, payment); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().
		Str("payment_id", payment.ID).
		Str("order_id", orderID).
		Str("status", string(payment.Status)).
		Msg("payment refunded or voided")
	return payment, nil
}

// GetPayment 查询支付单。
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.repo.FindByID(ctx, paymentID)
}

// GetPaymentByOrder 按订单号查询支付单。
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}
