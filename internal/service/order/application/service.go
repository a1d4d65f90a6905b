// internal/service/order/application/service.go
package application

import (
	"context"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/order/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrderService 是订单服务的应用层。订单的创建与取消由编排器驱动，
// 支付/发货/收货由各自的回调事件驱动。
type OrderService struct {
	repo   domain.OrderRepository
	tracer trace.Tracer
}

func NewOrderService(repo domain.OrderRepository, tracer trace.Tracer) *OrderService {
	return &OrderService{repo: repo, tracer: tracer}
}

// CreateOrder 持久化一个新订单并立即确认。
// 金额由编排器计算完成后传入，订单服务不重算价格。
// orderID 由编排器预先生成；重复的 orderID 直接返回已有订单，保证重试幂等。
func (s *OrderService) CreateOrder(ctx context.Context, orderID, userID string, items []domain.Item, amounts domain.Amounts,
	address domain.Address, remark, couponID string) (*domain.Order, error) {

	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("items.count", len(items)))

	if orderID != "" {
		if existing, err := s.repo.FindByID(ctx, orderID); err == nil {
			logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("order already exists, returning existing record")
			return existing, nil
		} else if err != domain.ErrNotFound {
			return nil, err
		}
	}

	order, err := domain.NewOrder(orderID, userID, items, amounts, address, remark, couponID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 编排器创建的订单直接进入 CONFIRMED：价格、库存都已校验完成
	if err := order.Confirm(); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("order_id", order.ID).Str("order_number", order.OrderNumber).
		Int64("total_amount", order.Amounts.Total).Msg("order created")
	return order, nil
}

// CancelOrder 取消订单，是编排器 CreateOrder 步骤的补偿动作，可安全重试。
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := order.Cancel(reason); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("order_id", orderID).Str("reason", reason).Msg("order cancelled")
	return order, nil
}

// MarkPaid 由支付回调驱动，把订单推进到 PAID。
func (s *OrderService) MarkPaid(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.advance(ctx, "order.MarkPaid", orderID, (*domain.Order).Pay)
}

// MarkShipped 由履约事件驱动。
func (s *OrderService) MarkShipped(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.advance(ctx, "order.MarkShipped", orderID, (*domain.Order).Ship)
}

// MarkDelivered 由签收事件驱动。
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.advance(ctx, "order.MarkDelivered", orderID, (*domain.Order).Deliver)
}

// GetOrder 查询订单。
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()
	return s.repo.FindByID(ctx, orderID)
}

func (s *OrderService) advance(ctx context.Context, spanName, orderID string, mutate func(*domain.Order) error) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := mutate(order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return order, nil
}
