// internal/service/orchestrator/application/recovery.go
package application

import (
	"context"
	"errors"
	"time"

	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/metrics"
	"gomall/internal/pkg/zookeeper"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"
)

const recoveryLockResource = "saga-recovery"

// RecoverySweeper 扫描超过截止时间仍未到终态的 saga 实例并替它们补偿。
// 协调器进程崩溃后遗留的孤儿预占由这里清理。
// 多实例部署时通过 ZooKeeper 锁保证同一时刻只有一个实例在扫。
type RecoverySweeper struct {
	store     domain.SagaStore
	inventory port.InventoryService
	orders    port.OrderService
	zkConn    *zookeeper.Conn
	interval  time.Duration
	grace     time.Duration
}

func NewRecoverySweeper(store domain.SagaStore, inventory port.InventoryService, orders port.OrderService,
	zkConn *zookeeper.Conn, interval, grace time.Duration) *RecoverySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if grace <= 0 {
		grace = time.Minute
	}
	return &RecoverySweeper{
		store: store, inventory: inventory, orders: orders,
		zkConn: zkConn, interval: interval, grace: grace,
	}
}

// Run 先立即扫一轮（进程重启后尽快接手遗留实例），之后按周期扫描，
// ctx 取消后返回。
func (s *RecoverySweeper) Run(ctx context.Context) {
	s.sweepWithLock(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepWithLock(ctx)
		}
	}
}

func (s *RecoverySweeper) sweepWithLock(ctx context.Context) {
	log := logger.Ctx(ctx)

	if s.zkConn != nil {
		lock, err := zookeeper.NewDistributedLock(s.zkConn, recoveryLockResource)
		if err != nil {
			log.Error().Err(err).Msg("failed to create recovery lock")
			return
		}
		if err := lock.Lock(10 * time.Second); err != nil {
			// 别的实例正拿着锁在扫，这一轮跳过
			log.Debug().Err(err).Msg("recovery lock busy, skipping sweep")
			return
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Error().Err(err).Msg("failed to release recovery lock")
			}
		}()
	}

	s.Sweep(ctx)
}

// Sweep 执行一轮扫描。拆出来方便测试，不依赖锁。
func (s *RecoverySweeper) Sweep(ctx context.Context) {
	log := logger.Ctx(ctx)

	stalled, err := s.store.FindStalled(ctx, time.Now().Add(-s.grace))
	if err != nil {
		log.Error().Err(err).Msg("failed to list stalled sagas")
		return
	}
	for _, saga := range stalled {
		if err := s.recoverOne(ctx, saga); err != nil {
			log.Error().Err(err).Str("saga_id", saga.ID).Msg("failed to recover stalled saga")
		}
	}
}

// recoverOne 替一个中断的实例把补偿走完：
// 先取消可能已创建的订单，再释放全部预占，最后给实例定终态。
// 取消与释放都以 saga.ID 为幂等键，重复恢复是安全的。
func (s *RecoverySweeper) recoverOne(ctx context.Context, saga *domain.SagaInstance) error {
	log := logger.Ctx(ctx)
	log.Warn().Str("saga_id", saga.ID).Str("status", string(saga.Status)).Msg("recovering stalled saga")

	saga.BeginCompensation()
	if err := s.store.Save(ctx, saga); err != nil {
		return err
	}

	var firstErr error

	// 订单可能没创建过，业务性拒绝（不存在/已取消）视为无事可做
	if err := s.orders.CancelOrder(ctx, saga.ID, "saga recovery"); err != nil && !isBusinessRejection(err) {
		firstErr = err
	} else {
		metrics.CompensationExecuted.WithLabelValues(domain.StepCreateOrder, "recovered").Inc()
	}

	// 预占记录不存在时释放是空操作，可以盲释放全部行
	for i := len(saga.Items) - 1; i >= 0; i-- {
		intent := saga.Items[i]
		err := s.inventory.Release(ctx, intent.SkuID, intent.WarehouseID, intent.Quantity, saga.ID, "recovery:"+saga.ID)
		if err != nil && !isBusinessRejection(err) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.CompensationExecuted.WithLabelValues(domain.StepReserveInventory, "recovered").Inc()
	}

	if firstErr != nil {
		saga.Fail()
		if err := s.store.Save(ctx, saga); err != nil {
			return err
		}
		return &domain.CompensationFailureError{SagaID: saga.ID, FailedSteps: []string{"recovery"}, Cause: firstErr}
	}

	saga.Compensated()
	return s.store.Save(ctx, saga)
}

// isBusinessRejection 判断协作方的拒绝是否属于业务性质，
// 恢复流程里这类拒绝意味着没有东西需要补偿。
func isBusinessRejection(err error) bool {
	var stepErr *domain.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind == domain.KindValidation || stepErr.Kind == domain.KindInsufficientStock
	}
	return false
}
