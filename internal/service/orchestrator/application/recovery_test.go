// internal/service/orchestrator/application/recovery_test.go
package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"gomall/internal/service/orchestrator/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledSaga 造一个更新时间在宽限期之前的 RUNNING 实例。
func stalledSaga(t *testing.T, f *fixture, id string) *domain.SagaInstance {
	t.Helper()
	items := []domain.ReservationIntent{
		{SkuID: "sku-a", WarehouseID: "WH-1", Quantity: 1},
		{SkuID: "sku-b", WarehouseID: "WH-1", Quantity: 2},
	}
	saga := domain.NewSagaInstance(id, "user-1", items, 30*time.Second)
	saga.UpdatedAt = time.Now().Add(-5 * time.Minute)
	require.NoError(t, f.store.Save(context.Background(), saga))
	return saga
}

func newSweeper(f *fixture) *RecoverySweeper {
	// zkConn 为 nil 时跳过分布式锁，单元测试走这条路径
	return NewRecoverySweeper(f.store, f.inventory, f.orders, nil, time.Minute, time.Minute)
}

func TestSweepCompensatesStalledSaga(t *testing.T) {
	f := newFixture()
	stalledSaga(t, f, "saga-stalled")

	newSweeper(f).Sweep(context.Background())

	assert.True(t, f.orders.cancelled)
	// 盲释放按 Items 的逆序进行
	assert.Equal(t, []string{"sku-b", "sku-a"}, f.inventory.released)

	saga, err := f.store.FindByID(context.Background(), "saga-stalled")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompensated, saga.Status)
}

func TestSweepSkipsFreshAndTerminalSagas(t *testing.T) {
	f := newFixture()

	fresh := domain.NewSagaInstance("saga-fresh", "user-1",
		[]domain.ReservationIntent{{SkuID: "sku-a", WarehouseID: "WH-1", Quantity: 1}}, 30*time.Second)
	require.NoError(t, f.store.Save(context.Background(), fresh))

	done := stalledSaga(t, f, "saga-done")
	done.Complete()
	done.UpdatedAt = time.Now().Add(-5 * time.Minute)
	require.NoError(t, f.store.Save(context.Background(), done))

	newSweeper(f).Sweep(context.Background())

	assert.False(t, f.orders.cancelled)
	assert.Empty(t, f.inventory.released)

	saga, err := f.store.FindByID(context.Background(), "saga-fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaRunning, saga.Status)
}

// 订单从未创建时取消会被业务性拒绝，恢复流程视为无事可做。
func TestSweepTreatsBusinessRejectionAsNoop(t *testing.T) {
	f := newFixture()
	f.orders.cancelErr = &domain.StepError{Kind: domain.KindValidation, Cause: errors.New("order not found")}
	stalledSaga(t, f, "saga-no-order")

	newSweeper(f).Sweep(context.Background())

	assert.Equal(t, []string{"sku-b", "sku-a"}, f.inventory.released)

	saga, err := f.store.FindByID(context.Background(), "saga-no-order")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompensated, saga.Status)
}

func TestSweepMarksFailedWhenReleaseKeepsFailing(t *testing.T) {
	f := newFixture()
	f.inventory.releaseErr = &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: errors.New("inventory down")}
	stalledSaga(t, f, "saga-broken")

	newSweeper(f).Sweep(context.Background())

	saga, err := f.store.FindByID(context.Background(), "saga-broken")
	require.NoError(t, err)
	// 释放不掉就标 FAILED 留给对账，不能悄悄标成已补偿
	assert.Equal(t, domain.SagaFailed, saga.Status)
}
