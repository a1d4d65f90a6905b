// internal/service/orchestrator/domain/saga_test.go
package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSaga(t *testing.T) *SagaInstance {
	t.Helper()
	items := []ReservationIntent{{SkuID: "sku-1", WarehouseID: "WH-1", Quantity: 2}}
	return NewSagaInstance("saga-1", "user-1", items, 30*time.Second)
}

func TestNewSagaInstanceStartsRunning(t *testing.T) {
	saga := newSaga(t)

	assert.Equal(t, SagaRunning, saga.Status)
	assert.False(t, saga.IsTerminal())
	require.Len(t, saga.Steps, 6)
	for _, step := range saga.Steps {
		assert.Equal(t, StepPending, step.Status)
	}
	assert.True(t, saga.Deadline.After(saga.StartedAt))
}

func TestMarkStepTransitions(t *testing.T) {
	saga := newSaga(t)

	require.NoError(t, saga.MarkStepDone(StepValidateUser))
	require.NoError(t, saga.MarkStepFailed(StepReserveInventory, errors.New("stock short")))
	require.NoError(t, saga.MarkStepCompensated(StepValidateUser))

	byName := map[string]Step{}
	for _, s := range saga.Steps {
		byName[s.Name] = s
	}
	assert.Equal(t, StepCompensated, byName[StepValidateUser].Status)
	assert.Equal(t, StepFailed, byName[StepReserveInventory].Status)
	assert.Equal(t, "stock short", byName[StepReserveInventory].Error)

	assert.Error(t, saga.MarkStepDone("NoSuchStep"))
}

func TestDoneStepsReverseOrder(t *testing.T) {
	saga := newSaga(t)
	require.NoError(t, saga.MarkStepDone(StepValidateUser))
	require.NoError(t, saga.MarkStepDone(StepReserveInventory))
	require.NoError(t, saga.MarkStepDone(StepCreateOrder))
	require.NoError(t, saga.MarkStepFailed(StepCreatePayment, errors.New("gateway down")))

	// 补偿按执行顺序的逆序进行
	assert.Equal(t,
		[]string{StepCreateOrder, StepReserveInventory, StepValidateUser},
		saga.DoneStepsReverse())
}

func TestSagaLifecycleTerminalStates(t *testing.T) {
	for _, tc := range []struct {
		name     string
		finish   func(*SagaInstance)
		status   SagaStatus
		terminal bool
	}{
		{"completed", (*SagaInstance).Complete, SagaCompleted, true},
		{"compensating", (*SagaInstance).BeginCompensation, SagaCompensating, false},
		{"compensated", (*SagaInstance).Compensated, SagaCompensated, true},
		{"failed", (*SagaInstance).Fail, SagaFailed, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			saga := newSaga(t)
			tc.finish(saga)
			assert.Equal(t, tc.status, saga.Status)
			assert.Equal(t, tc.terminal, saga.IsTerminal())
		})
	}
}

func TestExpired(t *testing.T) {
	saga := newSaga(t)
	assert.False(t, saga.Expired(saga.StartedAt.Add(time.Second)))
	assert.True(t, saga.Expired(saga.Deadline.Add(time.Millisecond)))
}
