// internal/service/orchestrator/domain/saga.go
package domain

import (
	"fmt"
	"time"
)

// StepStatus 是单个步骤的状态。
type StepStatus string

const (
	StepPending     StepStatus = "PENDING"
	StepDone        StepStatus = "DONE"
	StepFailed      StepStatus = "FAILED"
	StepCompensated StepStatus = "COMPENSATED"
)

// SagaStatus 是整个编排实例的状态。
// COMPLETED 与 COMPENSATED 是正常终态，FAILED 表示补偿未能完成，需要人工介入。
type SagaStatus string

const (
	SagaRunning      SagaStatus = "RUNNING"
	SagaCompleted    SagaStatus = "COMPLETED"
	SagaCompensating SagaStatus = "COMPENSATING"
	SagaCompensated  SagaStatus = "COMPENSATED"
	SagaFailed       SagaStatus = "FAILED"
)

// 步骤名。持久化到 saga 日志里，改名要考虑兼容。
const (
	StepValidateUser     = "ValidateUser"
	StepValidateProducts = "ValidateProducts"
	StepReserveInventory = "ReserveInventory"
	StepCalculatePrice   = "CalculatePrice"
	StepCreateOrder      = "CreateOrder"
	StepCreatePayment    = "CreatePayment"
)

// Step 记录一个步骤的执行结果。
type Step struct {
	Name       string
	Status     StepStatus
	Error      string
	FinishedAt time.Time
}

// ReservationIntent 记录一行要预占的库存。
// 持久化在实例里，协调器崩溃后恢复扫描据此释放孤儿预占。
type ReservationIntent struct {
	SkuID       string
	WarehouseID string
	Quantity    int64
}

// SagaInstance 是一次下单编排的持久化快照。
// ID 同时也是订单号和库存预留的幂等键。
type SagaInstance struct {
	ID        string
	UserID    string
	Status    SagaStatus
	Steps     []Step
	Items     []ReservationIntent
	StartedAt time.Time
	Deadline  time.Time
	UpdatedAt time.Time
}

// NewSagaInstance 创建一个 RUNNING 状态的实例，所有步骤置为 PENDING。
func NewSagaInstance(id, userID string, items []ReservationIntent, timeout time.Duration) *SagaInstance {
	now := time.Now()
	names := []string{
		StepValidateUser, StepValidateProducts, StepReserveInventory,
		StepCalculatePrice, StepCreateOrder, StepCreatePayment,
	}
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		steps = append(steps, Step{Name: name, Status: StepPending})
	}
	return &SagaInstance{
		ID:        id,
		UserID:    userID,
		Status:    SagaRunning,
		Steps:     steps,
		Items:     items,
		StartedAt: now,
		Deadline:  now.Add(timeout),
		UpdatedAt: now,
	}
}

func (s *SagaInstance) step(name string) (*Step, error) {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i], nil
		}
	}
	return nil, fmt.Errorf("saga %s: unknown step %s", s.ID, name)
}

// MarkStepDone 把步骤标记为 DONE。
func (s *SagaInstance) MarkStepDone(name string) error {
	step, err := s.step(name)
	if err != nil {
		return err
	}
	step.Status = StepDone
	step.FinishedAt = time.Now()
	s.UpdatedAt = step.FinishedAt
	return nil
}

// MarkStepFailed 把步骤标记为 FAILED 并记录原因。
func (s *SagaInstance) MarkStepFailed(name string, cause error) error {
	step, err := s.step(name)
	if err != nil {
		return err
	}
	step.Status = StepFailed
	if cause != nil {
		step.Error = cause.Error()
	}
	step.FinishedAt = time.Now()
	s.UpdatedAt = step.FinishedAt
	return nil
}

// MarkStepCompensated 把已完成的步骤标记为 COMPENSATED。
func (s *SagaInstance) MarkStepCompensated(name string) error {
	step, err := s.step(name)
	if err != nil {
		return err
	}
	step.Status = StepCompensated
	step.FinishedAt = time.Now()
	s.UpdatedAt = step.FinishedAt
	return nil
}

// DoneStepsReverse 按执行顺序的逆序返回所有 DONE 的步骤名，补偿按这个顺序走。
func (s *SagaInstance) DoneStepsReverse() []string {
	names := make([]string, 0, len(s.Steps))
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if s.Steps[i].Status == StepDone {
			names = append(names, s.Steps[i].Name)
		}
	}
	return names
}

// BeginCompensation 进入补偿阶段。
func (s *SagaInstance) BeginCompensation() {
	s.Status = SagaCompensating
	s.UpdatedAt = time.Now()
}

// Complete 标记编排成功结束。
func (s *SagaInstance) Complete() {
	s.Status = SagaCompleted
	s.UpdatedAt = time.Now()
}

// Compensated 标记补偿全部完成。
func (s *SagaInstance) Compensated() {
	s.Status = SagaCompensated
	s.UpdatedAt = time.Now()
}

// Fail 标记补偿未能完成，等待人工对账。
func (s *SagaInstance) Fail() {
	s.Status = SagaFailed
	s.UpdatedAt = time.Now()
}

// IsTerminal 判断实例是否不再需要推进。
func (s *SagaInstance) IsTerminal() bool {
	return s.Status == SagaCompleted || s.Status == SagaCompensated || s.Status == SagaFailed
}

// Expired 判断实例是否已超过截止时间。
func (s *SagaInstance) Expired(now time.Time) bool {
	return now.After(s.Deadline)
}
