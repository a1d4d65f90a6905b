// internal/service/orchestrator/domain/errors.go
package domain

import "fmt"

// ErrorKind 是编排错误的封闭枚举。调用方按 kind 分支，不做字符串匹配。
type ErrorKind string

const (
	// KindValidation 用户或商品校验失败，不可重试。
	KindValidation ErrorKind = "VALIDATION"
	// KindInsufficientStock 库存不足，不可重试。
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	// KindConflict 乐观锁冲突重试耗尽，可由调用方重新发起。
	KindConflict ErrorKind = "CONFLICT"
	// KindCollaboratorUnavailable 协作方超时或连接失败，可由调用方重新发起。
	KindCollaboratorUnavailable ErrorKind = "COLLABORATOR_UNAVAILABLE"
	// KindCompensationFailure 补偿动作本身失败，需要人工对账。
	KindCompensationFailure ErrorKind = "COMPENSATION_FAILURE"
)

// OrchestrationError 是编排器对外的唯一错误类型，
// 携带首个根因、出错的步骤，以及补偿是否全部成功。
type OrchestrationError struct {
	Kind ErrorKind
	Step string
	// CompensationComplete 为 false 时存在遗留的预留或订单，需要对账
	CompensationComplete bool
	Cause                error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("orchestration failed at step %s (%s, compensated=%t): %v",
		e.Step, e.Kind, e.CompensationComplete, e.Cause)
}

func (e *OrchestrationError) Unwrap() error { return e.Cause }

// Retryable 判断调用方重新提交同一请求是否有意义。
func (e *OrchestrationError) Retryable() bool {
	return e.Kind == KindConflict || e.Kind == KindCollaboratorUnavailable
}

// InsufficientStockError 描述某个 SKU 的缺口。
type InsufficientStockError struct {
	SkuID     string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %s: requested %d, available %d",
		e.SkuID, e.Requested, e.Available)
}

// Shortfall 返回缺口数量。
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// CompensationFailureError 记录哪些补偿动作失败了，
// 留给对账系统恢复孤儿预留。
type CompensationFailureError struct {
	SagaID      string
	FailedSteps []string
	Cause       error
}

func (e *CompensationFailureError) Error() string {
	return fmt.Sprintf("saga %s compensation failed at steps %v: %v", e.SagaID, e.FailedSteps, e.Cause)
}

func (e *CompensationFailureError) Unwrap() error { return e.Cause }
