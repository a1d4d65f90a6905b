// internal/service/orchestrator/domain/store.go
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSagaNotFound 表示实例不存在。
var ErrSagaNotFound = errors.New("saga: instance not found")

// SagaStore 是 saga 日志的持久化接口。
// 每个步骤执行前后各写一次，协调器崩溃后据此恢复。
type SagaStore interface {
	Save(ctx context.Context, saga *SagaInstance) error
	FindByID(ctx context.Context, id string) (*SagaInstance, error)
	// FindStalled 返回更新时间早于 olderThan 的非终态实例，恢复扫描用。
	FindStalled(ctx context.Context, olderThan time.Time) ([]*SagaInstance, error)
}

// StepError 是步骤执行失败的内部表示。
// Kind 决定协调器是原地重试还是立刻进入补偿。
type StepError struct {
	Kind  ErrorKind
	Cause error
}

func (e *StepError) Error() string {
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *StepError) Unwrap() error { return e.Cause }

// Transient 判断该错误是否值得原地重试。
func (e *StepError) Transient() bool {
	return e.Kind == KindConflict || e.Kind == KindCollaboratorUnavailable
}
