// internal/service/orchestrator/infrastructure/adapter/adapter.go
// Package adapter 把协作方的 HTTP/Kafka 接口适配成 port 里的接口，
// 并把传输层错误归入封闭的错误类别：
// 4xx 是业务拒绝（不可重试），5xx 与网络错误是协作方不可用（可重试），
// 503 在库存服务的约定里表示乐观锁冲突重试耗尽。
package adapter

import (
	"errors"
	"net/http"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
)

// 协作方在注册中心里的服务名。
const (
	UserServiceName      = "user-service"
	ProductServiceName   = "product-service"
	InventoryServiceName = "inventory-service"
	OrderServiceName     = "order-service"
	PaymentServiceName   = "payment-service"
)

// classify 按状态码给错误打标。businessKind 指明该操作 422 时对应的业务错误类别。
func classify(err error, businessKind domain.ErrorKind) error {
	if err == nil {
		return nil
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusServiceUnavailable:
			return &domain.StepError{Kind: domain.KindConflict, Cause: err}
		case statusErr.StatusCode == http.StatusUnprocessableEntity:
			return &domain.StepError{Kind: businessKind, Cause: err}
		case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return &domain.StepError{Kind: domain.KindValidation, Cause: err}
		default:
			return &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: err}
		}
	}
	// 网络错误、超时、服务发现失败
	return &domain.StepError{Kind: domain.KindCollaboratorUnavailable, Cause: err}
}
