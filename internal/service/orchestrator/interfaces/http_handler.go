// internal/service/orchestrator/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/orchestrator/application"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// OrchestratorHandler 暴露下单编排的对外入口。
type OrchestratorHandler struct {
	coordinator *application.Coordinator
	store       domain.SagaStore
}

func NewOrchestratorHandler(coordinator *application.Coordinator, store domain.SagaStore) *OrchestratorHandler {
	return &OrchestratorHandler{coordinator: coordinator, store: store}
}

func (h *OrchestratorHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_order", h.createOrder)
	mux.HandleFunc("/get_saga", h.getSaga)
}

// CreateOrderRequest 是下单命令的线上表示。
type CreateOrderRequest struct {
	UserID string `json:"userId"`
	Items  []struct {
		SkuID       string `json:"skuId"`
		WarehouseID string `json:"warehouseId"`
		Quantity    int64  `json:"quantity"`
	} `json:"items"`
	Address  port.Address `json:"address"`
	Remark   string       `json:"remark"`
	CouponID string       `json:"couponId"`
}

// ErrorResponse 携带错误类别与补偿是否完成，调用方据此决定能否重试。
type ErrorResponse struct {
	Kind                 string `json:"kind"`
	Step                 string `json:"step"`
	Retryable            bool   `json:"retryable"`
	CompensationComplete bool   `json:"compensationComplete"`
	Message              string `json:"message"`
}

func (h *OrchestratorHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	r = r.WithContext(ctx)

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]application.CommandItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, application.CommandItem{
			SkuID:       item.SkuID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		})
	}
	cmd := application.CreateOrderCommand{
		UserID:   req.UserID,
		Items:    items,
		Address:  req.Address,
		Remark:   req.Remark,
		CouponID: req.CouponID,
	}

	detail, err := h.coordinator.CreateOrder(r.Context(), cmd)
	if err != nil {
		writeOrchestrationError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

func (h *OrchestratorHandler) getSaga(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req struct {
		SagaID string `json:"sagaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saga, err := h.store.FindByID(ctx, req.SagaID)
	if err != nil {
		if errors.Is(err, domain.ErrSagaNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saga)
}

// writeOrchestrationError 把编排错误翻译成 HTTP 响应：
// 业务拒绝类给 422，可重试类给 503，补偿未完成的给 500 并要求人工介入。
func writeOrchestrationError(w http.ResponseWriter, r *http.Request, err error) {
	var orchErr *domain.OrchestrationError
	if !errors.As(err, &orchErr) {
		logger.Ctx(r.Context()).Error().Err(err).Msg("unexpected orchestration failure")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusUnprocessableEntity
	switch {
	case !orchErr.CompensationComplete:
		status = http.StatusInternalServerError
	case orchErr.Retryable():
		status = http.StatusServiceUnavailable
	}

	logger.Ctx(r.Context()).Warn().
		Str("kind", string(orchErr.Kind)).
		Str("step", orchErr.Step).
		Bool("compensation_complete", orchErr.CompensationComplete).
		Err(orchErr.Cause).
		Msg("order creation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Kind:                 string(orchErr.Kind),
		Step:                 orchErr.Step,
		Retryable:            orchErr.Retryable(),
		CompensationComplete: orchErr.CompensationComplete,
		Message:              orchErr.Error(),
	})
}
