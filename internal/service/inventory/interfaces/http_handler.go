// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/inventory/application"
	"gomall/internal/service/inventory/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InventoryHandler 暴露库存服务的 HTTP 接口。
type InventoryHandler struct {
	service *application.InventoryService
}

func NewInventoryHandler(service *application.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_inventory", h.create)
	mux.HandleFunc("/get_inventory", h.get)
	mux.HandleFunc("/reserve_stock", h.reserve)
	mux.HandleFunc("/release_stock", h.release)
	mux.HandleFunc("/confirm_stock", h.confirm)
	mux.HandleFunc("/adjust_stock", h.adjust)
	mux.HandleFunc("/freeze_stock", h.freeze)
	mux.HandleFunc("/unfreeze_stock", h.unfreeze)
	mux.HandleFunc("/stock_in", h.stockIn)
	mux.HandleFunc("/stock_out", h.stockOut)
}

// stockRequest 覆盖所有操作的入参，字段按需取用。
type stockRequest struct {
	SkuID       string `json:"skuId"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int64  `json:"quantity"`
	NewTotal    int64  `json:"newTotal"`
	SafetyStock int64  `json:"safetyStock"`
	ReferenceID string `json:"referenceId"`
	OperatorID  string `json:"operatorId"`
	Reason      string `json:"reason"`
}

// InventoryResponse 是台账快照的线上表示。
type InventoryResponse struct {
	SkuID       string `json:"skuId"`
	WarehouseID string `json:"warehouseId"`
	Total       int64  `json:"total"`
	Available   int64  `json:"available"`
	Reserved    int64  `json:"reserved"`
	Frozen      int64  `json:"frozen"`
	Status      string `json:"status"`
	Version     int64  `json:"version"`
}

func toResponse(inv *domain.Inventory) *InventoryResponse {
	return &InventoryResponse{
		SkuID:       inv.SkuID,
		WarehouseID: inv.WarehouseID,
		Total:       inv.Total,
		Available:   inv.Available,
		Reserved:    inv.Reserved,
		Frozen:      inv.Frozen,
		Status:      string(inv.Status),
		Version:     inv.Version,
	}
}

type opFunc func(r *http.Request, req *stockRequest) (*domain.Inventory, error)

// handle 统一做链路提取、入参解析、错误到状态码的映射。
func (h *InventoryHandler) handle(op opFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		r = r.WithContext(ctx)

		var req stockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.WarehouseID == "" {
			req.WarehouseID = "DEFAULT"
		}

		inv, err := op(r, &req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toResponse(inv))
	}
}

// writeError 把领域错误翻译为 HTTP 状态码。
// 4xx 表示业务拒绝（不可重试），503 表示冲突重试耗尽（可重试）。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *application.ConflictError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &conflict):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case domain.IsBusinessError(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("inventory operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *InventoryHandler) create(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Create(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.SafetyStock)
	})(w, r)
}

func (h *InventoryHandler) get(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Get(r.Context(), req.SkuID, req.WarehouseID)
	})(w, r)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Reserve(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.ReferenceID, req.OperatorID)
	})(w, r)
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Release(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.ReferenceID, req.OperatorID)
	})(w, r)
}

func (h *InventoryHandler) confirm(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Confirm(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.ReferenceID, req.OperatorID)
	})(w, r)
}

func (h *InventoryHandler) adjust(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Adjust(r.Context(), req.SkuID, req.WarehouseID, req.NewTotal, req.Reason)
	})(w, r)
}

func (h *InventoryHandler) freeze(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Freeze(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.Reason)
	})(w, r)
}

func (h *InventoryHandler) unfreeze(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.Unfreeze(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.Reason)
	})(w, r)
}

func (h *InventoryHandler) stockIn(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.StockIn(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.Reason)
	})(w, r)
}

func (h *InventoryHandler) stockOut(w http.ResponseWriter, r *http.Request) {
	h.handle(func(r *http.Request, req *stockRequest) (*domain.Inventory, error) {
		return h.service.StockOut(r.Context(), req.SkuID, req.WarehouseID, req.Quantity, req.Reason)
	})(w, r)
}
