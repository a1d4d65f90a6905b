// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/order/application"
	"gomall/internal/service/order/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// OrderHandler 暴露订单服务的 HTTP 接口，供编排器与回调方调用。
type OrderHandler struct {
	service *application.OrderService
}

func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_order", h.create)
	mux.HandleFunc("/cancel_order", h.cancel)
	mux.HandleFunc("/get_order", h.get)
	mux.HandleFunc("/mark_paid", h.markPaid)
}

// CreateOrderRequest 是编排器创建订单的入参。金额已由编排器算好。
type CreateOrderRequest struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Items  []struct {
		SkuID         string `json:"skuId"`
		Quantity      int64  `json:"quantity"`
		UnitPrice     int64  `json:"unitPrice"`
		OriginalPrice int64  `json:"originalPrice"`
	} `json:"items"`
	Amounts struct {
		Product  int64 `json:"product"`
		Discount int64 `json:"discount"`
		Shipping int64 `json:"shipping"`
		Tax      int64 `json:"tax"`
		Total    int64 `json:"total"`
	} `json:"amounts"`
	Address  domain.Address `json:"address"`
	Remark   string         `json:"remark"`
	CouponID string         `json:"couponId"`
}

// OrderResponse 是订单的线上表示。
type OrderResponse struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	TotalAmount int64  `json:"totalAmount"`
}

func toResponse(order *domain.Order) *OrderResponse {
	return &OrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalAmount: order.Amounts.Total,
	}
}

func extract(r *http.Request) *http.Request {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.Item{
			SkuID:         it.SkuID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			OriginalPrice: it.OriginalPrice,
		})
	}
	amounts := domain.Amounts{
		Product:  req.Amounts.Product,
		Discount: req.Amounts.Discount,
		Shipping: req.Amounts.Shipping,
		Tax:      req.Amounts.Tax,
		Total:    req.Amounts.Total,
	}

	order, err := h.service.CreateOrder(r.Context(), req.OrderID, req.UserID, items, amounts, req.Address, req.Remark, req.CouponID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(order))
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		OrderID string `json:"orderId"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.service.CancelOrder(r.Context(), req.OrderID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(order))
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(order))
}

func (h *OrderHandler) markPaid(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.service.MarkPaid(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(order))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidTransition *domain.InvalidStateTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidTransition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("order operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
