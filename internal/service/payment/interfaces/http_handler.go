// internal/service/payment/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/payment/application"
	"gomall/internal/service/payment/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// PaymentHandler 暴露支付服务的 HTTP 接口。
type PaymentHandler struct {
	service *application.PaymentService
}

func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/create_payment", h.create)
	mux.HandleFunc("/confirm_payment", h.confirm)
	mux.HandleFunc("/refund_payment", h.refund)
	mux.HandleFunc("/get_payment", h.get)
}

// PaymentResponse 是支付单的线上表示。
type PaymentResponse struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
}

func toResponse(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
	}
}

func extract(r *http.Request) *http.Request {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *PaymentHandler) create(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		OrderID string `json:"orderId"`
		UserID  string `json:"userId"`
		Amount  int64  `json:"amount"`
		Method  string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), req.OrderID, req.UserID, req.Amount, domain.Method(req.Method))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(payment))
}

func (h *PaymentHandler) confirm(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		PaymentID     string `json:"paymentId"`
		TransactionID string `json:"transactionId"`
		Gateway       string `json:"gateway"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payment, err := h.service.ConfirmPayment(r.Context(), req.PaymentID, req.TransactionID, req.Gateway)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(payment))
}

func (h *PaymentHandler) refund(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		OrderID string `json:"orderId"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payment, err := h.service.RefundPayment(r.Context(), req.OrderID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(payment))
}

func (h *PaymentHandler) get(w http.ResponseWriter, r *http.Request) {
	r = extract(r)

	var req struct {
		PaymentID string `json:"paymentId"`
		OrderID   string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var payment *domain.Payment
	var err error
	if req.PaymentID != "" {
		payment, err = h.service.GetPayment(r.Context(), req.PaymentID)
	} else {
		payment, err = h.service.GetPaymentByOrder(r.Context(), req.OrderID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(payment))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidTransition *domain.InvalidStateTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalidTransition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("payment operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
