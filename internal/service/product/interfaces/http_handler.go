// internal/service/product/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"gomall/internal/service/product/application"
	"gomall/internal/service/product/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ProductHandler 暴露商品服务的 HTTP 接口。
type ProductHandler struct {
	service *application.ProductService
}

func NewProductHandler(service *application.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/batch_get_skus", h.batchGet)
}

// SkuResponse 是 SKU 的线上表示。
type SkuResponse struct {
	SkuID         string `json:"skuId"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"originalPrice"`
	Status        string `json:"status"`
}

func (h *ProductHandler) batchGet(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var req struct {
		SkuIDs []string `json:"skuIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	skus, err := h.service.BatchGetSkus(ctx, req.SkuIDs)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]SkuResponse, 0, len(skus))
	for _, sku := range skus {
		resp = append(resp, SkuResponse{
			SkuID:         sku.ID,
			Name:          sku.Name,
			Price:         sku.Price,
			OriginalPrice: sku.OriginalPrice,
			Status:        string(sku.Status),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"skus": resp})
}
