// internal/service/orchestrator/infrastructure/adapter/product.go
package adapter

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"
)

// ProductAdapter 通过 HTTP 调用商品服务。
type ProductAdapter struct {
	client *httpclient.Client
}

func NewProductAdapter(client *httpclient.Client) *ProductAdapter {
	return &ProductAdapter{client: client}
}

func (a *ProductAdapter) BatchGetSkus(ctx context.Context, skuIDs []string) ([]port.Sku, error) {
	req := map[string][]string{"skuIds": skuIDs}
	var resp struct {
		Skus []struct {
			SkuID         string `json:"skuId"`
			Name          string `json:"name"`
			Price         int64  `json:"price"`
			OriginalPrice int64  `json:"originalPrice"`
			Status        string `json:"status"`
		} `json:"skus"`
	}
	if err := a.client.PostJSON(ctx, ProductServiceName, "/batch_get_skus", req, &resp); err != nil {
		return nil, classify(err, domain.KindValidation)
	}
	skus := make([]port.Sku, 0, len(resp.Skus))
	for _, s := range resp.Skus {
		skus = append(skus, port.Sku{
			ID:            s.SkuID,
			Name:          s.Name,
			Price:         s.Price,
			OriginalPrice: s.OriginalPrice,
			Status:        s.Status,
		})
	}
	return skus, nil
}
