// internal/service/product/application/service.go
package application

import (
	"context"
	"strings"
	"sync"

	"gomall/internal/service/product/domain"
)

// ProductService 提供商品批量查询。演示环境用内置价目表。
type ProductService struct {
	mu   sync.RWMutex
	skus map[string]*domain.Sku
}

func NewProductService() *ProductService {
	s := &ProductService{skus: make(map[string]*domain.Sku)}
	for _, sku := range []*domain.Sku{
		{ID: "sku-iphone15", Name: "iPhone 15", Price: 599900, OriginalPrice: 649900, Status: domain.StatusOnSale},
		{ID: "sku-airpods", Name: "AirPods Pro", Price: 189900, OriginalPrice: 199900, Status: domain.StatusOnSale},
		{ID: "sku-case", Name: "手机壳", Price: 4900, OriginalPrice: 6900, Status: domain.StatusOnSale},
		{ID: "sku-legacy", Name: "已下架样品", Price: 9900, OriginalPrice: 9900, Status: domain.StatusOffSale},
	} {
		s.skus[sku.ID] = sku
	}
	return s
}

// BatchGetSkus 批量查询 SKU。任意一个不存在即整体失败，
// 未预置但以 sku- 开头的 id 返回一个默认在售商品，方便联调。
func (s *ProductService) BatchGetSkus(ctx context.Context, skuIDs []string) ([]*domain.Sku, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Sku, 0, len(skuIDs))
	for _, id := range skuIDs {
		if sku, ok := s.skus[id]; ok {
			copied := *sku
			result = append(result, &copied)
			continue
		}
		if strings.HasPrefix(id, "sku-") {
			result = append(result, &domain.Sku{
				ID: id, Name: id, Price: 10000, OriginalPrice: 12000, Status: domain.StatusOnSale,
			})
			continue
		}
		return nil, domain.ErrNotFound
	}
	return result, nil
}
