// internal/service/orchestrator/infrastructure/adapter/inventory.go
package adapter

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
)

// InventoryAdapter 通过 HTTP 调用库存账本。
type InventoryAdapter struct {
	client *httpclient.Client
}

func NewInventoryAdapter(client *httpclient.Client) *InventoryAdapter {
	return &InventoryAdapter{client: client}
}

type stockRequest struct {
	SkuID       string `json:"skuId"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int64  `json:"quantity"`
	ReferenceID string `json:"referenceId"`
	OperatorID  string `json:"operatorId"`
}

// Reserve 预占库存。422 在预占接口上意味着库存不足。
func (a *InventoryAdapter) Reserve(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error {
	req := stockRequest{SkuID: skuID, WarehouseID: warehouseID, Quantity: quantity, ReferenceID: referenceID, OperatorID: operatorID}
	err := a.client.PostJSON(ctx, InventoryServiceName, "/reserve_stock", req, nil)
	return classify(err, domain.KindInsufficientStock)
}

// Release 释放预占，是 Reserve 的补偿。
func (a *InventoryAdapter) Release(ctx context.Context, skuID, warehouseID string, quantity int64, referenceID, operatorID string) error {
	req := stockRequest{SkuID: skuID, WarehouseID: warehouseID, Quantity: quantity, ReferenceID: referenceID, OperatorID: operatorID}
	err := a.client.PostJSON(ctx, InventoryServiceName, "/release_stock", req, nil)
	return classify(err, domain.KindValidation)
}
