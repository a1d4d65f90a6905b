// internal/service/orchestrator/infrastructure/adapter/order.go
package adapter

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"
)

// OrderAdapter 通过 HTTP 调用订单服务。
type OrderAdapter struct {
	client *httpclient.Client
}

func NewOrderAdapter(client *httpclient.Client) *OrderAdapter {
	return &OrderAdapter{client: client}
}

type orderItemPayload struct {
	SkuID         string `json:"skuId"`
	Quantity      int64  `json:"quantity"`
	UnitPrice     int64  `json:"unitPrice"`
	OriginalPrice int64  `json:"originalPrice"`
}

type orderAmountsPayload struct {
	Product  int64 `json:"product"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

func (a *OrderAdapter) CreateOrder(ctx context.Context, orderID, userID string, items []port.OrderItem,
	amounts port.OrderAmounts, address port.Address, remark, couponID string) (*port.Order, error) {

	payloadItems := make([]orderItemPayload, 0, len(items))
	for _, item := range items {
		payloadItems = append(payloadItems, orderItemPayload{
			SkuID:         item.SkuID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
		})
	}
	req := struct {
		OrderID  string              `json:"orderId"`
		UserID   string              `json:"userId"`
		Items    []orderItemPayload  `json:"items"`
		Amounts  orderAmountsPayload `json:"amounts"`
		Address  port.Address        `json:"address"`
		Remark   string              `json:"remark"`
		CouponID string              `json:"couponId"`
	}{
		OrderID: orderID,
		UserID:  userID,
		Items:   payloadItems,
		Amounts: orderAmountsPayload{
			Product:  amounts.Product,
			Discount: amounts.Discount,
			Shipping: amounts.Shipping,
			Tax:      amounts.Tax,
			Total:    amounts.Total,
		},
		Address:  address,
		Remark:   remark,
		CouponID: couponID,
	}

	var resp struct {
		OrderID     string `json:"orderId"`
		OrderNumber string `json:"orderNumber"`
		Status      string `json:"status"`
		TotalAmount int64  `json:"totalAmount"`
	}
	if err := a.client.PostJSON(ctx, OrderServiceName, "/create_order", req, &resp); err != nil {
		return nil, classify(err, domain.KindValidation)
	}
	return &port.Order{ID: resp.OrderID, OrderNumber: resp.OrderNumber, Status: resp.Status, TotalAmount: resp.TotalAmount}, nil
}

func (a *OrderAdapter) CancelOrder(ctx context.Context, orderID, reason string) error {
	req := map[string]string{"orderId": orderID, "reason": reason}
	err := a.client.PostJSON(ctx, OrderServiceName, "/cancel_order", req, nil)
	return classify(err, domain.KindValidation)
}
