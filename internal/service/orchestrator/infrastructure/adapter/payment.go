// internal/service/orchestrator/infrastructure/adapter/payment.go
package adapter

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"
)

// PaymentAdapter 通过 HTTP 调用支付服务。
type PaymentAdapter struct {
	client *httpclient.Client
}

func NewPaymentAdapter(client *httpclient.Client) *PaymentAdapter {
	return &PaymentAdapter{client: client}
}

func (a *PaymentAdapter) CreatePayment(ctx context.Context, orderID, userID string, amount int64, method string) (*port.Payment, error) {
	req := struct {
		OrderID string `json:"orderId"`
		UserID  string `json:"userId"`
		Amount  int64  `json:"amount"`
		Method  string `json:"method"`
	}{OrderID: orderID, UserID: userID, Amount: amount, Method: method}

	var resp struct {
		PaymentID string `json:"paymentId"`
		Status    string `json:"status"`
		Method    string `json:"method"`
		Amount    int64  `json:"amount"`
	}
	if err := a.client.PostJSON(ctx, PaymentServiceName, "/create_payment", req, &resp); err != nil {
		return nil, classify(err, domain.KindValidation)
	}
	return &port.Payment{ID: resp.PaymentID, Status: resp.Status, Method: resp.Method, Amount: resp.Amount}, nil
}
