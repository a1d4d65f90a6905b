// internal/service/orchestrator/infrastructure/adapter/user.go
package adapter

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/service/orchestrator/domain"
	"gomall/internal/service/orchestrator/port"
)

// UserAdapter 通过 HTTP 调用用户服务。
type UserAdapter struct {
	client *httpclient.Client
}

func NewUserAdapter(client *httpclient.Client) *UserAdapter {
	return &UserAdapter{client: client}
}

func (a *UserAdapter) GetUser(ctx context.Context, userID string) (*port.User, error) {
	req := map[string]string{"userId": userID}
	var resp struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := a.client.PostJSON(ctx, UserServiceName, "/get_user", req, &resp); err != nil {
		return nil, classify(err, domain.KindValidation)
	}
	return &port.User{ID: resp.UserID, Name: resp.Name, Status: resp.Status}, nil
}
