// internal/service/notification/infrastructure/senders.go
package infrastructure

import (
	"context"

	"gomall/internal/pkg/httpclient"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/notification/domain"
)

// EmailSender 演示环境只记日志，真实环境接邮件网关。
type EmailSender struct{}

func NewEmailSender() *EmailSender { return &EmailSender{} }

func (s *EmailSender) Send(ctx context.Context, n domain.Notification) error {
	logger.Ctx(ctx).Info().
		Str("user_id", n.UserID).Str("template", n.Template).
		Interface("params", n.Params).
		Msg("[EMAIL] notification sent")
	return nil
}

// SmsSender 演示环境只记日志，真实环境接短信通道。
type SmsSender struct{}

func NewSmsSender() *SmsSender { return &SmsSender{} }

func (s *SmsSender) Send(ctx context.Context, n domain.Notification) error {
	logger.Ctx(ctx).Info().
		Str("user_id", n.UserID).Str("template", n.Template).
		Interface("params", n.Params).
		Msg("[SMS] notification sent")
	return nil
}

// PushGatewayServiceName 是推送网关在注册中心里的服务名。
const PushGatewayServiceName = "push-gateway"

// PushSender 把通知转投给推送网关，由网关通过 WebSocket 下发到在线设备。
type PushSender struct {
	client *httpclient.Client
}

func NewPushSender(client *httpclient.Client) *PushSender {
	return &PushSender{client: client}
}

func (s *PushSender) Send(ctx context.Context, n domain.Notification) error {
	return s.client.PostJSON(ctx, PushGatewayServiceName, "/push", n, nil)
}
