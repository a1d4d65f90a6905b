// internal/service/notification/domain/notification.go
package domain

import "context"

// Channel 是通知的投递渠道。
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSms   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

// Notification 是一条待投递的通知事件，与编排器发出的消息结构一致。
type Notification struct {
	UserID   string            `json:"userId"`
	Channel  Channel           `json:"channel"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
}

// Sender 是单个渠道的投递实现。
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
