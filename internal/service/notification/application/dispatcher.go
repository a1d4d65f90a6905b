// internal/service/notification/application/dispatcher.go
package application

import (
	"context"
	"fmt"

	"gomall/internal/pkg/logger"
	"gomall/internal/service/notification/domain"
)

// Dispatcher 按渠道把通知分发给对应的投递实现。
// 未注册的渠道降级到邮件，保证消息不会静默丢失。
type Dispatcher struct {
	senders  map[domain.Channel]domain.Sender
	fallback domain.Channel
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		senders:  make(map[domain.Channel]domain.Sender),
		fallback: domain.ChannelEmail,
	}
}

// Register 注册一个渠道的投递实现。
func (d *Dispatcher) Register(channel domain.Channel, sender domain.Sender) {
	d.senders[channel] = sender
}

// Dispatch 投递一条通知。
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) error {
	sender, ok := d.senders[n.Channel]
	if !ok {
		logger.Ctx(ctx).Warn().Str("channel", string(n.Channel)).
			Str("fallback", string(d.fallback)).Msg("no sender for channel, falling back")
		sender, ok = d.senders[d.fallback]
		if !ok {
			return fmt.Errorf("no sender registered for channel %s", n.Channel)
		}
	}
	return sender.Send(ctx, n)
}
