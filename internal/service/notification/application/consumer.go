// internal/service/notification/application/consumer.go
package application

import (
	"context"
	"encoding/json"

	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/mq"
	"gomall/internal/service/notification/domain"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

// Consumer 从 Kafka 消费通知事件并交给 Dispatcher 投递。
// 投递失败只记日志不重投，通知属于尽力而为的旁路。
type Consumer struct {
	reader     *kafka.Reader
	dispatcher *Dispatcher
	tracer     trace.Tracer
}

func NewConsumer(reader *kafka.Reader, dispatcher *Dispatcher, tracer trace.Tracer) *Consumer {
	return &Consumer{reader: reader, dispatcher: dispatcher, tracer: tracer}
}

// Run 持续消费直到 ctx 取消。
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to read notification message")
			continue
		}
		c.handle(ctx, &msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *kafka.Message) {
	// 从消息头恢复链路，通知的 span 挂在下单 trace 下面
	msgCtx := mq.ExtractTraceContext(ctx, msg)
	msgCtx, span := c.tracer.Start(msgCtx, "notification.consume")
	defer span.End()

	var n domain.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		logger.Ctx(msgCtx).Error().Err(err).Msg("malformed notification message, dropping")
		return
	}

	if err := c.dispatcher.Dispatch(msgCtx, n); err != nil {
		span.RecordError(err)
		logger.Ctx(msgCtx).Error().Err(err).
			Str("user_id", n.UserID).Str("channel", string(n.Channel)).
			Msg("notification delivery failed")
		return
	}
	logger.Ctx(msgCtx).Info().
		Str("user_id", n.UserID).Str("channel", string(n.Channel)).Str("template", n.Template).
		Msg("notification delivered")
}

// Close 关闭底层 reader。
func (c *Consumer) Close() error { return c.reader.Close() }
