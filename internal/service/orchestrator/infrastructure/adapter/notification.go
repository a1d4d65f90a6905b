// internal/service/orchestrator/infrastructure/adapter/notification.go
package adapter

import (
	"context"
	"encoding/json"

	"gomall/internal/pkg/mq"
	"gomall/internal/service/orchestrator/port"

	"github.com/segmentio/kafka-go"
)

// KafkaNotificationProducer 把通知事件发到 Kafka，由通知服务消费。
// 以 userID 做分区键，同一用户的通知保持有序。
type KafkaNotificationProducer struct {
	writer *kafka.Writer
}

func NewKafkaNotificationProducer(writer *kafka.Writer) *KafkaNotificationProducer {
	return &KafkaNotificationProducer{writer: writer}
}

func (p *KafkaNotificationProducer) Send(ctx context.Context, n port.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(n.UserID), payload)
}
