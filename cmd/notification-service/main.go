// cmd/notification-service/main.go
package main

import (
	"context"

	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/httpclient"
	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/mq"
	"gomall/internal/service/notification/application"
	"gomall/internal/service/notification/domain"
	"gomall/internal/service/notification/infrastructure"

	"go.opentelemetry.io/otel"
)

const (
	serviceName     = "notification-service"
	servicePort     = 8086
	consumerGroupID = "notification-group"
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic, consumerGroupID)
	consumeCtx, stopConsume := context.WithCancel(context.Background())

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			dispatcher := application.NewDispatcher()
			dispatcher.Register(domain.ChannelEmail, infrastructure.NewEmailSender())
			dispatcher.Register(domain.ChannelSms, infrastructure.NewSmsSender())
			if cfg.App.FeatureFlags.EnablePushChannel {
				client := httpclient.NewClient(tracer, appCtx.Nacos)
				dispatcher.Register(domain.ChannelPush, infrastructure.NewPushSender(client))
			}

			consumer := application.NewConsumer(reader, dispatcher, tracer)
			go consumer.Run(consumeCtx)
		},
		OnShutdown: func(ctx context.Context) {
			stopConsume()
			if err := reader.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing kafka reader")
			}
		},
	})
}
