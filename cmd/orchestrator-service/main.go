// cmd/orchestrator-service/main.go
package main

import (
	"context"
	"time"

	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/httpclient"
	"gomall/internal/pkg/logger"
	"gomall/internal/pkg/mq"
	"gomall/internal/pkg/zookeeper"
	"gomall/internal/service/orchestrator/application"
	"gomall/internal/service/orchestrator/infrastructure"
	"gomall/internal/service/orchestrator/infrastructure/adapter"
	"gomall/internal/service/orchestrator/infrastructure/rule"
	"gomall/internal/service/orchestrator/interfaces"

	"go.opentelemetry.io/otel"
)

const (
	serviceName = "orchestrator-service"
	servicePort = 8080
)

// main 是组装根：创建并连接所有依赖，然后交给 bootstrap 启动。
func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	store, err := infrastructure.NewMysqlSagaStore(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to open saga store")
	}

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.NotificationTopic)

	couponEngine, err := rule.NewCelCouponEngine("")
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to build coupon rule engine")
	}

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to zookeeper")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			client := httpclient.NewClient(tracer, appCtx.Nacos)

			coordinator := application.NewCoordinator(application.Dependencies{
				Users:       adapter.NewUserAdapter(client),
				Products:    adapter.NewProductAdapter(client),
				Inventory:   adapter.NewInventoryAdapter(client),
				Orders:      adapter.NewOrderAdapter(client),
				Payments:    adapter.NewPaymentAdapter(client),
				Notifier:    adapter.NewKafkaNotificationProducer(kafkaWriter),
				CouponRules: couponEngine,
				Store:       store,
				Tracer:      tracer,
			}, application.Options{
				SagaTimeout:          time.Duration(cfg.App.SagaTimeoutSeconds) * time.Second,
				CallTimeout:          time.Duration(cfg.App.CallTimeoutSeconds) * time.Second,
				EnableCouponDiscount: cfg.App.FeatureFlags.EnableCouponDiscount,
			})

			interfaces.NewOrchestratorHandler(coordinator, store).RegisterRoutes(appCtx.Mux)

			// 恢复扫描接手协调器崩溃后留下的半截 saga
			sweeper := application.NewRecoverySweeper(store,
				adapter.NewInventoryAdapter(client), adapter.NewOrderAdapter(client),
				zkConn, time.Minute, time.Minute)
			go sweeper.Run(sweepCtx)
		},
		OnShutdown: func(ctx context.Context) {
			stopSweep()
			if err := kafkaWriter.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing kafka writer")
			}
			if err := store.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing saga store")
			}
			zkConn.Close()
		},
	})
}
