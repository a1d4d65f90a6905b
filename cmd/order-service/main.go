// cmd/order-service/main.go
package main

import (
	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/order/application"
	"gomall/internal/service/order/infrastructure"
	"gomall/internal/service/order/interfaces"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName = "order-service"
	servicePort = 8082
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	repo := infrastructure.NewGormOrderRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate order tables")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			service := application.NewOrderService(repo, otel.Tracer(serviceName))
			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)
		},
	})
}
