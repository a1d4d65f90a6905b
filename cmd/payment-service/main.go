// cmd/payment-service/main.go
package main

import (
	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/payment/application"
	"gomall/internal/service/payment/infrastructure"
	"gomall/internal/service/payment/interfaces"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	serviceName = "payment-service"
	servicePort = 8083
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	repo := infrastructure.NewGormPaymentRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to migrate payment tables")
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			service := application.NewPaymentService(repo)
			interfaces.NewPaymentHandler(service).RegisterRoutes(appCtx.Mux)
		},
	})
}
