// cmd/product-service/main.go
package main

import (
	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/product/application"
	"gomall/internal/service/product/interfaces"
)

const (
	serviceName = "product-service"
	servicePort = 8085
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewProductHandler(application.NewProductService()).RegisterRoutes(appCtx.Mux)
		},
	})
}
