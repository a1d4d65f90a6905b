// cmd/push-gateway/main.go
package main

import (
	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/pushgateway"
)

const (
	serviceName = "push-gateway"
	servicePort = 8087
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()

	hub := pushgateway.NewHub()
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			hub.RegisterRoutes(appCtx.Mux)
		},
	})
}
