// cmd/user-service/main.go
package main

import (
	"gomall/internal/pkg/bootstrap"
	"gomall/internal/pkg/logger"
	"gomall/internal/service/user/application"
	"gomall/internal/service/user/interfaces"
)

const (
	serviceName = "user-service"
	servicePort = 8084
)

func main() {
	logger.Init(serviceName)
	bootstrap.Init()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewUserHandler(application.NewUserService()).RegisterRoutes(appCtx.Mux)
		},
	})
}
