// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync/atomic"

	"gomall/internal/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config 是整个系统的配置树，通过 yaml 文件加载，环境变量可覆盖关键项。
type Config struct {
	App struct {
		FeatureFlags struct {
			EnableCouponDiscount bool `yaml:"enableCouponDiscount"`
			EnablePushChannel    bool `yaml:"enablePushChannel"`
		} `yaml:"featureFlags"`
		// Saga 整体超时（秒）与单次协作方调用超时（秒）
		SagaTimeoutSeconds int `yaml:"sagaTimeoutSeconds"`
		CallTimeoutSeconds int `yaml:"callTimeoutSeconds"`
	} `yaml:"app"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Kafka struct {
			Brokers           []string `yaml:"brokers"`
			NotificationTopic string   `yaml:"notificationTopic"`
		} `yaml:"kafka"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`
}

var currentConfig atomic.Pointer[Config]

// defaultConfig 返回本地开发用的缺省配置，保证零配置也能把服务拉起来。
func defaultConfig() *Config {
	c := &Config{}
	c.App.FeatureFlags.EnableCouponDiscount = true
	c.App.SagaTimeoutSeconds = 30
	c.App.CallTimeoutSeconds = 3
	c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	c.Infra.Kafka.Brokers = []string{"localhost:9092"}
	c.Infra.Kafka.NotificationTopic = "notifications"
	c.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/gomall?charset=utf8mb4&parseTime=True"
	c.Infra.Redis.Addr = "localhost:6379"
	c.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	return c
}

// Init 加载配置。查找顺序: CONFIG_PATH 环境变量 > ./configs/config.yaml > 内置缺省值。
func Init() {
	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/config.yaml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			logger.Logger.Fatal().Err(err).Str("path", path).Msg("invalid config file")
		}
		logger.Logger.Info().Str("path", path).Msg("config loaded")
	} else {
		logger.Logger.Warn().Str("path", path).Msg("config file not found, using defaults")
	}

	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}

	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	// 未显式 Init 时退回缺省配置，主要方便单元测试
	return defaultConfig()
}
