package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/loyalty/internal/config"
	"github.com/fastprodman/loyalty/internal/infra/logging"
)

type apiConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TiersFile       string        `env:"LOYALTY_TIERS_FILE" envDefault:""`

	HTTP      config.HTTPConfig
	LogFile   logging.FileConfig
	Postgres  config.PostgresConfig
	Redis     config.RedisConfig
	Auth      config.AuthConfig
	RateLimit config.RateLimitConfig
	Reconcile config.ReconcileConfig
}
