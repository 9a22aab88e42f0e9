package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the optional report cache. Empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:""`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_REPORT_TTL" envDefault:"30s"`
}

type AuthConfig struct {
	JWTSecret string   `env:"AUTH_JWT_SECRET"`
	Issuer    string   `env:"AUTH_JWT_ISSUER" envDefault:""`
	Audience  []string `env:"AUTH_JWT_AUDIENCE" envDefault:""`
	RoleClaim string   `env:"AUTH_ROLE_CLAIM" envDefault:"role"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// ReconcileConfig schedules the ledger drift check. An empty schedule
// disables it.
type ReconcileConfig struct {
	Schedule string        `env:"LEDGER_RECONCILE_SCHEDULE" envDefault:"@every 15m"`
	Timeout  time.Duration `env:"LEDGER_RECONCILE_TIMEOUT" envDefault:"5m"`
}

type HTTPConfig struct {
	Port              uint16        `env:"API_PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}
