package config

import (
	"time"

	"github.com/maxviazov/ats-service/internal/logger"
)

// Config is the full service configuration.
//
// Sources (in order of precedence): defaults, YAML file, APP_* environment variables.
type Config struct {
	App        AppConfig           `mapstructure:"app"`
	Logger     logger.LoggerConfig `mapstructure:"logger" validate:"-"`
	HTTP       HTTPConfig          `mapstructure:"http"`
	Storage    StorageConfig       `mapstructure:"storage"`
	Postgres   PostgresConfig      `mapstructure:"postgres"`
	SQLite     SQLiteConfig        `mapstructure:"sqlite"`
	Pagination PaginationConfig    `mapstructure:"pagination"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env" validate:"oneof=dev test staging prod"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// RateLimitRPS of 0 disables the limiter.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=0"`
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=postgres sqlite memory"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
	MinConns int32  `mapstructure:"min_conns" validate:"gte=0"`
	// Durations below are in seconds.
	MaxConnLifetime   int `mapstructure:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime   int `mapstructure:"max_conn_idle_time" validate:"gte=0"`
	HealthCheckPeriod int `mapstructure:"health_check_period" validate:"gte=0"`
}

type SQLiteConfig struct {
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"min=1"`
	MaxLimit     int `mapstructure:"max_limit" validate:"min=1,gtefield=DefaultLimit"`
}
