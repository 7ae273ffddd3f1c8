package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads defaults, then the YAML file at path (skipped when path is empty),
// then APP_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	// APP_POSTGRES_DB is the name used by the compose files.
	_ = v.BindEnv("postgres.dbname", "APP_POSTGRES_DBNAME", "APP_POSTGRES_DB")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&config)
	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override values that are absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ats-service")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.port", 8080)

	v.SetDefault("logger.level", "")
	v.SetDefault("logger.format", "")
	v.SetDefault("logger.output_target", "")
	v.SetDefault("logger.env", "")

	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit_rps", 0)
	v.SetDefault("http.rate_limit_burst", 20)
	v.SetDefault("http.max_upload_bytes", 10<<20)

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.auto_migrate", false)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)

	v.SetDefault("sqlite.path", "ats.db")
	v.SetDefault("sqlite.max_open_conns", 1)

	v.SetDefault("pagination.default_limit", 10)
	v.SetDefault("pagination.max_limit", 100)
}

func normalize(c *Config) {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	// The logger follows the app environment unless configured on its own.
	if c.Logger.Env == "" {
		switch c.App.Env {
		case "dev", "staging", "prod":
			c.Logger.Env = c.App.Env
		}
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = c.App.Name
	}
	if c.Logger.ServiceVersion == "" {
		c.Logger.ServiceVersion = c.App.Version
	}
}

func validate(c *Config) error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	if c.Storage.Driver == "postgres" {
		var missing []string
		if c.Postgres.User == "" {
			missing = append(missing, "postgres.user")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "postgres.password")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "postgres.dbname")
		}
		if len(missing) > 0 {
			return errors.New("missing required config: " + strings.Join(missing, ", "))
		}
	}
	if c.Storage.Driver == "sqlite" && c.SQLite.Path == "" {
		return errors.New("missing required config: sqlite.path")
	}
	return nil
}
