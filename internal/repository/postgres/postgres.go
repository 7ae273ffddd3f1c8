package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/maxviazov/ats-service/internal/config"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/migrations"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// DB wraps the pgx pool and hands out per-table stores.
type DB struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var (
	_ repository.Tables = (*DB)(nil)
	_ repository.Pinger = (*DB)(nil)
)

// DSN renders the connection URL for cfg. url.URL takes care of escaping credentials.
func DSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect creates the pool, wires pgx tracing into zerolog and verifies the connection.
func Connect(ctx context.Context, cfg config.PostgresConfig, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   newPgxLogger(logger),
		LogLevel: traceLevel(logger.GetLevel()),
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Second
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// bounded ping so startup doesn't hang on an unreachable server
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.User).
		Str("db", cfg.DBName).
		Msg("Successfully connected to PostgreSQL")

	return NewDB(pool, logger), nil
}

// NewDB wraps an existing pool.
func NewDB(pool *pgxpool.Pool, logger zerolog.Logger) *DB {
	return &DB{pool: pool, logger: logger.With().Str("module", "repository").Str("component", "postgres").Logger()}
}

// Table returns a generic store over one table.
func (db *DB) Table(spec repository.Table) repository.Store {
	return newTableStore(db.pool, spec)
}

func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return errors.New("pgx pool is nil")
	}
	return db.pool.Ping(ctx)
}

// Migrate applies the embedded baseline schema.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.Postgres())
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		db.logger.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("Applied migration")
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
