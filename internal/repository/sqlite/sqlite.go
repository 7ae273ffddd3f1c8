// Package sqlite is the single-node repository backend built on database/sql and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/maxviazov/ats-service/internal/config"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/migrations"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

var (
	_ repository.Tables = (*DB)(nil)
	_ repository.Pinger = (*DB)(nil)
)

// Open opens the database file with WAL and foreign keys enabled and verifies it is usable.
// Builds without cgo fail here, on the ping.
func Open(ctx context.Context, cfg config.SQLiteConfig, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	l := logger.With().Str("module", "repository").Str("component", "sqlite").Logger()
	l.Info().Str("path", cfg.Path).Msg("Opened SQLite database")
	return &DB{db: db, logger: l}, nil
}

func (d *DB) Table(spec repository.Table) repository.Store {
	return &tableStore{db: d.db, spec: spec, table: quote(spec.Name), id: quote(spec.IDColumn)}
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Migrate applies the embedded baseline schema.
func (d *DB) Migrate(ctx context.Context) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, d.db, migrations.SQLite())
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		d.logger.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("Applied migration")
	}
	return nil
}

func (d *DB) Close() error { return d.db.Close() }
