package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/maxviazov/ats-service/internal/ats"
	"github.com/maxviazov/ats-service/internal/config"
	"github.com/maxviazov/ats-service/internal/handler"
	"github.com/maxviazov/ats-service/internal/logger"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/internal/repository/memory"
	"github.com/maxviazov/ats-service/internal/repository/postgres"
	"github.com/maxviazov/ats-service/internal/repository/sqlite"
	"github.com/rs/zerolog"
)

// backend is what main needs from any storage driver.
type backend interface {
	repository.Tables
	handler.Pinger
}

func main() {
	configPath := flag.String("config", os.Getenv("APP_CONFIG_FILE"), "path to the YAML config file (optional)")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config loading failed: %v", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Storage initialization failed")
	}
	defer closeStore()

	if cfg.App.Env == "prod" || cfg.App.Env == "staging" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		handler.RequestID(),
		handler.RequestLogger(appLogger),
		handler.Recovery(appLogger),
		handler.CORS(cfg.HTTP.CORSOrigins),
	)
	if cfg.HTTP.RateLimitRPS > 0 {
		r.Use(handler.RateLimit(handler.RateLimitConfig{Rate: cfg.HTTP.RateLimitRPS, Burst: cfg.HTTP.RateLimitBurst}))
	}

	api := ats.New(store, ats.Options{
		DefaultLimit:   cfg.Pagination.DefaultLimit,
		MaxLimit:       cfg.Pagination.MaxLimit,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	}, appLogger)
	handler.Register(r, store, api)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.Storage.Driver).
			Str("version", cfg.App.Version).
			Msg("Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		appLogger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	appLogger.Info().Msg("Service stopped")
}

// openStorage connects the configured driver and applies the baseline schema when asked to.
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (backend, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Storage.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return db, db.Close, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Storage.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return db, func() { _ = db.Close() }, nil

	case "memory":
		logger.Warn().Msg("Using in-memory storage; data is lost on restart")
		return memory.NewDB(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}
