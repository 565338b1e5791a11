/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the work-hours accounting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment configuration
  2. Build the zap logger
  3. Parse command-line flags (override the environment)
  4. Initialize SQLite store
  5. Create token service, API handler and router
  6. Start the scheduler if BILLING_CRON or CARRYOVER_CRON is set
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT or 8080)
  -db      SQLite database path (default: DB_PATH or workhours.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  PORT           HTTP port
  DB_PATH        SQLite database path
  APP_ENV        development | production (development enables /api/auth/token)
  LOG_LEVEL      debug | info | warn | error
  JWT_SECRET     HS256 signing key, required in production
  BILLING_CRON   5-field cron spec for the monthly billing close, empty disables
  CARRYOVER_CRON 5-field cron spec for the year-end carryover, empty disables
  CORS_ORIGINS   comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for a running job)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/workhours.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Close last month every first of the month at 02:00 UTC
  BILLING_CRON="0 2 1 * *" ./server

  # Carry the closed year over on January 2 at 03:00 UTC
  CARRYOVER_CRON="0 3 2 1 *" ./server

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
  - api/scheduler.go: Billing and carryover scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/workhours-engine/api"
	"github.com/warp/workhours-engine/config"
	"github.com/warp/workhours-engine/store/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	tokenExpiry     = 12 * time.Hour
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	tokens := api.NewTokenService(cfg.JWTSecret, tokenExpiry)
	handler := api.NewHandler(store, tokens, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		DevTokens:   cfg.IsDevelopment(),
	})

	scheduler := api.NewScheduler(store, logger)
	if cfg.BillingCron != "" {
		if err := scheduler.ScheduleBilling(cfg.BillingCron); err != nil {
			return err
		}
	}
	if cfg.CarryoverCron != "" {
		if err := scheduler.ScheduleCarryover(cfg.CarryoverCron); err != nil {
			return err
		}
	}
	if cfg.BillingCron != "" || cfg.CarryoverCron != "" {
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DBPath),
			zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down server", zap.Stringer("signal", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
