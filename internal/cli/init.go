// Package cli holds the bootstrap steps shared by cmd/woordjes and
// cmd/woordjes-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"woordjes/internal/config"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    strings.ToLower(cfg.LogFormat),
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and validates the result.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StorageOptions maps the configured backend onto repository options.
func StorageOptions(cfg *config.Config) storage.Options {
	if cfg.DataBackend == string(storage.DialectPostgres) {
		return storage.Options{Dialect: storage.DialectPostgres, DatabaseURL: cfg.DatabaseURL}
	}
	return storage.Options{Dialect: storage.DialectSQLite, SQLitePath: cfg.SQLiteDBPath}
}

// OpenRepository connects to the configured database and migrates it.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *log.Logger) (*storage.Repository, error) {
	opts := StorageOptions(cfg)
	repo, err := storage.Open(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s repository: %w", opts.Dialect, err)
	}
	logger.Info("Repository ready", "backend", string(opts.Dialect))
	return repo, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// cleanup func then runs with a context bounded by timeout, and done is
// closed once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
