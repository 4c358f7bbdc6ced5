// Package cli provides common initialization utilities shared by
// cmd/rekrutacje, cmd/rekrutacje-worker and cmd/recruitctl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rekrutacje/internal/config"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/storage"
)

// SetupLogger initializes structured logging at the given level and
// installs it as the process default.
func SetupLogger(level slog.Level, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = level
	cfg.Component = component
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env from the working directory when present. Values
// already set in the environment win.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the environment does not
// describe a usable configuration.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens and migrates the database at dbPath, exiting on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open record database", applog.FieldError, err,
			applog.FieldComponent, applog.ComponentStorage, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// the signal arrives cleanup runs with a deadline of timeout; done closes
// when cleanup returns or the deadline passes, whichever comes first.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		deadline, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cleaned := make(chan struct{})
		go func() {
			defer close(cleaned)
			if cleanup != nil {
				cleanup(deadline)
			}
		}()

		select {
		case <-cleaned:
			logger.Info("Shutdown complete")
		case <-deadline.Done():
			logger.Warn("Shutdown timeout reached", "timeout", timeout.String())
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
