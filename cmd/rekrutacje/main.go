package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"rekrutacje/internal/backend"
	"rekrutacje/internal/cache"
	"rekrutacje/internal/cli"
	"rekrutacje/internal/core"
	apphttp "rekrutacje/internal/http"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/services"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger for configuration errors; replaced once LOG_LEVEL is known.
	logger := cli.SetupLogger(applog.DefaultConfig().Level, applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Slog()).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	statsCache := cache.NewLRUCache[core.DashboardStats](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	cacheManager.Register(statsCache)
	cacheManager.StartCleanup(time.Minute)

	recordSvc := services.NewRecordService(result.Store, result.Publisher, logger)
	transferSvc := services.NewTransferService(result.Store, result.Publisher, logger)
	dashboardSvc := services.NewDashboardService(result.Store, statsCache, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Records:            recordSvc,
		Dashboard:          dashboardSvc,
		Transfer:           transferSvc,
		Pinger:             result.Pinger,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSOrigins:        cfg.CORSOrigins,
	})
	recordSvc.OnChange(srv.InvalidateCaches)
	transferSvc.OnChange(srv.InvalidateCaches)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting rekrutacje server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
