package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"rekrutacje/internal/amqp"
	"rekrutacje/internal/cli"
	"rekrutacje/internal/config"
	"rekrutacje/internal/localstore"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
	gsheet "rekrutacje/internal/sheets/google"
	"rekrutacje/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.DefaultConfig().Level, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting rekrutacje-worker")

	if !cfg.SheetsEnabled() {
		logger.Error("Google Sheets mirror is not configured, nothing to do",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	var (
		source  records.Source
		state   worker.SyncStateRecorder
		closers []func() error
	)
	switch cfg.DataBackend {
	case config.BackendSQLite:
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		source, state = repo, repo
		closers = append(closers, repo.Close)
	case config.BackendLocal:
		repo, err := localstore.Open(cfg.LocalStorePath)
		if err != nil {
			logger.Error("Failed to open local store", applog.FieldError, err, "path", cfg.LocalStorePath)
			os.Exit(1)
		}
		source = repo
	default:
		logger.Error("The worker needs a backend shared with the server",
			"backend", cfg.DataBackend,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		closers = append(closers, amqpClient.Close)
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only", "interval", cfg.SyncInterval)
	}

	syncWorker := worker.NewSyncWorker(source, sheetsClient, state, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Error("Cleanup error", applog.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := syncWorker.StartupSync(gctx); err != nil {
			// Retried by the periodic loop.
			logger.Error("Startup sync failed", applog.FieldError, err)
		}
		return syncWorker.RunPeriodic(gctx, cfg.SyncInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeRecordChanged(gctx, syncWorker.HandleRecordChanged)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
