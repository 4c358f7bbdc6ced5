package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rekrutacje/internal/amqp"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records"
	"rekrutacje/internal/sheets"
)

// SheetsSyncName identifies the Sheets mirror in the sync_state table.
const SheetsSyncName = "sheets"

// SyncStateRecorder persists the outcome of each mirror run.
type SyncStateRecorder interface {
	MarkSynced(ctx context.Context, name string, count int) error
	MarkSyncError(ctx context.Context, name string, syncErr error) error
}

// SyncWorker mirrors the record collection to a spreadsheet whenever the
// collection changes, and periodically as a backup for lost messages.
type SyncWorker struct {
	source   records.Source
	exporter sheets.RecordExporter
	state    SyncStateRecorder
	logger   *applog.Logger

	mu          sync.Mutex
	lastStarted time.Time
	now         func() time.Time
}

// NewSyncWorker builds a worker. state may be nil.
func NewSyncWorker(source records.Source, exporter sheets.RecordExporter, state SyncStateRecorder, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Wrap(nil)
	}
	if logger.Component() != applog.ComponentWorker {
		logger = logger.WithComponent(applog.ComponentWorker)
	}
	return &SyncWorker{
		source:   source,
		exporter: exporter,
		state:    state,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleRecordChanged processes a record change notification from AMQP.
// Notifications older than the start of the last mirror run are already
// reflected in the sheet and are acknowledged without work.
func (w *SyncWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.mu.Lock()
	covered := !w.lastStarted.IsZero() && msg.Timestamp.Before(w.lastStarted)
	w.mu.Unlock()

	if covered {
		w.logger.DebugContext(ctx, "Change already mirrored",
			applog.FieldMessageID, msg.ID,
			applog.FieldAction, msg.Action)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing record change",
		applog.FieldMessageID, msg.ID,
		applog.FieldAction, msg.Action,
		applog.FieldRecordID, msg.RecordID)

	if _, err := w.Sync(ctx); err != nil {
		return fmt.Errorf("mirror after %s: %w", msg.Action, err)
	}
	return nil
}

// Sync mirrors the full collection once and returns the number of records written.
func (w *SyncWorker) Sync(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	all, err := w.source.ListRecords(ctx)
	if err != nil {
		w.recordError(ctx, err)
		return 0, fmt.Errorf("load records: %w", err)
	}

	ref, err := w.exporter.ExportRecords(ctx, all)
	if err != nil {
		w.recordError(ctx, err)
		return 0, fmt.Errorf("export records: %w", err)
	}
	w.lastStarted = started

	if w.state != nil {
		if err := w.state.MarkSynced(ctx, SheetsSyncName, len(all)); err != nil {
			w.logger.ErrorContext(ctx, "Failed to record sync state",
				applog.FieldError, err,
				applog.FieldErrorType, applog.ErrorTypeDatabase)
		}
	}

	w.logger.InfoContext(ctx, "Records mirrored",
		applog.FieldOperation, applog.OpSync,
		applog.FieldRecordCount, len(all),
		applog.FieldRange, ref,
		applog.FieldDuration, time.Since(started).Milliseconds())
	return len(all), nil
}

func (w *SyncWorker) recordError(ctx context.Context, syncErr error) {
	if w.state == nil {
		return
	}
	if err := w.state.MarkSyncError(ctx, SheetsSyncName, syncErr); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record sync error",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase)
	}
}

// StartupSync performs one full mirror so the sheet reflects changes made
// while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup sync")
	n, err := w.Sync(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", applog.FieldRecordCount, n)
	return nil
}

// RunPeriodic mirrors the collection every interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed",
					applog.FieldOperation, applog.OpSync,
					applog.FieldError, err)
			}
		}
	}
}
