package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"rekrutacje/internal/amqp"
	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
	"rekrutacje/internal/records/memory"
)

type fakeExporter struct {
	mu    sync.Mutex
	calls int
	last  []core.Record
	err   error
}

func (f *fakeExporter) ExportRecords(_ context.Context, recs []core.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.last = recs
	return "'Rekrutacje'!A1:AA2", nil
}

type fakeState struct {
	synced []int
	errs   []string
}

func (f *fakeState) MarkSynced(_ context.Context, name string, count int) error {
	f.synced = append(f.synced, count)
	return nil
}

func (f *fakeState) MarkSyncError(_ context.Context, name string, syncErr error) error {
	f.errs = append(f.errs, syncErr.Error())
	return nil
}

func seededStore() *memory.Store {
	return memory.New([]core.Record{{
		ReferenceID:   "W-1",
		Department:    "HR",
		Division:      "People",
		Position:      "Recruiter",
		Location:      "Warsaw",
		HiringManager: "B. Kowalczyk",
		CollarType:    core.White,
		Reason:        "New Position",
		OpenedDate:    core.NewDate(2024, 4, 1),
	}})
}

func TestSyncWorkerStartupSync(t *testing.T) {
	exp := &fakeExporter{}
	state := &fakeState{}
	w := NewSyncWorker(seededStore(), exp, state, nil)

	if err := w.StartupSync(context.Background()); err != nil {
		t.Fatalf("StartupSync: %v", err)
	}
	if exp.calls != 1 || len(exp.last) != 1 || exp.last[0].ReferenceID != "W-1" {
		t.Fatalf("unexpected export: calls=%d last=%+v", exp.calls, exp.last)
	}
	if len(state.synced) != 1 || state.synced[0] != 1 {
		t.Errorf("sync state not recorded: %+v", state)
	}
}

func TestSyncWorkerRecordsExportErrors(t *testing.T) {
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	state := &fakeState{}
	w := NewSyncWorker(seededStore(), exp, state, nil)

	msg := amqp.NewRecordChangedMessage(amqp.ActionCreated, 1, "W-1")
	if err := w.HandleRecordChanged(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if len(state.errs) != 1 || state.errs[0] != "quota exceeded" {
		t.Errorf("sync error not recorded: %+v", state)
	}
}

func TestSyncWorkerSkipsMessagesAlreadyMirrored(t *testing.T) {
	exp := &fakeExporter{}
	w := NewSyncWorker(seededStore(), exp, nil, nil)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	if _, err := w.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	old := amqp.NewRecordChangedMessage(amqp.ActionUpdated, 1, "W-1")
	old.Timestamp = base.Add(-time.Minute)
	if err := w.HandleRecordChanged(context.Background(), old); err != nil {
		t.Fatalf("HandleRecordChanged(old): %v", err)
	}
	if exp.calls != 1 {
		t.Fatalf("old message should not trigger another export, calls=%d", exp.calls)
	}

	fresh := amqp.NewRecordChangedMessage(amqp.ActionDeleted, 1, "W-1")
	fresh.Timestamp = base.Add(time.Minute)
	if err := w.HandleRecordChanged(context.Background(), fresh); err != nil {
		t.Fatalf("HandleRecordChanged(fresh): %v", err)
	}
	if exp.calls != 2 {
		t.Fatalf("fresh message should trigger an export, calls=%d", exp.calls)
	}
}

func TestSyncWorkerRunPeriodicStopsOnCancel(t *testing.T) {
	exp := &fakeExporter{}
	w := NewSyncWorker(seededStore(), exp, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		exp.mu.Lock()
		calls := exp.calls
		exp.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("periodic sync did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}

func TestSyncWorkerLogsWithSharedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Component: applog.ComponentApp, Format: "json", Output: &buf})
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewSyncWorker(seededStore(), exp, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPeriodic(ctx, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		exp.mu.Lock()
		calls := exp.calls
		exp.mu.Unlock()
		if calls >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("periodic sync did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	var failure map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if entry["msg"] == "Periodic sync failed" {
			failure = entry
			break
		}
	}
	if failure == nil {
		t.Fatalf("no failure logged:\n%s", buf.String())
	}
	if failure[applog.FieldComponent] != applog.ComponentWorker {
		t.Errorf("component = %v", failure[applog.FieldComponent])
	}
	if !strings.Contains(fmt.Sprint(failure[applog.FieldError]), "quota exceeded") {
		t.Errorf("error field = %v", failure[applog.FieldError])
	}
	if failure[applog.FieldOperation] != applog.OpSync {
		t.Errorf("operation = %v", failure[applog.FieldOperation])
	}
}
