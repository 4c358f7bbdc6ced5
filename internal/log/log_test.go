package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Component: ComponentApp, Format: "json", Output: buf})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithRecord(7, "REF-7", "Finance").
		WithOperation(OpUpdate).
		WithError(nil).
		WithRequestID("")

	if f[FieldRecordID] != int64(7) || f[FieldReference] != "REF-7" || f[FieldDepartment] != "Finance" {
		t.Errorf("record fields not set: %v", f)
	}
	if _, ok := f[FieldError]; ok {
		t.Error("nil error must not add a field")
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id must not add a field")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length = %d, want %d", len(f.ToSlice()), 2*len(f))
	}
}

func TestLoggerComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo).WithComponent(ComponentDashboard)

	logger.Debug("hidden")
	logger.Info("visible", FieldRecordCount, 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["msg"] != "visible" || lines[0][FieldRecordCount] != float64(3) {
		t.Errorf("unexpected line %v", lines[0])
	}
	if logger.Component() != ComponentDashboard {
		t.Errorf("Component() = %s", logger.Component())
	}
}

func TestContextCarriesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelDebug).With(FieldRequestID, "req_abc")

	ctx := NewContext(context.Background(), logger)
	FromContext(ctx).Info("inside handler")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldRequestID] != "req_abc" {
		t.Fatalf("expected request id on handler log, got %v", lines)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
}

func TestStructuredLoggerHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelDebug))
		req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		sl.LogHTTPEnd(context.Background(), req, tt.status, 12, "10.0.0.1")

		lines := decodeLines(t, &buf)
		if len(lines) != 1 || lines[0]["level"] != tt.level {
			t.Errorf("status %d: got %v, want level %s", tt.status, lines, tt.level)
		}
	}
}

func TestStructuredLoggerRecordEvents(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelDebug))
	ctx := context.Background()

	sl.LogRecordChanged(ctx, OpCreate, 1, "REF-1", "IT")
	sl.LogRecordWarnings(ctx, "REF-1", []string{"hired_date before opened_date", "offers_rejected exceeds offers_extended"})
	sl.LogError(ctx, "store failed", errors.New("disk full"), ComponentStorage, OpCreate, nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0]["msg"] != "Record created" {
		t.Errorf("unexpected message %v", lines[0]["msg"])
	}
	if lines[1]["level"] != "WARN" || lines[2][FieldWarning] == nil {
		t.Errorf("expected warning lines, got %v %v", lines[1], lines[2])
	}
	if lines[3][FieldError] != "disk full" {
		t.Errorf("expected error field, got %v", lines[3])
	}
}
