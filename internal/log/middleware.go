package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey namespaces values this package stores in a context.
type ContextKey string

// LoggerContextKey holds the request-scoped *Logger.
const LoggerContextKey ContextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the logger stored by NewContext, or a default-backed
// logger tagged with the "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger wraps a Logger with helpers for the recurring events of
// the HTTP and record layers.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// levelForStatus maps 5xx to error, 4xx to warn and the rest to info.
func levelForStatus(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogHTTPStart logs the start of an HTTP request at debug level.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs a finished request at a level derived from its status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	attrs := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, durationMs, status < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP).
		ToSlice()
	sl.logger.Log(ctx, levelForStatus(status), "HTTP request completed", attrs...)
}

// LogRecordChanged logs a successful write to the record store.
func (sl *StructuredLogger) LogRecordChanged(ctx context.Context, op string, id int64, referenceID, department string) {
	fields := NewFields().
		WithRecord(id, referenceID, department).
		WithOperation(op).
		WithComponent(ComponentRecords)

	sl.logger.InfoContext(ctx, "Record "+op+"d", fields.ToSlice()...)
}

// LogRecordWarnings logs data-quality warnings attached to an accepted record.
func (sl *StructuredLogger) LogRecordWarnings(ctx context.Context, referenceID string, warnings []string) {
	for _, w := range warnings {
		sl.logger.WarnContext(ctx, "Record accepted with data warning",
			FieldComponent, ComponentRecords,
			FieldReference, referenceID,
			FieldWarning, w)
	}
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, extra LogFields) {
	if extra == nil {
		extra = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, extra.WithError(err).WithOperation(operation).WithComponent(component).ToSlice()...)
}
