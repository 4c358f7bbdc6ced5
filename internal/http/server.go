package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	applog "rekrutacje/internal/log"
	"rekrutacje/internal/middleware/ratelimit"
	"rekrutacje/internal/middleware/security"
	"rekrutacje/internal/middleware/trace"
	"rekrutacje/internal/records"
	"rekrutacje/internal/services"
	appweb "rekrutacje/web"
)

// Options wires the server to its services.
type Options struct {
	Addr      string
	Records   *services.RecordService
	Dashboard *services.DashboardService
	Transfer  *services.TransferService
	// Pinger is probed by /readyz; nil means the backend has nothing to check.
	Pinger records.Pinger
	Logger *applog.Logger

	RateLimitPerMinute int
	// CORSOrigins enables CORS on /api for the listed origins.
	CORSOrigins []string
}

// appMetrics counts domain events for /metrics.
type appMetrics struct {
	uptime         time.Time
	recordsCreated int64
	recordsUpdated int64
	recordsDeleted int64
	importsRun     int64
	noDataResults  int64
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	records   *services.RecordService
	dashboard *services.DashboardService
	transfer  *services.TransferService
	pinger    records.Pinger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		logger:           logger,
		records:          opts.Records,
		dashboard:        opts.Dashboard,
		transfer:         opts.Transfer,
		pinger:           opts.Pinger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
		now:              time.Now,
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err,
			applog.FieldComponent, applog.ComponentTemplate)
	}
	s.templates = t

	s.Handler = s.buildHandler(s.routes(), opts.CORSOrigins)
	return s
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", s.handleDashboardPage).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/records", s.handleListRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", s.handleCreateRecord).Methods(http.MethodPost)
	api.HandleFunc("/records/{id:[0-9]+}", s.handleGetRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{id:[0-9]+}", s.handleUpdateRecord).Methods(http.MethodPut)
	api.HandleFunc("/records/{id:[0-9]+}", s.handleDeleteRecord).Methods(http.MethodDelete)
	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/charts", s.handleDashboardCharts).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handleFilters).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			NotFoundError("not found").Write(w)
			return
		}
		http.NotFound(w, r)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	return r
}

// buildHandler wraps the router with the middleware chain, outermost first:
// panic recovery, compression, tracing, probe detection, security headers,
// CORS on /api and rate limiting of writes.
func (s *Server) buildHandler(router http.Handler, corsOrigins []string) http.Handler {
	var h http.Handler = router

	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(h)

	if len(corsOrigins) > 0 {
		cors := handlers.CORS(
			handlers.AllowedOrigins(corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", trace.HeaderRequestID}),
			handlers.ExposedHeaders([]string{trace.HeaderRequestID, "Content-Disposition"}),
		)(h)
		plain := h
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				cors.ServeHTTP(w, r)
				return
			}
			plain.ServeHTTP(w, r)
		})
	}

	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(false)(h)
	h = s.traceMiddleware.Middleware(h)
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// recoveryLogger adapts the application logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *applog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", "panic", fmt.Sprint(v...))
}

// InvalidateCaches drops cached dashboard results. It is registered as the
// write hook of the record and transfer services.
func (s *Server) InvalidateCaches() {
	if s.dashboard != nil {
		s.dashboard.Invalidate()
	}
}

func (s *Server) countWrite(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
