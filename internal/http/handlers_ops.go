package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"rekrutacje/internal/cache"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["storage"] = "ok"
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}
	if s.dashboard != nil {
		checks["cache"] = s.dashboard.CacheStats()
	}

	NewJSONResponse().Status(code).Payload(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	var cacheStats cache.Stats
	if s.dashboard != nil {
		cacheStats = s.dashboard.CacheStats()
	}

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "http_response_time_us", "gauge", "Moving average response time in microseconds", traceMetrics.AverageResponseTime)

	writeMetric(w, "records_created_total", "counter", "Records created through the API", atomic.LoadInt64(&s.appMetrics.recordsCreated))
	writeMetric(w, "records_updated_total", "counter", "Records updated through the API", atomic.LoadInt64(&s.appMetrics.recordsUpdated))
	writeMetric(w, "records_deleted_total", "counter", "Records deleted through the API", atomic.LoadInt64(&s.appMetrics.recordsDeleted))
	writeMetric(w, "imports_total", "counter", "Completed imports", atomic.LoadInt64(&s.appMetrics.importsRun))
	writeMetric(w, "dashboard_no_data_total", "counter", "Dashboard queries that matched no record", atomic.LoadInt64(&s.appMetrics.noDataResults))

	writeMetric(w, "cache_hits_total", "counter", "Dashboard cache hits", cacheStats.Hits)
	writeMetric(w, "cache_misses_total", "counter", "Dashboard cache misses", cacheStats.Misses)
	writeMetric(w, "cache_entries", "gauge", "Current dashboard cache entries", int64(cacheStats.Size))

	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "blocked_requests_total", "counter", "Suspicious requests rejected", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
