package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
)

const (
	dashboardTimeout = 10 * time.Second
	noDataMessage    = "No data for the selected filters"
)

// noDataBody is returned by the dashboard endpoints when nothing matches.
type noDataBody struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// dashboardStats runs the dashboard query for the request filters. The
// returned bool is false when no record matched.
func (s *Server) dashboardStats(ctx context.Context, c core.FilterCriteria) (core.DashboardStats, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dashboardTimeout)
	defer cancel()

	stats, err := s.dashboard.Stats(ctx, c)
	if errors.Is(err, core.ErrNoData) {
		s.countWrite(&s.appMetrics.noDataResults)
		return core.DashboardStats{}, false, nil
	}
	if err != nil {
		return core.DashboardStats{}, false, err
	}
	return stats, true, nil
}

// handleDashboardStats serves GET /api/dashboard.
func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	c := ParseFilterCriteria(r.URL.Query())
	if err := validateFilterCriteria(c); err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}

	stats, ok, err := s.dashboardStats(r.Context(), c)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	if !ok {
		NewJSONResponse().Payload(noDataBody{Message: noDataMessage}).Write(w)
		return
	}
	NewJSONResponse().Payload(stats).Write(w)
}

// handleDashboardCharts serves GET /api/dashboard/charts with the same
// filters as /api/dashboard.
func (s *Server) handleDashboardCharts(w http.ResponseWriter, r *http.Request) {
	c := ParseFilterCriteria(r.URL.Query())
	if err := validateFilterCriteria(c); err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}

	stats, ok, err := s.dashboardStats(r.Context(), c)
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	if !ok {
		NewJSONResponse().Payload(noDataBody{Message: noDataMessage}).Write(w)
		return
	}
	NewJSONResponse().Payload(BuildCharts(stats)).Write(w)
}

// handleFilters serves GET /api/filters.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.dashboard.Options(r.Context())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Payload(opts).Write(w)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
