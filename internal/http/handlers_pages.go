package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
)

// indexRow is one line of the records table.
type indexRow struct {
	core.RecordView
	Badge string
}

type indexPage struct {
	Counts core.Counts
	Rows   []indexRow
}

type dashboardPage struct {
	DashboardViewState
	// ChartsJSON feeds the chart script through a JSON data island.
	ChartsJSON template.JS
}

func (s *Server) templatesMissing(w http.ResponseWriter, r *http.Request) bool {
	if s.templates != nil {
		return false
	}
	s.logger.ErrorContext(r.Context(), "Templates not loaded",
		applog.FieldPath, r.URL.Path,
		applog.FieldComponent, applog.ComponentTemplate,
		applog.FieldErrorType, applog.ErrorTypeConfiguration)
	http.Error(w, "templates not loaded", http.StatusInternalServerError)
	return true
}

// render executes into a buffer so a failing template never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender,
			"template", name)
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleIndex lists records with their days-open badge.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templatesMissing(w, r) {
		return
	}

	page, err := ParsePagination(r.URL.Query())
	if err != nil {
		page = Pagination{Limit: defaultPageLimit}
	}

	items, err := s.records.List(r.Context(), page.Skip, page.Limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Record list error", applog.FieldError, err)
		http.Error(w, "error loading records", http.StatusInternalServerError)
		return
	}
	counts, err := s.records.Counts(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Record counts error", applog.FieldError, err)
	}

	data := indexPage{Counts: counts, Rows: make([]indexRow, 0, len(items))}
	now := s.now()
	for _, rec := range items {
		view := core.NewRecordView(rec, now)
		data.Rows = append(data.Rows, indexRow{RecordView: view, Badge: core.Badge(view.DaysOpen)})
	}
	s.render(w, r, "index.html", data)
}

// handleDashboardPage renders the filterable dashboard. Filter choices come
// from the whole collection; statistics from the filtered subset.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if s.templatesMissing(w, r) {
		return
	}

	state := NewDashboardViewState(r.URL.Query())
	opts, err := s.dashboard.Options(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Filter options error", applog.FieldError, err)
	}
	state = state.WithOptions(opts)

	if err := validateFilterCriteria(state.Filters); err != nil {
		state = state.WithMessage("Dates must be in YYYY-MM-DD format")
	} else {
		stats, ok, err := s.dashboardStats(r.Context(), state.Filters)
		switch {
		case err != nil:
			s.logger.ErrorContext(r.Context(), "Dashboard stats error", applog.FieldError, err)
			state = state.WithMessage("Error loading statistics")
		case !ok:
			state = state.WithMessage(noDataMessage)
		default:
			state = state.WithStats(stats)
		}
	}

	page := dashboardPage{DashboardViewState: state}

	if state.Charts != nil {
		raw, err := json.Marshal(state.Charts)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Chart encoding failed", applog.FieldError, err)
		} else {
			page.ChartsJSON = template.JS(raw)
		}
	}
	s.render(w, r, "dashboard.html", page)
}
