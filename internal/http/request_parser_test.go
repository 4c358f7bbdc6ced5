package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"rekrutacje/internal/core"
	"rekrutacje/internal/records"
	"rekrutacje/internal/services"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query   string
		want    Pagination
		wantErr bool
	}{
		{"", Pagination{Skip: 0, Limit: 100}, false},
		{"skip=20&limit=10", Pagination{Skip: 20, Limit: 10}, false},
		{"limit=5000", Pagination{Skip: 0, Limit: 1000}, false},
		{"skip=-1", Pagination{}, true},
		{"limit=0", Pagination{}, true},
		{"skip=abc", Pagination{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParsePagination(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("error should wrap errBadRequest: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFilterCriteria(t *testing.T) {
	q := url.Values{
		"date_from":   {" 2024-01-01 "},
		"department":  {"IT\x00"},
		"collar_type": {"Blue"},
	}
	c := ParseFilterCriteria(q)
	want := core.FilterCriteria{DateFrom: "2024-01-01", Department: "IT", CollarType: "Blue"}
	if c != want {
		t.Fatalf("got %+v, want %+v", c, want)
	}
	if err := validateFilterCriteria(c); err != nil {
		t.Errorf("valid criteria rejected: %v", err)
	}
	if err := validateFilterCriteria(core.FilterCriteria{DateTo: "2024-13-45"}); !errors.Is(err, errBadRequest) {
		t.Errorf("expected bad request for invalid date_to, got %v", err)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("get: %w", records.ErrNotFound), http.StatusNotFound},
		{"duplicate", records.ErrDuplicateReference, http.StatusBadRequest},
		{"bad request", fmt.Errorf("%w: nope", errBadRequest), http.StatusBadRequest},
		{"too large", fmt.Errorf("%w: %w", errBadRequest, &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"invalid record", fmt.Errorf("%w: %w", services.ErrInvalidRecord, core.ErrEmptyReason), http.StatusUnprocessableEntity},
		{"bare validation", core.ErrMissingOpenedDate, http.StatusUnprocessableEntity},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDashboardViewState(t *testing.T) {
	opts := core.Options{Departments: []string{"HR", "IT"}, MinDate: "2024-01-01", MaxDate: "2024-06-30"}

	v := NewDashboardViewState(url.Values{}).WithOptions(opts)
	if v.Filters.DateFrom != "2024-01-01" || v.Filters.DateTo != "2024-06-30" {
		t.Errorf("date range should default to the data span, got %+v", v.Filters)
	}

	v = NewDashboardViewState(url.Values{"date_to": {"2024-03-01"}, "department": {"IT"}}).WithOptions(opts)
	if v.Filters.DateFrom != "" || v.Filters.DateTo != "2024-03-01" {
		t.Errorf("explicit dates must be kept, got %+v", v.Filters)
	}
	if !v.IsSelected("department", "IT") || v.IsSelected("department", "HR") || v.IsSelected("unknown", "IT") {
		t.Error("IsSelected mismatch")
	}

	if v.HasData() {
		t.Error("no stats attached yet")
	}
	v = v.WithStats(core.DashboardStats{Total: 2, ByDepartment: map[string]int{"IT": 2}})
	if !v.HasData() || v.Charts == nil || v.Charts.Departments.Values[0] != 2 {
		t.Errorf("stats not attached: %+v", v)
	}
	v = v.WithMessage("nothing")
	if v.HasData() || v.Charts != nil || v.Message != "nothing" {
		t.Errorf("message should clear stats: %+v", v)
	}
}

func TestBuildChartsSortsLabels(t *testing.T) {
	charts := BuildCharts(core.DashboardStats{
		ByReason: map[string]int{"Replacement": 3, "New Position": 5, "Backfill": 1},
		Funnel:   core.FunnelTotals{CVs: 40, Meetings: 12, Offers: 4, Hires: 2},
	})

	want := []string{"Backfill", "New Position", "Replacement"}
	for i, l := range want {
		if charts.Reasons.Labels[i] != l {
			t.Fatalf("labels = %v, want %v", charts.Reasons.Labels, want)
		}
	}
	if charts.Reasons.Values[1] != 5 || charts.Reasons.Type != ChartPie {
		t.Errorf("unexpected reasons chart: %+v", charts.Reasons)
	}
	if !charts.Funnel.Horizontal || charts.Funnel.Values[3] != 2 {
		t.Errorf("unexpected funnel: %+v", charts.Funnel)
	}
}
