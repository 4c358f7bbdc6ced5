package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"rekrutacje/internal/core"
)

func TestDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dashboard" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("department") == "Legal" {
			_, _ = io.WriteString(w, `{"message":"No data for the selected filters","total":0}`)
			return
		}
		if got := r.URL.Query().Get("collar_type"); got != "Blue" {
			t.Errorf("collar_type = %q", got)
		}
		_, _ = io.WriteString(w, `{"total":3,"hired":1,"funnel":{"cvs":32,"meetings":11,"offers":2,"hires":1},"avg_time_to_fill":31.0}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	stats, err := c.Dashboard(context.Background(), core.FilterCriteria{CollarType: "Blue"})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.Total != 3 || stats.Funnel.CVs != 32 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.AvgTimeToFill == nil || stats.AvgTimeToFill.Float() != 31 {
		t.Errorf("avg time to fill = %v", stats.AvgTimeToFill)
	}

	_, err = c.Dashboard(context.Background(), core.FilterCriteria{Department: "Legal", CollarType: "Blue"})
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad request: date_from must be YYYY-MM-DD"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Dashboard(context.Background(), core.FilterCriteria{DateFrom: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "bad request: date_from must be YYYY-MM-DD" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestRecordsFollowsPages(t *testing.T) {
	const total = pageSize + 7
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page := []core.Record{}
		for i := skip; i < total && i < skip+limit; i++ {
			page = append(page, core.Record{ID: int64(i + 1), ReferenceID: fmt.Sprintf("REQ-%d", i+1)})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).Records(context.Background())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != total || got[total-1].ReferenceID != fmt.Sprintf("REQ-%d", total) {
		t.Fatalf("got %d records", len(got))
	}
	if calls != 2 {
		t.Errorf("expected 2 page requests, got %d", calls)
	}
}

func TestImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		var items []core.Record
		if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
			t.Errorf("decode: %v", err)
		}
		fmt.Fprintf(w, `{"imported":%d,"skipped":0,"errors":[]}`, len(items))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Import(context.Background(), []json.RawMessage{
		json.RawMessage(`{"reference_id":"A"}`),
		json.RawMessage(`{"reference_id":"B"}`),
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 {
		t.Errorf("imported = %d", res.Imported)
	}
}
