package http

import (
	"net/http"

	"rekrutacje/internal/core"
	applog "rekrutacje/internal/log"
)

// recordResponse is a record with its derived values and any data-quality
// warnings raised when it was written.
type recordResponse struct {
	core.RecordView
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) recordResponse(r core.Record, withWarnings bool) recordResponse {
	resp := recordResponse{RecordView: core.NewRecordView(r, s.now())}
	if withWarnings {
		resp.Warnings = r.Warnings()
	}
	return resp
}

// handleListRecords serves GET /api/records?skip=&limit=.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePagination(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	items, err := s.records.List(r.Context(), page.Skip, page.Limit)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	views := make([]core.RecordView, 0, len(items))
	now := s.now()
	for _, rec := range items {
		views = append(views, core.NewRecordView(rec, now))
	}
	NewJSONResponse().Payload(views).Write(w)
}

// handleCreateRecord serves POST /api/records.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if err := decodeJSONBody(w, r, &rec); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	created, err := s.records.Create(r.Context(), rec)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.countWrite(&s.appMetrics.recordsCreated)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/records/"+formatID(created.ID)).
		Payload(s.recordResponse(created, true)).
		Write(w)
}

// handleGetRecord serves GET /api/records/{id}.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	rec, err := s.records.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Payload(s.recordResponse(rec, false)).Write(w)
}

// handleUpdateRecord serves PUT /api/records/{id}; absent fields keep their
// stored value.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	var patch core.RecordPatch
	if err := decodeJSONBody(w, r, &patch); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	updated, err := s.records.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.countWrite(&s.appMetrics.recordsUpdated)
	NewJSONResponse().Payload(s.recordResponse(updated, true)).Write(w)
}

// handleDeleteRecord serves DELETE /api/records/{id}.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecordID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.records.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.countWrite(&s.appMetrics.recordsDeleted)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleStatistics serves GET /api/statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.records.Counts(r.Context())
	if err != nil {
		writeError(w, r, applog.OpAggregate, err)
		return
	}
	NewJSONResponse().Payload(counts).Write(w)
}
