// Package http serves the REST API and the server-rendered dashboard.
//
// This file holds the helpers shared by handlers to read query parameters,
// path variables and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"rekrutacje/internal/core"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000

	// maxBodyBytes caps JSON bodies; imports get maxImportBytes.
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

// errBadRequest marks client input errors that map to 400.
var errBadRequest = errors.New("bad request")

// Pagination is the skip/limit window of a list request.
type Pagination struct {
	Skip  int
	Limit int
}

// ParsePagination reads skip and limit. limit defaults to 100 and is capped
// at 1000; malformed or negative values are rejected.
func ParsePagination(query url.Values) (Pagination, error) {
	p := Pagination{Limit: defaultPageLimit}

	if v := strings.TrimSpace(query.Get("skip")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Pagination{}, fmt.Errorf("%w: skip must be a non-negative integer", errBadRequest)
		}
		p.Skip = n
	}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Pagination{}, fmt.Errorf("%w: limit must be a positive integer", errBadRequest)
		}
		p.Limit = min(n, maxPageLimit)
	}
	return p, nil
}

// ParseFilterCriteria reads the dashboard filters from the query string.
func ParseFilterCriteria(query url.Values) core.FilterCriteria {
	return core.FilterCriteria{
		DateFrom:   sanitizeInput(query.Get("date_from")),
		DateTo:     sanitizeInput(query.Get("date_to")),
		Department: sanitizeInput(query.Get("department")),
		CollarType: sanitizeInput(query.Get("collar_type")),
	}
}

// validateFilterCriteria rejects dates that are not YYYY-MM-DD, since the
// lexical comparison is only meaningful on ISO dates.
func validateFilterCriteria(c core.FilterCriteria) error {
	if _, err := core.ParseDate(c.DateFrom); err != nil {
		return fmt.Errorf("%w: date_from must be YYYY-MM-DD", errBadRequest)
	}
	if _, err := core.ParseDate(c.DateTo); err != nil {
		return fmt.Errorf("%w: date_to must be YYYY-MM-DD", errBadRequest)
	}
	return nil
}

// parseRecordID reads the {id} path variable.
func parseRecordID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid record id %q", errBadRequest, raw)
	}
	return id, nil
}

// decodeJSONBody decodes a size-limited JSON body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: Content-Type must be application/json", errBadRequest)
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON value", errBadRequest)
	}
	return nil
}

// importBody returns the import document from a multipart "file" field or,
// for any other content type, the raw body.
func importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart form: %w", errBadRequest, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: multipart form has no file field", errBadRequest)
	}
	return file, nil
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
