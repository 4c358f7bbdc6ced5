// Package client calls a running rekrutacje server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rekrutacje/internal/core"
	"rekrutacje/internal/services"
)

const pageSize = 500

type Client struct {
	base string
	h    *http.Client
}

// New returns a client for the server at base, e.g. http://localhost:8081.
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		h:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// dashboardResponse holds either statistics or the no-data message.
type dashboardResponse struct {
	core.DashboardStats
	Message string `json:"message"`
}

// Dashboard fetches /api/dashboard. It returns core.ErrNoData when no
// record matches c.
func (c *Client) Dashboard(ctx context.Context, crit core.FilterCriteria) (core.DashboardStats, error) {
	q := url.Values{}
	for k, v := range map[string]string{
		"date_from":   crit.DateFrom,
		"date_to":     crit.DateTo,
		"department":  crit.Department,
		"collar_type": crit.CollarType,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}

	var resp dashboardResponse
	if err := c.getJSON(ctx, "/api/dashboard", q, &resp); err != nil {
		return core.DashboardStats{}, err
	}
	if resp.Message != "" {
		return core.DashboardStats{}, fmt.Errorf("%w: %s", core.ErrNoData, resp.Message)
	}
	return resp.DashboardStats, nil
}

// Options fetches the filter choices.
func (c *Client) Options(ctx context.Context) (core.Options, error) {
	var opts core.Options
	err := c.getJSON(ctx, "/api/filters", nil, &opts)
	return opts, err
}

// Records pages through /api/records until the collection is exhausted.
func (c *Client) Records(ctx context.Context) ([]core.Record, error) {
	var out []core.Record
	for skip := 0; ; skip += pageSize {
		q := url.Values{}
		q.Set("skip", strconv.Itoa(skip))
		q.Set("limit", strconv.Itoa(pageSize))

		var page []core.Record
		if err := c.getJSON(ctx, "/api/records", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// Export downloads the server's export document.
func (c *Client) Export(ctx context.Context) (services.ExportDocument, error) {
	var doc services.ExportDocument
	err := c.getJSON(ctx, "/api/export", nil, &doc)
	return doc, err
}

// Import uploads records to /api/import.
func (c *Client) Import(ctx context.Context, items []json.RawMessage) (services.ImportResult, error) {
	body, err := json.Marshal(items)
	if err != nil {
		return services.ImportResult{}, fmt.Errorf("encode import items: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/import", bytes.NewReader(body))
	if err != nil {
		return services.ImportResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result services.ImportResult
	err = c.do(req, &result)
	return result, err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, dst)
}

func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.h.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var body struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
