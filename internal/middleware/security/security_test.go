package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "rekrutacje/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(quietLogger())

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct public", "203.0.113.9:5555", nil, "203.0.113.9"},
		{"public ignores forwarded", "203.0.113.9:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.9"},
		{"trusted proxy forwarded", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "198.51.100.7"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
		{"trusted proxy garbage header", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"no port", "198.51.100.1", nil, "198.51.100.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(quietLogger())

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"dashboard", http.MethodGet, "/api/dashboard?department=HR", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector(quietLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	d.Middleware(true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	d.Middleware(false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when only logging", rec.Code)
	}

	if got := d.GetMetrics(); got.SuspiciousRequests != 2 || got.BlockedRequests != 1 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(quietLogger())
	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.3")
	if got := d.ExtractClientIP(r); got != "198.51.100.3" {
		t.Errorf("ExtractClientIP = %q", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "cdn.jsdelivr.net") {
		t.Error("CSP must allow the chart library CDN")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestStaticAssetMiddleware(t *testing.T) {
	h := StaticAssetMiddleware(3600)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
}
