package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeadersConfig lists the response headers set on every page and API reply.
// Fixed holds name/value pairs written verbatim; HSTS is only sent on TLS
// connections and only when HSTSMaxAge is positive.
type HeadersConfig struct {
	Fixed map[string]string

	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
}

var dashboardCSP = []string{
	"default-src 'self'",
	"script-src 'self' https://cdn.jsdelivr.net",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data:",
	"connect-src 'self'",
	"object-src 'none'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}

// DefaultHeadersConfig returns the headers used by the dashboard. Chart.js is
// the only script loaded from a CDN.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		Fixed: map[string]string{
			"Content-Security-Policy":      strings.Join(dashboardCSP, "; "),
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
	}
}

type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

// NewHeadersMiddleware canonicalises the configured headers once so each
// request only copies them.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{fixed: make(http.Header, len(config.Fixed))}
	for name, value := range config.Fixed {
		if value != "" {
			h.fixed.Set(name, value)
		}
	}
	if secs := int64(config.HSTSMaxAge / time.Second); secs > 0 {
		h.hsts = "max-age=" + strconv.FormatInt(secs, 10)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for name, values := range h.fixed {
			out[name] = values
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware marks embedded assets as publicly cacheable for
// maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	cacheControl := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", cacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}
