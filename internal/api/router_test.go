// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/casefinder/internal/config"
	"github.com/tomtom215/casefinder/internal/models"
)

func TestRouter_UnknownAPIEndpoint(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error == nil || resp.Error.Code != models.ErrCodeNotFound {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	rec := ts.do(http.MethodGet, "/api/health", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t, RouterConfig{
		Middleware: MiddlewareConfigFromAPI(&config.APIConfig{
			CORSOrigins:       []string{"https://casefinder.example"},
			RateLimitDisabled: true,
		}),
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/text", nil)
	req.Header.Set("Origin", "https://casefinder.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://casefinder.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	ts := newTestServer(t, RouterConfig{Middleware: &MiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}})

	for i := 0; i < 2; i++ {
		if rec := ts.do(http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	rec := ts.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Error.Code != models.ErrCodeTooManyRequests {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})
	ts.do(http.MethodGet, "/api/health", "")

	rec := ts.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `endpoint="/api/health"`) {
		t.Error("metrics output should label requests by route pattern")
	}
}

func TestRouter_StaticFrontend(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<html>casefinder</html>")
	writeFile(t, filepath.Join(dir, "assets", "app.js"), "console.log(1)")

	ts := newTestServer(t, RouterConfig{FrontendDir: dir})

	tests := []struct {
		path      string
		wantBody  string
		wantCache string
	}{
		{"/", "<html>casefinder</html>", "public, max-age=300"},
		{"/assets/app.js", "console.log(1)", "public, max-age=31536000, immutable"},
		{"/similar/123", "<html>casefinder</html>", "public, max-age=300"},
		{"/assets/", "<html>casefinder</html>", "public, max-age=300"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
		})
	}
}

func TestRouter_NoFrontend(t *testing.T) {
	ts := newTestServer(t, RouterConfig{})

	if rec := ts.do(http.MethodGet, "/", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a frontend dir", rec.Code)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
