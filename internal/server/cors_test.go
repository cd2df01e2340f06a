package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newCORSTestHandler(t *testing.T, cfg CORSConfig) http.Handler {
	t.Helper()
	policy, err := newCORSPolicy(cfg)
	if err != nil {
		t.Fatalf("newCORSPolicy: %v", err)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return corsMiddleware(policy, nil, next)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{
		StudioOrigins: []string{"https://studio.example.com"},
		ViewerOrigins: []string{"https://watch.example.com"},
	})

	for _, origin := range []string{"https://studio.example.com", "https://watch.example.com"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to be allowed, got %d", origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("expected allow-origin %s, got %q", origin, got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatal("expected credentials to be allowed")
		}
	}
}

func TestCORSBlocksUnknownOrigin(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{StudioOrigins: []string{"https://studio.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", rec.Code)
	}
}

func TestCORSAllowsSameOrigin(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/v1/videos", nil)
	req.Host = "api.example.com"
	req.Header.Set("Origin", "http://api.example.com")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected same-origin request to pass, got %d", rec.Code)
	}
}

func TestCORSPassesRequestsWithoutOrigin(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{})

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected request without origin to pass, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers without an origin")
	}
}

func TestCORSPreflight(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{StudioOrigins: []string{"https://studio.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/videos", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight response, got %d", rec.Code)
	}
	methods := rec.Header().Get("Access-Control-Allow-Methods")
	if methods == "" {
		t.Fatal("expected allow-methods header")
	}
	if strings.Contains(methods, "PUT") {
		t.Fatalf("allow-methods should not offer PUT, got %q", methods)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
		t.Fatalf("expected fixed header allowlist, got %q", got)
	}
	if rec.Header().Get("Access-Control-Max-Age") == "" {
		t.Fatal("expected preflight result to be cacheable")
	}
}

func TestCORSSameOriginBehindProxy(t *testing.T) {
	mw := newCORSTestHandler(t, CORSConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", nil)
	req.Host = "api.example.com"
	req.Header.Set("Origin", "https://api.example.com")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected TLS-terminated same-origin request to pass, got %d", rec.Code)
	}
}

func TestNewCORSPolicyRejectsBadOrigin(t *testing.T) {
	if _, err := newCORSPolicy(CORSConfig{StudioOrigins: []string{"studio.example.com"}}); err == nil {
		t.Fatal("expected error for origin without scheme")
	}
}

func TestNormalizeOriginLowercases(t *testing.T) {
	got, err := normalizeOrigin("HTTPS://Studio.Example.COM")
	if err != nil {
		t.Fatalf("normalizeOrigin: %v", err)
	}
	if got != "https://studio.example.com" {
		t.Fatalf("unexpected normalized origin %s", got)
	}
}
