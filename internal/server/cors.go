package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// CORSConfig declares the origins allowed to access the API across domains.
// StudioOrigins authorise requests from the creator studio, while
// ViewerOrigins cover the public watch pages. When both lists are empty, only
// same-origin requests are permitted.
type CORSConfig struct {
	StudioOrigins []string
	ViewerOrigins []string
}

// The API serves GET/POST/PATCH/DELETE only; PUT is deliberately absent.
const corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"

// Browsers only ever send these on cliptide requests: credentials ride in
// cookies, tokens in Authorization, payloads as JSON.
const corsAllowHeaders = "Authorization, Content-Type, X-Request-Id"

const corsMaxAgeSeconds = "600"

type corsPolicy struct {
	allowed map[string]struct{}
}

func newCORSPolicy(cfg CORSConfig) (corsPolicy, error) {
	policy := corsPolicy{allowed: make(map[string]struct{})}
	for _, list := range [][]string{cfg.StudioOrigins, cfg.ViewerOrigins} {
		for _, origin := range list {
			normalized, err := normalizeOrigin(origin)
			if err != nil {
				return corsPolicy{}, fmt.Errorf("parse origin %q: %w", origin, err)
			}
			if normalized != "" {
				policy.allowed[normalized] = struct{}{}
			}
		}
	}
	return policy, nil
}

func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", nil
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("origin must include scheme and host")
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), nil
}

func (p corsPolicy) allows(origin string, r *http.Request) bool {
	normalized, err := normalizeOrigin(origin)
	if err != nil || normalized == "" {
		return false
	}
	if _, ok := p.allowed[normalized]; ok {
		return true
	}
	// Same-origin requests carry an Origin header too on non-GET methods;
	// they need no allowlist entry.
	self := originForRequest(r)
	return self != "" && normalized == self
}

func corsMiddleware(policy corsPolicy, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !policy.allows(origin, r) {
			if logger != nil {
				logger.Warn("blocked CORS origin", "origin", origin, "path", r.URL.Path)
			}
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		header := w.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			writePreflight(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writePreflight(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Access-Control-Request-Method") != "" {
		header := w.Header()
		header.Set("Access-Control-Allow-Methods", corsAllowMethods)
		header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		header.Set("Access-Control-Max-Age", corsMaxAgeSeconds)
	}
	w.WriteHeader(http.StatusNoContent)
}

func originForRequest(r *http.Request) string {
	host := strings.ToLower(strings.TrimSpace(r.Host))
	if host == "" {
		return ""
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}

	return scheme + "://" + host
}
