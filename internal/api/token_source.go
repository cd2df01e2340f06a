package api

import (
	"net/http"
	"strings"
)

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// ExtractAccessToken resolves the access token for a request. The cookie
// takes precedence over the Authorization header so browser sessions win over
// stale client headers.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r)
}

// ExtractRefreshToken resolves the refresh token for a rotation request,
// checking the cookie first and the Authorization header second. Callers fall
// back to the request body when both are empty.
func ExtractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r)
}
