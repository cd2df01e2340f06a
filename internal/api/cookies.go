package api

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names used for the token pair.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type SessionCookieSecureMode int

const (
	SessionCookieSecureAuto SessionCookieSecureMode = iota
	SessionCookieSecureAlways
)

type SessionCookiePolicy struct {
	SameSite   http.SameSite
	SecureMode SessionCookieSecureMode
}

func DefaultSessionCookiePolicy() SessionCookiePolicy {
	return SessionCookiePolicy{
		SameSite:   http.SameSiteStrictMode,
		SecureMode: SessionCookieSecureAuto,
	}
}

func (p SessionCookiePolicy) secure(r *http.Request) bool {
	if p.SecureMode == SessionCookieSecureAlways {
		return true
	}
	return isSecureRequest(r)
}

func (h *Handler) sessionCookiePolicy() SessionCookiePolicy {
	policy := h.SessionCookiePolicy
	if policy.SameSite == 0 {
		policy.SameSite = http.SameSiteStrictMode
	}
	if policy.SecureMode == 0 {
		policy.SecureMode = SessionCookieSecureAuto
	}
	return policy
}

func setTokenCookie(w http.ResponseWriter, r *http.Request, name, token string, expires time.Time, policy SessionCookiePolicy) {
	if token == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: policy.SameSite,
	})
}

func clearTokenCookie(w http.ResponseWriter, r *http.Request, name string, policy SessionCookiePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: policy.SameSite,
	})
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, r *http.Request, accessToken string, accessExpires time.Time, refreshToken string, refreshExpires time.Time) {
	policy := h.sessionCookiePolicy()
	setTokenCookie(w, r, AccessTokenCookie, accessToken, accessExpires, policy)
	setTokenCookie(w, r, RefreshTokenCookie, refreshToken, refreshExpires, policy)
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter, r *http.Request) {
	policy := h.sessionCookiePolicy()
	clearTokenCookie(w, r, AccessTokenCookie, policy)
	clearTokenCookie(w, r, RefreshTokenCookie, policy)
}

// ClearAuthCookies removes both token cookies from the response using the
// handler's configured policy.
func (h *Handler) ClearAuthCookies(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w, r)
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	if r.URL != nil && strings.EqualFold(r.URL.Scheme, "https") {
		return true
	}
	return false
}
