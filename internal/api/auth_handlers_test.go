package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cliptide/internal/storage"
)

func TestRegisterCreatesAccount(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/register", registerRequest{
		Username: "Alice",
		Email:    "Alice@Example.com",
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body userResponse
	decodeBody(t, rec, &body)
	if body.Username != "alice" {
		t.Fatalf("expected normalized username, got %s", body.Username)
	}
	if body.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", body.Email)
	}
	if body.ID == "" {
		t.Fatal("expected user id in response")
	}
}

func TestRegisterDuplicateReturnsConflict(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/register", registerRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegisterRejectsUnknownFields(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"username":"alice","password":"hunter42!","email":"a@example.com","admin":true}`))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
		Username: "alice",
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body authResponse
	decodeBody(t, rec, &body)
	if body.AccessToken == "" || body.RefreshToken == "" {
		t.Fatal("expected both tokens in response body")
	}
	if body.Identity.Username != "alice" {
		t.Fatalf("unexpected identity %s", body.Identity.Username)
	}

	identity, err := handler.Sessions.VerifyAccessToken(body.AccessToken)
	if err != nil {
		t.Fatalf("issued access token failed verification: %v", err)
	}
	if identity.ID != body.Identity.ID {
		t.Fatalf("access token subject %s does not match identity %s", identity.ID, body.Identity.ID)
	}

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := findCookie(t, rec, name)
		if cookie == nil {
			t.Fatalf("expected %s cookie", name)
		}
		if !cookie.HttpOnly {
			t.Fatalf("expected %s cookie to be HttpOnly", name)
		}
		if cookie.Path != "/" {
			t.Fatalf("expected %s cookie path /, got %s", name, cookie.Path)
		}
		if cookie.MaxAge <= 0 {
			t.Fatalf("expected positive max-age on %s cookie, got %d", name, cookie.MaxAge)
		}
	}
}

func TestLoginByEmail(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginUnknownAccountReturnsNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
		Username: "ghost",
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLoginWrongPasswordReturnsConflict(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
		Username: "alice",
		Password: "not-the-password",
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")

	cases := []struct {
		name string
		req  loginRequest
	}{
		{"missing login", loginRequest{Password: testPassword}},
		{"missing password", loginRequest{Username: "alice"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/v1/users/login", tc.req))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSessionCookieSecureAttribute(t *testing.T) {
	cases := []struct {
		name   string
		policy SessionCookiePolicy
		setup  func(r *http.Request)
		secure bool
	}{
		{
			name:   "auto over plain http",
			policy: DefaultSessionCookiePolicy(),
			setup:  func(r *http.Request) {},
			secure: false,
		},
		{
			name:   "auto behind https proxy",
			policy: DefaultSessionCookiePolicy(),
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-Proto", "https")
			},
			secure: true,
		},
		{
			name: "always",
			policy: SessionCookiePolicy{
				SameSite:   http.SameSiteStrictMode,
				SecureMode: SessionCookieSecureAlways,
			},
			setup:  func(r *http.Request) {},
			secure: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, store := newTestHandler(t)
			handler.SessionCookiePolicy = tc.policy
			createAPIUser(t, store, "alice")

			req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
				Username: "alice",
				Password: testPassword,
			})
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.Login(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			cookie := findCookie(t, rec, AccessTokenCookie)
			if cookie == nil {
				t.Fatal("expected access token cookie")
			}
			if cookie.Secure != tc.secure {
				t.Fatalf("expected Secure=%v, got %v", tc.secure, cookie.Secure)
			}
			if cookie.SameSite != http.SameSiteStrictMode {
				t.Fatalf("expected SameSite=Strict, got %v", cookie.SameSite)
			}
		})
	}
}

func loginTestUser(t *testing.T, handler *Handler, username string) authResponse {
	t.Helper()
	req := jsonRequest(t, http.MethodPost, "/api/v1/users/login", loginRequest{
		Username: username,
		Password: testPassword,
	})
	rec := httptest.NewRecorder()
	handler.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", rec.Code, rec.Body.String())
	}
	var body authResponse
	decodeBody(t, rec, &body)
	return body
}

func TestRefreshRotatesTokens(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.RefreshToken})
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["accessToken"] == "" || body["refreshToken"] == "" {
		t.Fatal("expected rotated token pair in body")
	}
	if body["refreshToken"] == session.RefreshToken {
		t.Fatal("expected rotation to mint a new refresh token")
	}
	if cookie := findCookie(t, rec, RefreshTokenCookie); cookie == nil || cookie.Value != body["refreshToken"] {
		t.Fatal("expected refresh cookie to carry the rotated token")
	}

	// The superseded token was rotated away and must be refused.
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	replay.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.RefreshToken})
	rec = httptest.NewRecorder()
	handler.RefreshToken(rec, replay)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed token to get 401, got %d", rec.Code)
	}

	// The rotated token keeps working.
	next := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	next.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: body["refreshToken"]})
	rec = httptest.NewRecorder()
	handler.RefreshToken(rec, next)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected rotated token to refresh, got %d", rec.Code)
	}
}

func TestRefreshAcceptsBodyToken(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token", refreshRequest{
		RefreshToken: session.RefreshToken,
	})
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for body token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshWithoutTokenReturnsUnauthorized(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "not-a-token"})
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestRefreshRejectsAccessTokenPresentedAsRefresh(t *testing.T) {
	handler, store := newTestHandler(t)
	createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.AccessToken})
	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an access token in the refresh slot, got %d", rec.Code)
	}
}

func TestLogoutRevokesRefreshSlot(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := findCookie(t, rec, name)
		if cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("expected %s cookie to be cleared", name)
		}
	}

	refresh := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	refresh.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.RefreshToken})
	rec = httptest.NewRecorder()
	handler.RefreshToken(rec, refresh)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh after logout to get 401, got %d", rec.Code)
	}

	// Logging out again succeeds.
	req = withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user)
	rec = httptest.NewRecorder()
	handler.Logout(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected repeated logout to return 200, got %d", rec.Code)
	}
}

func TestAccessTokenStillVerifiesAfterLogout(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), user)
	handler.Logout(httptest.NewRecorder(), req)

	// Access checks are stateless; the token stays good until it expires.
	if _, err := handler.Sessions.VerifyAccessToken(session.AccessToken); err != nil {
		t.Fatalf("access token should verify after logout: %v", err)
	}
}

func TestChangePasswordMismatchReturnsBadRequest(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")

	req := withUser(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", changePasswordRequest{
		OldPassword:     testPassword,
		NewPassword:     "next-password",
		ConfirmPassword: "different",
	}), user)
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched confirmation, got %d", rec.Code)
	}
}

func TestChangePasswordWrongOldReturnsUnauthorized(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")

	req := withUser(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", changePasswordRequest{
		OldPassword:     "wrong",
		NewPassword:     "next-password",
		ConfirmPassword: "next-password",
	}), user)
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong old password, got %d", rec.Code)
	}
}

func TestChangePasswordRotatesCredentialAndRevokesSessions(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")
	session := loginTestUser(t, handler, "alice")

	req := withUser(jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", changePasswordRequest{
		OldPassword:     testPassword,
		NewPassword:     "next-password",
		ConfirmPassword: "next-password",
	}), user)
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		cookie := findCookie(t, rec, name)
		if cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("expected %s cookie to be cleared", name)
		}
	}

	if _, err := store.AuthenticateUser("alice", testPassword); err == nil {
		t.Fatal("expected old password to be rejected")
	}
	if _, err := store.AuthenticateUser("alice", "next-password"); err != nil {
		t.Fatalf("expected new password to authenticate: %v", err)
	}

	refresh := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	refresh.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.RefreshToken})
	rec = httptest.NewRecorder()
	handler.RefreshToken(rec, refresh)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected refresh after password change to get 401, got %d", rec.Code)
	}
}

func TestCurrentUserReturnsStoredProfile(t *testing.T) {
	handler, store := newTestHandler(t)
	user := createAPIUser(t, store, "alice")

	displayName := "Alice Prime"
	if _, err := store.UpdateUser(user.ID, storage.UserUpdate{DisplayName: &displayName}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), user)
	rec := httptest.NewRecorder()
	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body userResponse
	decodeBody(t, rec, &body)
	if body.DisplayName != displayName {
		t.Fatalf("expected refreshed display name, got %s", body.DisplayName)
	}
}

func TestCurrentUserRequiresAuthentication(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.CurrentUser(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without context user, got %d", rec.Code)
	}
}

func TestAuthEndpointsRejectWrongMethod(t *testing.T) {
	handler, _ := newTestHandler(t)

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"register", handler.Register},
		{"login", handler.Login},
		{"logout", handler.Logout},
		{"refresh", handler.RefreshToken},
		{"change-password", handler.ChangePassword},
	}
	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ep.handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/"+ep.name, nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("expected 405, got %d", rec.Code)
			}
			if allow := rec.Header().Get("Allow"); allow != "POST" {
				t.Fatalf("expected Allow: POST, got %q", allow)
			}
		})
	}
}
