package api

import (
	"errors"
	"fmt"
	"net/http"

	"cliptide/internal/auth"
	"cliptide/internal/observability/metrics"
	"cliptide/internal/storage"
)

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	AvatarURL   string `json:"avatarUrl"`
	CoverURL    string `json:"coverUrl"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register creates a new account. The password is hashed before it is
// persisted; the plaintext never reaches the datastore.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		AvatarURL:   req.AvatarURL,
		CoverURL:    req.CoverURL,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// Login verifies credentials and issues a fresh token pair. An unknown
// identifier and a wrong password are reported distinctly.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	login := req.Username
	if login == "" {
		login = req.Email
	}
	if login == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username or email is required"))
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("password is required"))
		return
	}

	user, err := h.Store.AuthenticateUser(login, req.Password)
	if err != nil {
		metrics.ObserveAuthEvent("login_failure")
		if errors.Is(err, storage.ErrUnknownUser) {
			writeError(w, http.StatusNotFound, fmt.Errorf("account not found"))
			return
		}
		if errors.Is(err, storage.ErrInvalidCredentials) {
			writeError(w, http.StatusConflict, fmt.Errorf("incorrect password"))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pair, err := h.Sessions.Login(r.Context(), auth.Identity{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.ObserveAuthEvent("login_success")
	metrics.SessionOpened()
	h.setAuthCookies(w, r, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, authResponse{
		Identity:     newUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout revokes the caller's refresh-token slot and clears both cookies.
// Repeating a logout succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Logout(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	metrics.ObserveAuthEvent("logout")
	metrics.SessionClosed()
	h.clearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// RefreshToken exchanges a refresh token for a new pair. The token is taken
// from the refreshToken cookie, then the Authorization header, then the JSON
// body. Every failure is reported identically.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	presented := ExtractRefreshToken(r)
	if presented == "" && r.Body != nil {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.Sessions.Rotate(r.Context(), presented)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			metrics.ObserveAuthEvent("rotation_rejected")
			writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.ObserveAuthEvent("rotation")
	h.setAuthCookies(w, r, pair.AccessToken, pair.AccessExpiresAt, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// ChangePassword verifies the current password and stores the replacement.
// The refresh-token slot is revoked so existing sessions must log in again.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, fmt.Errorf("new password and confirmation do not match"))
		return
	}

	if _, err := h.Store.AuthenticateUser(user.Username, req.OldPassword); err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("incorrect password"))
		return
	}
	if _, err := h.Store.SetUserPassword(user.ID, req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Sessions.InvalidateSessions(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.clearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// CurrentUser returns the identity carried by the caller's access token,
// refreshed from the datastore when the account still exists.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if stored, exists := h.Store.GetUser(user.ID); exists {
		user = stored
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
