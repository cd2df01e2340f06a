package api

import (
	"context"
	"fmt"
	"net/http"

	"cliptide/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest verifies the access token on the request and loads the
// account it names. The refresh-token store is never consulted, but the
// identity record must still exist: a token outliving its account is rejected.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractAccessToken(r)
	if token == "" {
		return models.User{}, fmt.Errorf("missing access token")
	}
	identity, err := h.Sessions.VerifyAccessToken(token)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid or expired access token")
	}
	user, ok := h.Store.GetUser(identity.ID)
	if !ok {
		return models.User{}, fmt.Errorf("account no longer exists")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}
