package api

import (
	"cliptide/internal/auth"
	"cliptide/internal/storage"
)

// Handler carries the dependencies shared by every API endpoint.
type Handler struct {
	Store               storage.Repository
	Sessions            *auth.Manager
	Assets              *storage.AssetHost
	SessionCookiePolicy SessionCookiePolicy
}

// NewHandler constructs a Handler over the provided repository and session
// manager.
func NewHandler(store storage.Repository, sessions *auth.Manager) *Handler {
	return &Handler{Store: store, Sessions: sessions}
}
