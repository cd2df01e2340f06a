package auth

import (
	"context"
	"time"
)

// SessionState is the persisted refresh-token slot for a single identity.
// Active distinguishes a logged-out identity from one that has never logged
// in; both reject rotation the same way.
type SessionState struct {
	Active    bool
	Token     string
	ExpiresAt time.Time
}

// RefreshTokenStore persists at most one refresh token per identity. Save
// overwrites any existing slot, which is what revokes the previous session.
type RefreshTokenStore interface {
	Save(ctx context.Context, userID, token string, expiresAt time.Time) error
	Get(ctx context.Context, userID string) (SessionState, error)
	Clear(ctx context.Context, userID string) error
}
