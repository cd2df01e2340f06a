package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRefreshTokenStore keeps refresh-token slots in memory. It is safe for
// concurrent use and primarily intended for development or single-instance
// deployments.
type MemoryRefreshTokenStore struct {
	mu    sync.RWMutex
	slots map[string]SessionState
}

// NewMemoryRefreshTokenStore constructs an in-memory store implementation.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{slots: make(map[string]SessionState)}
}

// Save overwrites the identity's slot with the provided token.
func (s *MemoryRefreshTokenStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[userID] = SessionState{Active: true, Token: token, ExpiresAt: expiresAt.UTC()}
	s.mu.Unlock()
	return nil
}

// Get returns the identity's slot. A missing slot comes back with Active
// false and no error.
func (s *MemoryRefreshTokenStore) Get(ctx context.Context, userID string) (SessionState, error) {
	if err := ctx.Err(); err != nil {
		return SessionState{}, err
	}
	s.mu.RLock()
	state := s.slots[userID]
	s.mu.RUnlock()
	return state, nil
}

// Clear removes the identity's slot. Clearing an absent slot is a no-op.
func (s *MemoryRefreshTokenStore) Clear(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.slots, userID)
	s.mu.Unlock()
	return nil
}

// Ping always reports success for the in-memory store.
func (s *MemoryRefreshTokenStore) Ping(context.Context) error {
	return nil
}
