package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRefreshTokenStore persists refresh-token slots to a Postgres table,
// allowing multiple API replicas to share session state.
type PostgresRefreshTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenStore opens a Postgres-backed store using the
// provided DSN.
func NewPostgresRefreshTokenStore(dsn string) (*PostgresRefreshTokenStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres session dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres session config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres session pool: %w", err)
	}
	return &PostgresRefreshTokenStore{pool: pool}, nil
}

// Close releases the Postgres connection pool resources.
func (s *PostgresRefreshTokenStore) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Save stores or overwrites the identity's refresh-token slot.
func (s *PostgresRefreshTokenStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if s.pool == nil {
		return fmt.Errorf("postgres session pool not configured")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO refresh_tokens (user_id, token, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
`, userID, token, expiresAt.UTC())
	return err
}

// Get fetches the identity's refresh-token slot. A missing row comes back
// with Active false and no error.
func (s *PostgresRefreshTokenStore) Get(ctx context.Context, userID string) (SessionState, error) {
	if s.pool == nil {
		return SessionState{}, fmt.Errorf("postgres session pool not configured")
	}
	row := s.pool.QueryRow(ctx, `
SELECT token, expires_at
FROM refresh_tokens
WHERE user_id = $1
`, userID)
	var state SessionState
	if err := row.Scan(&state.Token, &state.ExpiresAt); err != nil {
		if isNoRows(err) {
			return SessionState{}, nil
		}
		return SessionState{}, err
	}
	state.Active = true
	return state, nil
}

// Clear removes the identity's slot. Clearing an absent slot is a no-op.
func (s *PostgresRefreshTokenStore) Clear(ctx context.Context, userID string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres session pool not configured")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// PurgeExpired deletes slots whose refresh tokens have lapsed.
func (s *PostgresRefreshTokenStore) PurgeExpired(ctx context.Context, now time.Time) error {
	if s.pool == nil {
		return fmt.Errorf("postgres session pool not configured")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	return err
}

// Ping verifies the pool is reachable.
func (s *PostgresRefreshTokenStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres session pool not configured")
	}
	return s.pool.Ping(ctx)
}

func isNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}
