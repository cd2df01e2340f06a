package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// ErrUnauthenticated is returned for every rotation failure. Callers surface
// it uniformly so a presented token reveals nothing about why it was refused.
var ErrUnauthenticated = errors.New("invalid refresh token")

// TokenPair is the result of a successful login or rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// IdentityResolver maps a token subject back to a live identity. It reports
// false when the identity no longer exists.
type IdentityResolver func(ctx context.Context, id string) (Identity, bool)

// ManagerOption configures a Manager instance.
type ManagerOption func(*Manager)

// WithRefreshTokenStore injects a custom RefreshTokenStore implementation.
func WithRefreshTokenStore(store RefreshTokenStore) ManagerOption {
	return func(m *Manager) {
		if store != nil {
			m.store = store
		}
	}
}

// sessionLockShards bounds the number of distinct subject locks held in
// memory at once.
const sessionLockShards = 64

// Manager coordinates the token lifecycle against a backing store: login
// issues a fresh pair, rotation exchanges a refresh token for a new pair, and
// logout revokes the persisted slot. Operations on the same subject are
// serialized so rotation's read-then-write cannot interleave.
type Manager struct {
	issuer  *Issuer
	store   RefreshTokenStore
	resolve IdentityResolver
	locks   [sessionLockShards]sync.Mutex
}

// NewManager constructs a Manager. The resolver is required; the store
// defaults to an in-memory implementation when none is supplied.
func NewManager(issuer *Issuer, resolve IdentityResolver, opts ...ManagerOption) (*Manager, error) {
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	if resolve == nil {
		return nil, errors.New("identity resolver is required")
	}
	manager := &Manager{issuer: issuer, resolve: resolve}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	if manager.store == nil {
		manager.store = NewMemoryRefreshTokenStore()
	}
	return manager, nil
}

// Issuer exposes the underlying token issuer for access-token verification.
func (m *Manager) Issuer() *Issuer { return m.issuer }

func (m *Manager) subjectLock(subject string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subject))
	return &m.locks[h.Sum32()%sessionLockShards]
}

func (m *Manager) issuePair(ctx context.Context, identity Identity) (TokenPair, error) {
	accessToken, accessExpiresAt, err := m.issuer.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, refreshExpiresAt, err := m.issuer.IssueRefreshToken(identity.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.store.Save(ctx, identity.ID, refreshToken, refreshExpiresAt); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Login issues a token pair for an already-authenticated identity. Persisting
// the new refresh token overwrites any earlier slot, so at most one session
// per identity survives.
func (m *Manager) Login(ctx context.Context, identity Identity) (TokenPair, error) {
	if identity.ID == "" {
		return TokenPair{}, errors.New("identity id is required")
	}
	lock := m.subjectLock(identity.ID)
	lock.Lock()
	defer lock.Unlock()
	return m.issuePair(ctx, identity)
}

// Rotate exchanges a presented refresh token for a fresh pair. The presented
// token must verify against the refresh secret, its subject must still exist,
// and it must match the persisted slot byte for byte. Any failure, including
// a replayed token that was already rotated away, yields ErrUnauthenticated.
func (m *Manager) Rotate(ctx context.Context, presented string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrUnauthenticated
	}
	claims, err := m.issuer.ParseRefreshToken(presented)
	if err != nil {
		return TokenPair{}, ErrUnauthenticated
	}

	lock := m.subjectLock(claims.Subject)
	lock.Lock()
	defer lock.Unlock()

	identity, ok := m.resolve(ctx, claims.Subject)
	if !ok {
		return TokenPair{}, ErrUnauthenticated
	}
	state, err := m.store.Get(ctx, identity.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("read refresh token: %w", err)
	}
	if !state.Active {
		return TokenPair{}, ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(state.Token), []byte(presented)) != 1 {
		return TokenPair{}, ErrUnauthenticated
	}
	return m.issuePair(ctx, identity)
}

// Logout revokes the identity's refresh-token slot. Logging out an identity
// with no active session succeeds.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	lock := m.subjectLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return m.store.Clear(ctx, userID)
}

// InvalidateSessions revokes the identity's refresh-token slot after a
// credential change, forcing a fresh login on the next rotation attempt.
func (m *Manager) InvalidateSessions(ctx context.Context, userID string) error {
	return m.Logout(ctx, userID)
}

// VerifyAccessToken checks an access token statelessly and returns the
// identity snapshot it carries. The store is never consulted.
func (m *Manager) VerifyAccessToken(token string) (Identity, error) {
	claims, err := m.issuer.ParseAccessToken(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		ID:          claims.Subject,
		Username:    claims.Username,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}, nil
}

// Ping verifies the underlying store is reachable when it exposes a ping
// method.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if pinger, ok := m.store.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
