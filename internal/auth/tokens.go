package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes applied when the issuer config leaves them unset.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrTokenInvalid is returned when a token fails signature or expiry checks.
var ErrTokenInvalid = errors.New("token invalid or expired")

// AccessClaims is the payload carried by short-lived access tokens. Profile
// fields are embedded so request handling never needs a datastore round trip.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// RefreshClaims is the minimal payload carried by long-lived refresh tokens.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// IssuerConfig holds the signing material for both token classes. Access and
// refresh tokens are signed with distinct secrets so one class can never be
// presented in place of the other.
type IssuerConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Issuer signs and parses the platform's access and refresh tokens.
type Issuer struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewIssuer validates the signing configuration. Both secrets are required and
// must differ from each other.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	accessSecret := strings.TrimSpace(cfg.AccessSecret)
	refreshSecret := strings.TrimSpace(cfg.RefreshSecret)
	if accessSecret == "" {
		return nil, errors.New("access token secret is required")
	}
	if refreshSecret == "" {
		return nil, errors.New("refresh token secret is required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Issuer{
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
	}, nil
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}

// AccessTokenTTL reports the configured access token lifetime.
func (i *Issuer) AccessTokenTTL() time.Duration { return i.accessTokenTTL }

// RefreshTokenTTL reports the configured refresh token lifetime.
func (i *Issuer) RefreshTokenTTL() time.Duration { return i.refreshTokenTTL }

// Identity is the subject snapshot embedded into access tokens.
type Identity struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
}

// IssueAccessToken signs a short-lived access token for the identity.
func (i *Issuer) IssueAccessToken(identity Identity) (string, time.Time, error) {
	if identity.ID == "" {
		return "", time.Time{}, errors.New("identity id is required")
	}
	now := i.clock().UTC()
	expiresAt := now.Add(i.accessTokenTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:    identity.Username,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a long-lived refresh token carrying only the
// subject.
func (i *Issuer) IssueRefreshToken(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	now := i.clock().UTC()
	expiresAt := now.Add(i.refreshTokenTTL)
	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}
	// The random jti guarantees consecutive rotations never mint the same
	// token bytes even within one clock second.
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

func newTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ParseAccessToken verifies the access token signature and expiry and returns
// its claims.
func (i *Issuer) ParseAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.accessSecret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// ParseRefreshToken verifies the refresh token signature and expiry and
// returns its claims.
func (i *Issuer) ParseRefreshToken(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.refreshSecret, nil
	})
	if err != nil || !parsed.Valid {
		return RefreshClaims{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return RefreshClaims{}, ErrTokenInvalid
	}
	return claims, nil
}
