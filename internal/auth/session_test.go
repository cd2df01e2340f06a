package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testIssuer(t *testing.T, accessTTL, refreshTTL time.Duration) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(IssuerConfig{
		AccessSecret:    "access-secret-for-tests",
		RefreshSecret:   "refresh-secret-for-tests",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	})
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}
	return issuer
}

func staticResolver(identities map[string]Identity) IdentityResolver {
	return func(ctx context.Context, id string) (Identity, bool) {
		identity, ok := identities[id]
		return identity, ok
	}
}

func testManager(t *testing.T, identities map[string]Identity, opts ...ManagerOption) *Manager {
	t.Helper()
	manager, err := NewManager(testIssuer(t, time.Minute, time.Hour), staticResolver(identities), opts...)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return manager
}

func TestIssuerRejectsBadSecrets(t *testing.T) {
	if _, err := NewIssuer(IssuerConfig{AccessSecret: "", RefreshSecret: "r"}); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewIssuer(IssuerConfig{AccessSecret: "a", RefreshSecret: ""}); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewIssuer(IssuerConfig{AccessSecret: "same", RefreshSecret: "same"}); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestAccessTokenCarriesIdentity(t *testing.T) {
	issuer := testIssuer(t, time.Minute, time.Hour)
	identity := Identity{ID: "usr_1", Username: "ana", Email: "ana@example.com", DisplayName: "Ana"}
	token, expiresAt, err := issuer.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected expiry in the future")
	}
	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.Subject != identity.ID || claims.Username != identity.Username || claims.Email != identity.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	issuer := testIssuer(t, time.Minute, time.Hour)
	access, _, err := issuer.IssueAccessToken(Identity{ID: "usr_1"})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	refresh, _, err := issuer.IssueRefreshToken("usr_1")
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}
	if _, err := issuer.ParseRefreshToken(access); err == nil {
		t.Fatal("expected access token to fail refresh verification")
	}
	if _, err := issuer.ParseAccessToken(refresh); err == nil {
		t.Fatal("expected refresh token to fail access verification")
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	issuer := testIssuer(t, 10*time.Millisecond, time.Hour)
	token, _, err := issuer.IssueAccessToken(Identity{ID: "usr_1"})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := issuer.ParseAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRotationIssuesFreshPair(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	first, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := manager.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected rotation to mint a new refresh token")
	}
	if second.AccessToken == "" {
		t.Fatal("expected rotation to mint a new access token")
	}
}

func TestReplayedRefreshTokenRejected(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	first, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := manager.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if _, err := manager.Rotate(ctx, first.RefreshToken); err != ErrUnauthenticated {
		t.Fatalf("expected replayed token to be rejected, got %v", err)
	}
	if _, err := manager.Rotate(ctx, second.RefreshToken); err != nil {
		t.Fatalf("expected latest token to keep rotating, got %v", err)
	}
}

func TestSecondLoginRevokesFirstSession(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	first, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := manager.Login(ctx, identity); err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}
	if _, err := manager.Rotate(ctx, first.RefreshToken); err != ErrUnauthenticated {
		t.Fatalf("expected first session's token to be revoked, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	pair, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := manager.Logout(ctx, identity.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if err := manager.Logout(ctx, identity.ID); err != nil {
		t.Fatalf("repeated Logout returned error: %v", err)
	}
	if err := manager.Logout(ctx, "usr_never_logged_in"); err != nil {
		t.Fatalf("Logout for unknown identity returned error: %v", err)
	}
	if _, err := manager.Rotate(ctx, pair.RefreshToken); err != ErrUnauthenticated {
		t.Fatalf("expected rotation to fail after logout, got %v", err)
	}
}

func TestAccessTokenSurvivesLogout(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	pair, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := manager.Logout(ctx, identity.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	verified, err := manager.VerifyAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("expected access token to verify without store state: %v", err)
	}
	if verified.ID != identity.ID {
		t.Fatalf("expected identity %s, got %s", identity.ID, verified.ID)
	}
}

func TestRotationRejectsRemovedIdentity(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_1", Username: "ana"}
	identities := map[string]Identity{identity.ID: identity}
	manager := testManager(t, identities)

	pair, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	delete(identities, identity.ID)
	if _, err := manager.Rotate(ctx, pair.RefreshToken); err != ErrUnauthenticated {
		t.Fatalf("expected rotation to fail for removed identity, got %v", err)
	}
}

func TestRotationRejectsGarbageTokens(t *testing.T) {
	ctx := context.Background()
	manager := testManager(t, map[string]Identity{})
	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := manager.Rotate(ctx, token); err != ErrUnauthenticated {
			t.Fatalf("expected %q to be rejected, got %v", token, err)
		}
	}
}

func TestSessionStatePersistsAcrossManagers(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_persist", Username: "ana"}
	identities := map[string]Identity{identity.ID: identity}
	store := NewMemoryRefreshTokenStore()

	first := testManager(t, identities, WithRefreshTokenStore(store))
	pair, err := first.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	second := testManager(t, identities, WithRefreshTokenStore(store))
	if _, err := second.Rotate(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("expected token to rotate after manager restart: %v", err)
	}
}

func TestConcurrentRotationHasOneWinner(t *testing.T) {
	ctx := context.Background()
	identity := Identity{ID: "usr_race", Username: "ana"}
	manager := testManager(t, map[string]Identity{identity.ID: identity})

	pair, err := manager.Login(ctx, identity)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := manager.Rotate(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		switch err {
		case nil:
			winners++
		case ErrUnauthenticated:
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one rotation to win, got %d", winners)
	}
}
