package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cliptide/internal/auth"
	"cliptide/internal/models"
	"cliptide/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	resolver := func(ctx context.Context, id string) (auth.Identity, bool) {
		user, ok := store.GetUser(id)
		if !ok {
			return auth.Identity{}, false
		}
		return auth.Identity{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		}, true
	}
	sessions, err := auth.NewManager(issuer, resolver)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewHandler(store, sessions), store
}

const testPassword = "hunter42!"

func createAPIUser(t *testing.T, store *storage.Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func createAPIVideo(t *testing.T, store *storage.Storage, ownerID, title string, published bool) models.Video {
	t.Helper()
	video, err := store.CreateVideo(storage.CreateVideoParams{
		OwnerID:   ownerID,
		Title:     title,
		VideoURL:  "videos/" + title + ".mp4",
		Published: published,
	})
	if err != nil {
		t.Fatalf("CreateVideo(%s): %v", title, err)
	}
	return video
}

// withUser attaches the user to the request context the way the server's
// auth middleware does.
func withUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), user))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	response := http.Response{Header: rec.Header()}
	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
