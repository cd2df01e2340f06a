package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, username string) string {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "hunter42!",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return user.ID
}

func createTestVideo(t *testing.T, store *Storage, ownerID, title string, published bool) string {
	t.Helper()
	video, err := store.CreateVideo(CreateVideoParams{
		OwnerID:   ownerID,
		Title:     title,
		VideoURL:  "videos/" + title + ".mp4",
		Published: published,
	})
	if err != nil {
		t.Fatalf("CreateVideo %s: %v", title, err)
	}
	return video.ID
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
