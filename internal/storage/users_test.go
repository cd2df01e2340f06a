package storage

import (
	"errors"
	"testing"
)

func TestCreateAndListUsers(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser(CreateUserParams{
		Username:    "Alice",
		Email:       "Alice@Example.com",
		DisplayName: "Alice Cooper",
		Password:    "hunter42!",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected user ID to be set")
	}
	if user.Username != "alice" {
		t.Fatalf("expected username to be lowercased, got %s", user.Username)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected email to be normalized, got %s", user.Email)
	}

	users := store.ListUsers()
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].DisplayName != "Alice Cooper" {
		t.Fatalf("unexpected display name %s", users[0].DisplayName)
	}
}

func TestCreateUserDefaultsDisplayName(t *testing.T) {
	store := newTestStore(t)

	user, err := store.CreateUser(CreateUserParams{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "hunter42!",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.DisplayName != "bob" {
		t.Fatalf("expected display name to default to username, got %s", user.DisplayName)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	createTestUser(t, store, "alice")

	if _, err := store.CreateUser(CreateUserParams{
		Username: "alice",
		Email:    "other@example.com",
		Password: "hunter42!",
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
	if _, err := store.CreateUser(CreateUserParams{
		Username: "alice2",
		Email:    "ALICE@example.com",
		Password: "hunter42!",
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestCreateUserValidatesInput(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateUser(CreateUserParams{Email: "a@example.com", Password: "hunter42!"}); err == nil {
		t.Fatal("expected error for missing username")
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "a", Email: "not-an-email", Password: "hunter42!"}); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := store.CreateUser(CreateUserParams{Username: "a", Email: "a@example.com", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestUpdateUser(t *testing.T) {
	store := newTestStore(t)
	id := createTestUser(t, store, "alice")

	newDisplay := "Alice Cooper"
	newEmail := "Alice.Cooper@Example.com"
	updated, err := store.UpdateUser(id, UserUpdate{DisplayName: &newDisplay, Email: &newEmail})
	if err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if updated.DisplayName != newDisplay {
		t.Fatalf("expected display name %q, got %q", newDisplay, updated.DisplayName)
	}
	if updated.Email != "alice.cooper@example.com" {
		t.Fatalf("expected email normalized, got %s", updated.Email)
	}

	empty := ""
	if _, err := store.UpdateUser(id, UserUpdate{DisplayName: &empty}); err == nil {
		t.Fatal("expected error for empty display name")
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	store := newTestStore(t)
	id := createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	taken := "bob@example.com"
	if _, err := store.UpdateUser(id, UserUpdate{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateUserPersistFailureLeavesDataUntouched(t *testing.T) {
	store := newTestStore(t)
	id := createTestUser(t, store, "alice")
	original, _ := store.GetUser(id)

	newEmail := "changed@example.com"
	store.persistOverride = func(dataset) error {
		return errors.New("persist failed")
	}

	if _, err := store.UpdateUser(id, UserUpdate{Email: &newEmail}); err == nil {
		t.Fatal("expected UpdateUser error when persist fails")
	}

	store.persistOverride = nil

	current, ok := store.GetUser(id)
	if !ok {
		t.Fatalf("expected user %s to remain", id)
	}
	if current.Email != original.Email {
		t.Fatalf("expected email %s, got %s", original.Email, current.Email)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store := newTestStore(t)
	aliceID := createTestUser(t, store, "alice")
	bobID := createTestUser(t, store, "bob")

	videoID := createTestVideo(t, store, aliceID, "clip", true)
	comment, err := store.CreateComment(videoID, aliceID, "first")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if _, err := store.ToggleLike(aliceID, LikeTargetVideo, videoID); err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	playlist, err := store.CreatePlaylist(aliceID, "favorites", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if _, err := store.ToggleSubscription(bobID, aliceID); err != nil {
		t.Fatalf("ToggleSubscription: %v", err)
	}
	post, err := store.CreatePost(aliceID, "hello")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	if err := store.DeleteUser(aliceID); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	if _, ok := store.GetUser(aliceID); ok {
		t.Fatal("expected user to be removed")
	}
	if _, ok := store.GetVideo(videoID); ok {
		t.Fatal("expected owned video to be removed")
	}
	if _, ok := store.GetComment(comment.ID); ok {
		t.Fatal("expected authored comment to be removed")
	}
	if _, ok := store.GetPlaylist(playlist.ID); ok {
		t.Fatal("expected playlist to be removed")
	}
	if _, ok := store.GetPost(post.ID); ok {
		t.Fatal("expected post to be removed")
	}
	if store.CountSubscribers(aliceID) != 0 {
		t.Fatal("expected subscriptions to be removed")
	}

	if err := store.DeleteUser(aliceID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}
