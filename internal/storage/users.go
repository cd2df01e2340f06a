package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

// CreateUserParams carries the inputs for registering a new account.
type CreateUserParams struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	AvatarURL   string
	CoverURL    string
}

// UserUpdate mutates only the fields whose pointers are non-nil.
type UserUpdate struct {
	Email       *string
	DisplayName *string
	AvatarURL   *string
	CoverURL    *string
}

// CreateUser registers an account, hashing the password before anything is
// persisted. Usernames are stored lowercase; username and email must both be
// unique.
func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	email := strings.ToLower(strings.TrimSpace(params.Email))
	displayName := strings.TrimSpace(params.DisplayName)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, errors.New("a valid email is required")
	}
	if displayName == "" {
		displayName = username
	}
	if len(params.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}

	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	for _, existing := range s.data.Users {
		if existing.Username == username || strings.EqualFold(existing.Email, email) {
			return models.User{}, fmt.Errorf("user with that username or email %w", ErrConflict)
		}
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           newID("usr"),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		AvatarURL:    strings.TrimSpace(params.AvatarURL),
		CoverURL:     strings.TrimSpace(params.CoverURL),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Users[user.ID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData

	return user, nil
}

// GetUser returns the user with the provided id.
func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByLogin matches the identifier against usernames first, then email
// addresses. Matching is case-insensitive.
func (s *Storage) FindUserByLogin(login string) (models.User, bool) {
	normalized := strings.ToLower(strings.TrimSpace(login))
	if normalized == "" {
		return models.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if user.Username == normalized {
			return user, true
		}
	}
	for _, user := range s.data.Users {
		if strings.EqualFold(user.Email, normalized) {
			return user, true
		}
	}
	return models.User{}, false
}

// ListUsers returns all accounts ordered by creation time.
func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

// UpdateUser applies a partial profile update. The credential hash is never
// touched here; password changes go through SetUserPassword.
func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return models.User{}, errors.New("a valid email is required")
		}
		for otherID, other := range s.data.Users {
			if otherID != id && strings.EqualFold(other.Email, email) {
				return models.User{}, fmt.Errorf("email %w", ErrConflict)
			}
		}
		user.Email = email
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return models.User{}, errors.New("display name cannot be empty")
		}
		user.DisplayName = name
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.CoverURL != nil {
		user.CoverURL = strings.TrimSpace(*update.CoverURL)
	}
	user.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData

	return user, nil
}

// DeleteUser removes the account along with its videos, comments, likes,
// playlists, subscriptions, posts, and watch history.
func (s *Storage) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Users, id)
	for videoID, video := range updatedData.Videos {
		if video.OwnerID == id {
			delete(updatedData.Videos, videoID)
		}
	}
	for commentID, comment := range updatedData.Comments {
		if comment.AuthorID == id {
			delete(updatedData.Comments, commentID)
		}
	}
	for likeID, like := range updatedData.Likes {
		if like.UserID == id {
			delete(updatedData.Likes, likeID)
		}
	}
	for playlistID, playlist := range updatedData.Playlists {
		if playlist.OwnerID == id {
			delete(updatedData.Playlists, playlistID)
		}
	}
	for subID, sub := range updatedData.Subscriptions {
		if sub.SubscriberID == id || sub.ChannelID == id {
			delete(updatedData.Subscriptions, subID)
		}
	}
	for postID, post := range updatedData.Posts {
		if post.AuthorID == id {
			delete(updatedData.Posts, postID)
		}
	}
	delete(updatedData.WatchHistory, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
