package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cliptide/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000
)

type dataset struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Comments      map[string]models.Comment      `json:"comments"`
	Likes         map[string]models.Like         `json:"likes"`
	Playlists     map[string]models.Playlist     `json:"playlists"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
	Posts         map[string]models.Post         `json:"posts"`
	WatchHistory  map[string][]models.WatchEntry `json:"watchHistory"`
}

// Storage is the JSON-file-backed repository implementation. All mutations
// copy the dataset, persist the copy, then swap it in under the write lock so
// readers never observe a partially written state.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Videos:        make(map[string]models.Video),
		Comments:      make(map[string]models.Comment),
		Likes:         make(map[string]models.Like),
		Playlists:     make(map[string]models.Playlist),
		Subscriptions: make(map[string]models.Subscription),
		Posts:         make(map[string]models.Post),
		WatchHistory:  make(map[string][]models.WatchEntry),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]models.Subscription)
	}
	if s.data.Posts == nil {
		s.data.Posts = make(map[string]models.Post)
	}
	if s.data.WatchHistory == nil {
		s.data.WatchHistory = make(map[string][]models.WatchEntry)
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = errors.New("unknown user")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
)

// NewStorage loads (or creates) the JSON datastore at path.
func NewStorage(path string) (*Storage, error) {
	s := &Storage{filePath: path, data: newDataset()}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read datastore: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse datastore: %w", err)
	}
	s.mu.Lock()
	s.ensureDatasetInitializedLocked()
	s.mu.Unlock()
	return s, nil
}

func cloneDataset(src dataset) dataset {
	dst := newDataset()
	for id, user := range src.Users {
		dst.Users[id] = user
	}
	for id, video := range src.Videos {
		dst.Videos[id] = video
	}
	for id, comment := range src.Comments {
		dst.Comments[id] = comment
	}
	for id, like := range src.Likes {
		dst.Likes[id] = like
	}
	for id, playlist := range src.Playlists {
		playlist.VideoIDs = append([]string{}, playlist.VideoIDs...)
		dst.Playlists[id] = playlist
	}
	for id, sub := range src.Subscriptions {
		dst.Subscriptions[id] = sub
	}
	for id, post := range src.Posts {
		dst.Posts[id] = post
	}
	for userID, entries := range src.WatchHistory {
		dst.WatchHistory[userID] = append([]models.WatchEntry{}, entries...)
	}
	return dst
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		return s.persistOverride(data)
	}
	if s.filePath == "" {
		return nil
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datastore directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cliptide-*.json")
	if err != nil {
		return fmt.Errorf("create datastore temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close datastore temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

func newID(prefix string) string {
	var buffer [12]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(buffer[:]))
}
