package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

// PlaylistUpdate mutates only the fields whose pointers are non-nil.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// CreatePlaylist stores a new, empty playlist for the owner.
func (s *Storage) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, errors.New("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          newID("pls"),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Playlists[playlist.ID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}
	s.data = updatedData

	return playlist, nil
}

// GetPlaylist returns the playlist with the provided id.
func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	if ok {
		playlist.VideoIDs = append([]string{}, playlist.VideoIDs...)
	}
	return playlist, ok
}

// ListPlaylists returns the owner's playlists ordered by creation time.
func (s *Storage) ListPlaylists(ownerID string) []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if ownerID != "" && playlist.OwnerID != ownerID {
			continue
		}
		playlist.VideoIDs = append([]string{}, playlist.VideoIDs...)
		playlists = append(playlists, playlist)
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].CreatedAt.Before(playlists[j].CreatedAt)
	})
	return playlists
}

// UpdatePlaylist applies a partial update to name and description.
func (s *Storage) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[id]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, errors.New("name cannot be empty")
		}
		playlist.Name = name
	}
	if update.Description != nil {
		playlist.Description = strings.TrimSpace(*update.Description)
	}
	playlist.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}
	s.data = updatedData

	return playlist, nil
}

// DeletePlaylist removes the playlist.
func (s *Storage) DeletePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Playlists[id]; !ok {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Playlists, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// AddPlaylistVideo appends the video unless it is already present.
func (s *Storage) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return playlist, nil
		}
	}
	playlist.VideoIDs = append(append([]string{}, playlist.VideoIDs...), videoID)
	playlist.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}
	s.data = updatedData

	return playlist, nil
}

// RemovePlaylistVideo drops the video from the playlist when present.
func (s *Storage) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	filtered := make([]string, 0, len(playlist.VideoIDs))
	for _, existing := range playlist.VideoIDs {
		if existing != videoID {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == len(playlist.VideoIDs) {
		return playlist, nil
	}
	playlist.VideoIDs = filtered
	playlist.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}
	s.data = updatedData

	return playlist, nil
}
