package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
	"golang.org/x/text/cases"
)

// CreateVideoParams carries the metadata for a new video record. The asset
// host has already received the binary by the time this is called.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoURL        string
	ThumbnailURL    string
	DurationSeconds int
	Published       bool
}

// VideoUpdate mutates only the fields whose pointers are non-nil.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
}

// VideoQuery filters and pages video listings. Page is 1-based.
type VideoQuery struct {
	OwnerID            string
	Search             string
	IncludeUnpublished bool
	Page               int
	PageSize           int
}

// VideoPage is one page of a video listing.
type VideoPage struct {
	Items      []models.Video
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

const (
	defaultVideoPageSize = 20
	maxVideoPageSize     = 100
)

// CreateVideo stores a new video record owned by params.OwnerID.
func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	if strings.TrimSpace(params.VideoURL) == "" {
		return models.Video{}, errors.New("video URL is required")
	}
	if params.DurationSeconds < 0 {
		return models.Video{}, errors.New("duration cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("owner %s: %w", params.OwnerID, ErrNotFound)
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:              newID("vid"),
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoURL:        strings.TrimSpace(params.VideoURL),
		ThumbnailURL:    strings.TrimSpace(params.ThumbnailURL),
		DurationSeconds: params.DurationSeconds,
		Published:       params.Published,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Videos[video.ID] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}
	s.data = updatedData

	return video, nil
}

// GetVideo returns the video with the provided id.
func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// foldString normalizes text for search matching with Unicode case folding.
// A cases.Caser carries state, so each call builds its own.
func foldString(value string) string {
	return cases.Fold().String(value)
}

// ListVideos returns the page of videos matching the query, newest first.
// Search terms match title and description with Unicode case folding, so
// "STRASSE" finds "straße".
func (s *Storage) ListVideos(query VideoQuery) VideoPage {
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultVideoPageSize
	}
	if pageSize > maxVideoPageSize {
		pageSize = maxVideoPageSize
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	needle := foldString(strings.TrimSpace(query.Search))

	s.mu.RLock()
	matched := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if !video.Published && !query.IncludeUnpublished {
			continue
		}
		if query.OwnerID != "" && video.OwnerID != query.OwnerID {
			continue
		}
		if needle != "" {
			haystack := foldString(video.Title + " " + video.Description)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		matched = append(matched, video)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return VideoPage{
		Items:      matched[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// UpdateVideo applies a partial metadata update.
func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, errors.New("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		video.ThumbnailURL = strings.TrimSpace(*update.ThumbnailURL)
	}
	video.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}
	s.data = updatedData

	return video, nil
}

// SetVideoPublished flips the publish flag.
func (s *Storage) SetVideoPublished(id string, published bool) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if video.Published == published {
		return video, nil
	}
	video.Published = published
	video.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}
	s.data = updatedData

	return video, nil
}

// DeleteVideo removes the record plus its comments, likes, playlist entries,
// and watch-history references.
func (s *Storage) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Videos, id)
	for commentID, comment := range updatedData.Comments {
		if comment.VideoID == id {
			delete(updatedData.Comments, commentID)
		}
	}
	for likeID, like := range updatedData.Likes {
		if like.TargetKind == "video" && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}
	for playlistID, playlist := range updatedData.Playlists {
		filtered := playlist.VideoIDs[:0]
		for _, videoID := range playlist.VideoIDs {
			if videoID != id {
				filtered = append(filtered, videoID)
			}
		}
		playlist.VideoIDs = filtered
		updatedData.Playlists[playlistID] = playlist
	}
	for userID, entries := range updatedData.WatchHistory {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.VideoID != id {
				filtered = append(filtered, entry)
			}
		}
		updatedData.WatchHistory[userID] = filtered
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// RecordView bumps the view counter and, when viewerID is non-empty, appends
// a watch-history entry for the viewer.
func (s *Storage) RecordView(videoID, viewerID string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	video.Views++

	updatedData := cloneDataset(s.data)
	updatedData.Videos[videoID] = video
	if viewerID != "" {
		entry := models.WatchEntry{VideoID: videoID, WatchedAt: time.Now().UTC()}
		updatedData.WatchHistory[viewerID] = append(updatedData.WatchHistory[viewerID], entry)
	}
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}
	s.data = updatedData

	return video, nil
}

// WatchHistory returns the viewer's history, most recent first.
func (s *Storage) WatchHistory(userID string) []models.WatchEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]models.WatchEntry{}, s.data.WatchHistory[userID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WatchedAt.After(entries[j].WatchedAt)
	})
	return entries
}
