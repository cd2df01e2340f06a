package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

// CreateComment attaches a comment to a video.
func (s *Storage) CreateComment(videoID, authorID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := s.data.Users[authorID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        newID("cmt"),
		VideoID:   videoID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Comments[comment.ID] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}
	s.data = updatedData

	return comment, nil
}

// GetComment returns the comment with the provided id.
func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListComments returns a video's comments, newest first.
func (s *Storage) ListComments(videoID string) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments
}

// UpdateComment replaces the comment body.
func (s *Storage) UpdateComment(id, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.data.Comments[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	comment.Content = content
	comment.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}
	s.data = updatedData

	return comment, nil
}

// DeleteComment removes the comment and any likes targeting it.
func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Comments, id)
	for likeID, like := range updatedData.Likes {
		if like.TargetKind == "comment" && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
