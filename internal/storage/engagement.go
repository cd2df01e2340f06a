package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

// Like target kinds accepted by ToggleLike.
const (
	LikeTargetVideo   = "video"
	LikeTargetComment = "comment"
	LikeTargetPost    = "post"
)

func (s *Storage) likeTargetExistsLocked(kind, targetID string) bool {
	switch kind {
	case LikeTargetVideo:
		_, ok := s.data.Videos[targetID]
		return ok
	case LikeTargetComment:
		_, ok := s.data.Comments[targetID]
		return ok
	case LikeTargetPost:
		_, ok := s.data.Posts[targetID]
		return ok
	default:
		return false
	}
}

// ToggleLike flips the user's like on the target and reports whether the
// target is liked after the call.
func (s *Storage) ToggleLike(userID, targetKind, targetID string) (bool, error) {
	targetKind = strings.ToLower(strings.TrimSpace(targetKind))
	switch targetKind {
	case LikeTargetVideo, LikeTargetComment, LikeTargetPost:
	default:
		return false, fmt.Errorf("unsupported like target %q", targetKind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Users[userID]; !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if !s.likeTargetExistsLocked(targetKind, targetID) {
		return false, fmt.Errorf("%s %s: %w", targetKind, targetID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	liked := true
	for likeID, like := range updatedData.Likes {
		if like.UserID == userID && like.TargetKind == targetKind && like.TargetID == targetID {
			delete(updatedData.Likes, likeID)
			liked = false
			break
		}
	}
	if liked {
		like := models.Like{
			ID:         newID("lik"),
			UserID:     userID,
			TargetKind: targetKind,
			TargetID:   targetID,
			CreatedAt:  time.Now().UTC(),
		}
		updatedData.Likes[like.ID] = like
	}

	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}
	s.data = updatedData
	return liked, nil
}

// CountLikes returns the number of likes on the target.
func (s *Storage) CountLikes(targetKind, targetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, like := range s.data.Likes {
		if like.TargetKind == targetKind && like.TargetID == targetID {
			count++
		}
	}
	return count
}

// ListLikedVideos returns the videos the user has liked, newest like first.
func (s *Storage) ListLikedVideos(userID string) []models.Video {
	s.mu.RLock()
	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.UserID == userID && like.TargetKind == LikeTargetVideo {
			likes = append(likes, like)
		}
	}
	videosByID := make(map[string]models.Video, len(likes))
	for _, like := range likes {
		if video, ok := s.data.Videos[like.TargetID]; ok {
			videosByID[like.TargetID] = video
		}
	}
	s.mu.RUnlock()

	sort.Slice(likes, func(i, j int) bool {
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})
	videos := make([]models.Video, 0, len(likes))
	for _, like := range likes {
		if video, ok := videosByID[like.TargetID]; ok {
			videos = append(videos, video)
		}
	}
	return videos
}

// ToggleSubscription flips the subscriber's subscription to the channel and
// reports whether they are subscribed after the call. Subscribing to your own
// channel is rejected.
func (s *Storage) ToggleSubscription(subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, errors.New("cannot subscribe to your own channel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Users[subscriberID]; !ok {
		return false, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}
	if _, ok := s.data.Users[channelID]; !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	subscribed := true
	for subID, sub := range updatedData.Subscriptions {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			delete(updatedData.Subscriptions, subID)
			subscribed = false
			break
		}
	}
	if subscribed {
		sub := models.Subscription{
			ID:           newID("sub"),
			SubscriberID: subscriberID,
			ChannelID:    channelID,
			CreatedAt:    time.Now().UTC(),
		}
		updatedData.Subscriptions[sub.ID] = sub
	}

	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}
	s.data = updatedData
	return subscribed, nil
}

// ListSubscribers returns the users subscribed to the channel.
func (s *Storage) ListSubscribers(channelID string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0)
	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID != channelID {
			continue
		}
		if user, ok := s.data.Users[sub.SubscriberID]; ok {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// ListSubscribedChannels returns the channels the user subscribes to.
func (s *Storage) ListSubscribedChannels(subscriberID string) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channels := make([]models.User, 0)
	for _, sub := range s.data.Subscriptions {
		if sub.SubscriberID != subscriberID {
			continue
		}
		if channel, ok := s.data.Users[sub.ChannelID]; ok {
			channels = append(channels, channel)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Username < channels[j].Username })
	return channels
}

// CountSubscribers returns the channel's subscriber count.
func (s *Storage) CountSubscribers(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sub := range s.data.Subscriptions {
		if sub.ChannelID == channelID {
			count++
		}
	}
	return count
}

// IsSubscribed reports whether subscriberID currently follows channelID.
func (s *Storage) IsSubscribed(subscriberID, channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.data.Subscriptions {
		if sub.SubscriberID == subscriberID && sub.ChannelID == channelID {
			return true
		}
	}
	return false
}

// CreatePost stores a short text update on the author's channel.
func (s *Storage) CreatePost(authorID, content string) (models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Post{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDatasetInitializedLocked()

	if _, ok := s.data.Users[authorID]; !ok {
		return models.Post{}, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}

	now := time.Now().UTC()
	post := models.Post{
		ID:        newID("pst"),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updatedData := cloneDataset(s.data)
	updatedData.Posts[post.ID] = post
	if err := s.persistDataset(updatedData); err != nil {
		return models.Post{}, err
	}
	s.data = updatedData

	return post, nil
}

// GetPost returns the post with the provided id.
func (s *Storage) GetPost(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.data.Posts[id]
	return post, ok
}

// ListPosts returns a channel's posts, newest first. An empty authorID lists
// every post.
func (s *Storage) ListPosts(authorID string) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]models.Post, 0)
	for _, post := range s.data.Posts {
		if authorID != "" && post.AuthorID != authorID {
			continue
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}

// UpdatePost replaces the post body.
func (s *Storage) UpdatePost(id, content string) (models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Post{}, errors.New("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.data.Posts[id]
	if !ok {
		return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	post.Content = content
	post.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Posts[id] = post
	if err := s.persistDataset(updatedData); err != nil {
		return models.Post{}, err
	}
	s.data = updatedData

	return post, nil
}

// DeletePost removes the post and any likes targeting it.
func (s *Storage) DeletePost(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Posts, id)
	for likeID, like := range updatedData.Likes {
		if like.TargetKind == LikeTargetPost && like.TargetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}
