package models

import "time"

// User is an account on the platform. PasswordHash and RefreshToken never
// leave the storage and auth packages.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CoverURL     string    `json:"coverUrl,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Video is the metadata record for an uploaded clip. The binary asset lives
// on the external asset host; only URLs are stored here.
type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	VideoURL        string    `json:"videoUrl"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	Views           int64     `json:"views"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Like records a single user's like of exactly one target. TargetKind is one
// of "video", "comment", or "post".
type Like struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	TargetKind string    `json:"targetKind"`
	TargetID   string    `json:"targetId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subscription links a subscriber to the channel (user) they follow.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Post is a short text update on a user's channel page.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WatchEntry records a view of a video by a user, newest first in listings.
type WatchEntry struct {
	VideoID   string    `json:"videoId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// ChannelStats aggregates the dashboard numbers for a single channel.
type ChannelStats struct {
	ChannelID        string `json:"channelId"`
	TotalVideos      int    `json:"totalVideos"`
	TotalViews       int64  `json:"totalViews"`
	TotalSubscribers int    `json:"totalSubscribers"`
	TotalLikes       int    `json:"totalLikes"`
	TotalPosts       int    `json:"totalPosts"`
}
