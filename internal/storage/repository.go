package storage

import (
	"context"

	"cliptide/internal/models"
)

// Repository is the persistence contract consumed by the API layer. The JSON
// Storage implements every method; the Postgres repository is being migrated
// method by method.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(login, password string) (models.User, error)
	SetUserPassword(id, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByLogin(login string) (models.User, bool)
	ListUsers() []models.User
	UpdateUser(id string, update UserUpdate) (models.User, error)
	DeleteUser(id string) error

	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ListVideos(query VideoQuery) VideoPage
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	SetVideoPublished(id string, published bool) (models.Video, error)
	DeleteVideo(id string) error
	RecordView(videoID, viewerID string) (models.Video, error)
	WatchHistory(userID string) []models.WatchEntry

	CreateComment(videoID, authorID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListComments(videoID string) []models.Comment
	UpdateComment(id, content string) (models.Comment, error)
	DeleteComment(id string) error

	ToggleLike(userID, targetKind, targetID string) (bool, error)
	CountLikes(targetKind, targetID string) int
	ListLikedVideos(userID string) []models.Video

	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(ownerID string) []models.Playlist
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	DeletePlaylist(id string) error
	AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error)

	ToggleSubscription(subscriberID, channelID string) (bool, error)
	ListSubscribers(channelID string) []models.User
	ListSubscribedChannels(subscriberID string) []models.User
	CountSubscribers(channelID string) int
	IsSubscribed(subscriberID, channelID string) bool

	CreatePost(authorID, content string) (models.Post, error)
	GetPost(id string) (models.Post, bool)
	ListPosts(authorID string) []models.Post
	UpdatePost(id, content string) (models.Post, error)
	DeletePost(id string) error

	CountChannelVideos(channelID string) int
	SumChannelViews(channelID string) int64
	CountChannelLikes(channelID string) int
	CountChannelPosts(channelID string) int
}

// Ping reports datastore health. The JSON store is always reachable once
// loaded.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ Repository = (*Storage)(nil)
