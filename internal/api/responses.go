package api

import (
	"strings"
	"time"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CoverURL:    user.CoverURL,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func newUserResponses(users []models.User) []userResponse {
	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, newUserResponse(user))
	}
	return responses
}

type authResponse struct {
	Identity     userResponse `json:"identity"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type videoResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	VideoURL        string    `json:"videoUrl"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
	Views           int64     `json:"views"`
	Likes           int       `json:"likes"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// assetURL rewrites stored asset keys through the configured asset host.
// Absolute URLs and unconfigured hosts pass through untouched.
func (h *Handler) assetURL(stored string) string {
	if stored == "" || !h.Assets.Enabled() {
		return stored
	}
	if strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://") {
		return stored
	}
	return h.Assets.URL(stored)
}

func (h *Handler) newVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		ID:              video.ID,
		OwnerID:         video.OwnerID,
		Title:           video.Title,
		Description:     video.Description,
		VideoURL:        h.assetURL(video.VideoURL),
		ThumbnailURL:    h.assetURL(video.ThumbnailURL),
		DurationSeconds: video.DurationSeconds,
		Views:           video.Views,
		Likes:           h.Store.CountLikes(storage.LikeTargetVideo, video.ID),
		Published:       video.Published,
		CreatedAt:       video.CreatedAt,
		UpdatedAt:       video.UpdatedAt,
	}
}

func (h *Handler) newVideoResponses(videos []models.Video) []videoResponse {
	responses := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		responses = append(responses, h.newVideoResponse(video))
	}
	return responses
}

type videoPageResponse struct {
	Items      []videoResponse `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
}

func (h *Handler) newVideoPageResponse(page storage.VideoPage) videoPageResponse {
	return videoPageResponse{
		Items:      h.newVideoResponses(page.Items),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
}

type commentResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) newCommentResponse(comment models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		VideoID:   comment.VideoID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		Likes:     h.Store.CountLikes(storage.LikeTargetComment, comment.ID),
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func (h *Handler) newCommentResponses(comments []models.Comment) []commentResponse {
	responses := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, h.newCommentResponse(comment))
	}
	return responses
}

type playlistResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newPlaylistResponse(playlist models.Playlist) playlistResponse {
	videoIDs := playlist.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}
	return playlistResponse{
		ID:          playlist.ID,
		OwnerID:     playlist.OwnerID,
		Name:        playlist.Name,
		Description: playlist.Description,
		VideoIDs:    videoIDs,
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}
}

func newPlaylistResponses(playlists []models.Playlist) []playlistResponse {
	responses := make([]playlistResponse, 0, len(playlists))
	for _, playlist := range playlists {
		responses = append(responses, newPlaylistResponse(playlist))
	}
	return responses
}

type postResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) newPostResponse(post models.Post) postResponse {
	return postResponse{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		Likes:     h.Store.CountLikes(storage.LikeTargetPost, post.ID),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
}

func (h *Handler) newPostResponses(posts []models.Post) []postResponse {
	responses := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		responses = append(responses, h.newPostResponse(post))
	}
	return responses
}
