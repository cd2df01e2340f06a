package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cliptide/internal/storage"
)

type likeStateResponse struct {
	TargetKind string `json:"targetKind"`
	TargetID   string `json:"targetId"`
	Liked      bool   `json:"liked"`
	Likes      int    `json:"likes"`
}

type subscriptionStateResponse struct {
	ChannelID   string `json:"channelId"`
	Subscribed  bool   `json:"subscribed"`
	Subscribers int    `json:"subscribers"`
}

var likeTargetsByPath = map[string]string{
	"videos":   storage.LikeTargetVideo,
	"comments": storage.LikeTargetComment,
	"posts":    storage.LikeTargetPost,
}

// Likes serves like toggles for videos, comments, and posts, plus the
// caller's liked-video listing at GET /likes/videos.
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/likes/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("like target missing"))
		return
	}
	targetKind, ok := likeTargetsByPath[parts[0]]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown like target %s", parts[0]))
		return
	}

	if len(parts) == 1 {
		if parts[0] != "videos" || r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, h.newVideoResponses(h.Store.ListLikedVideos(user.ID)))
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	targetID := parts[1]
	liked, err := h.Store.ToggleLike(user.ID, targetKind, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, likeStateResponse{
		TargetKind: targetKind,
		TargetID:   targetID,
		Liked:      liked,
		Likes:      h.Store.CountLikes(targetKind, targetID),
	})
}

// Subscriptions toggles channel subscriptions and lists a channel's
// subscribers.
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel id missing"))
		return
	}
	channelID := parts[0]

	if len(parts) > 1 && parts[1] == "subscribers" {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		if _, ok := h.Store.GetUser(channelID); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
			return
		}
		writeJSON(w, http.StatusOK, newUserResponses(h.Store.ListSubscribers(channelID)))
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	subscribed, err := h.Store.ToggleSubscription(user.ID, channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionStateResponse{
		ChannelID:   channelID,
		Subscribed:  subscribed,
		Subscribers: h.Store.CountSubscribers(channelID),
	})
}

type createPostRequest struct {
	Content string `json:"content"`
}

// Posts serves the channel post collection.
func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		authorID := strings.TrimSpace(r.URL.Query().Get("author"))
		writeJSON(w, http.StatusOK, h.newPostResponses(h.Store.ListPosts(authorID)))
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createPostRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		post, err := h.Store.CreatePost(user.ID, req.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.newPostResponse(post))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// PostByID serves a single channel post. Only the author may modify it.
func (h *Handler) PostByID(w http.ResponseWriter, r *http.Request) {
	postID := strings.TrimPrefix(r.URL.Path, "/api/v1/posts/")
	if postID == "" || strings.Contains(postID, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("post id missing"))
		return
	}

	if r.Method == http.MethodGet {
		post, ok := h.Store.GetPost(postID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("post %s not found", postID))
			return
		}
		writeJSON(w, http.StatusOK, h.newPostResponse(post))
		return
	}

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	post, exists := h.Store.GetPost(postID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("post %s not found", postID))
		return
	}
	if post.AuthorID != user.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req createPostRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdatePost(postID, req.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, h.newPostResponse(updated))
	case http.MethodDelete:
		if err := h.Store.DeletePost(postID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, PATCH, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
