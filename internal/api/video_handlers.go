package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cliptide/internal/observability/metrics"
	"cliptide/internal/storage"
)

type createVideoRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	VideoURL        string `json:"videoUrl"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	DurationSeconds int    `json:"durationSeconds"`
	Published       bool   `json:"published"`
}

type updateVideoRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type publishVideoRequest struct {
	Published bool `json:"published"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

func parseVideoQuery(values url.Values) storage.VideoQuery {
	query := storage.VideoQuery{
		OwnerID: strings.TrimSpace(values.Get("owner")),
		Search:  strings.TrimSpace(values.Get("search")),
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(values.Get("pageSize")); err == nil {
		query.PageSize = size
	}
	return query
}

// Videos serves the video collection: listing with search and pagination,
// and uploads.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := parseVideoQuery(r.URL.Query())
		// Owners browsing their own catalog see drafts too.
		if actor, ok := UserFromContext(r.Context()); ok && query.OwnerID != "" && query.OwnerID == actor.ID {
			query.IncludeUnpublished = true
		}
		writeJSON(w, http.StatusOK, h.newVideoPageResponse(h.Store.ListVideos(query)))
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		video, err := h.Store.CreateVideo(storage.CreateVideoParams{
			OwnerID:         user.ID,
			Title:           req.Title,
			Description:     req.Description,
			VideoURL:        req.VideoURL,
			ThumbnailURL:    req.ThumbnailURL,
			DurationSeconds: req.DurationSeconds,
			Published:       req.Published,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		metrics.ObserveVideoEvent("upload")
		writeJSON(w, http.StatusCreated, h.newVideoResponse(video))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) requireVideoOwner(w http.ResponseWriter, r *http.Request, videoID string) (storage.Repository, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return nil, false
	}
	video, exists := h.Store.GetVideo(videoID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return nil, false
	}
	if video.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return nil, false
	}
	return h.Store, true
}

// VideoByID serves a single video along with its publish, comments, and view
// subresources.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/videos/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("video id missing"))
		return
	}
	videoID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			video, ok := h.Store.GetVideo(videoID)
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
				return
			}
			if !video.Published {
				actor, ok := UserFromContext(r.Context())
				if !ok || actor.ID != video.OwnerID {
					writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
					return
				}
			}
			writeJSON(w, http.StatusOK, h.newVideoResponse(video))
		case http.MethodPatch:
			if _, ok := h.requireVideoOwner(w, r, videoID); !ok {
				return
			}
			var req updateVideoRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			video, err := h.Store.UpdateVideo(videoID, storage.VideoUpdate{
				Title:        req.Title,
				Description:  req.Description,
				ThumbnailURL: req.ThumbnailURL,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, h.newVideoResponse(video))
		case http.MethodDelete:
			if _, ok := h.requireVideoOwner(w, r, videoID); !ok {
				return
			}
			if err := h.Store.DeleteVideo(videoID); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, PATCH, DELETE")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		}
		return
	}

	switch parts[1] {
	case "publish":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		if _, ok := h.requireVideoOwner(w, r, videoID); !ok {
			return
		}
		var req publishVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		video, err := h.Store.SetVideoPublished(videoID, req.Published)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Published {
			metrics.ObserveVideoEvent("publish")
		}
		writeJSON(w, http.StatusOK, h.newVideoResponse(video))
	case "comments":
		h.videoComments(w, r, videoID)
	case "view":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		viewerID := ""
		if actor, ok := UserFromContext(r.Context()); ok {
			viewerID = actor.ID
		}
		video, err := h.Store.RecordView(videoID, viewerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		metrics.ObserveVideoEvent("view")
		writeJSON(w, http.StatusOK, h.newVideoResponse(video))
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown video resource %s", parts[1]))
	}
}

func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.Store.GetVideo(videoID); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
			return
		}
		writeJSON(w, http.StatusOK, h.newCommentResponses(h.Store.ListComments(videoID)))
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.CreateComment(videoID, user.ID, req.Content)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.newCommentResponse(comment))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// CommentByID updates or deletes a single comment. Only the author may
// modify it.
func (h *Handler) CommentByID(w http.ResponseWriter, r *http.Request) {
	commentID := strings.TrimPrefix(r.URL.Path, "/api/v1/comments/")
	if commentID == "" || strings.Contains(commentID, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment id missing"))
		return
	}

	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	comment, exists := h.Store.GetComment(commentID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("comment %s not found", commentID))
		return
	}
	if comment.AuthorID != user.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req createCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateComment(commentID, req.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, h.newCommentResponse(updated))
	case http.MethodDelete:
		if err := h.Store.DeleteComment(commentID); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "PATCH, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
