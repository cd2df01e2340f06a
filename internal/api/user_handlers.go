package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"cliptide/internal/storage"
)

type updateUserRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	CoverURL    *string `json:"coverUrl"`
}

type watchEntryResponse struct {
	VideoID   string    `json:"videoId"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Users lists registered accounts.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, newUserResponses(h.Store.ListUsers()))
}

// UserByID serves a single account and its watch-history and subscriptions
// subresources.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("user id missing"))
		return
	}
	userID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			user, ok := h.Store.GetUser(userID)
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Errorf("user %s not found", userID))
				return
			}
			writeJSON(w, http.StatusOK, newUserResponse(user))
		case http.MethodPatch:
			actor, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			if actor.ID != userID {
				writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
				return
			}
			var req updateUserRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			user, err := h.Store.UpdateUser(userID, storage.UserUpdate{
				Email:       req.Email,
				DisplayName: req.DisplayName,
				AvatarURL:   req.AvatarURL,
				CoverURL:    req.CoverURL,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, newUserResponse(user))
		case http.MethodDelete:
			actor, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			if actor.ID != userID {
				writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
				return
			}
			if err := h.Sessions.Logout(r.Context(), userID); err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if err := h.Store.DeleteUser(userID); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			h.clearAuthCookies(w, r)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, PATCH, DELETE")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		}
		return
	}

	switch parts[1] {
	case "watch-history":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		actor, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if actor.ID != userID {
			writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
			return
		}
		entries := h.Store.WatchHistory(userID)
		responses := make([]watchEntryResponse, 0, len(entries))
		for _, entry := range entries {
			responses = append(responses, watchEntryResponse{VideoID: entry.VideoID, WatchedAt: entry.WatchedAt})
		}
		writeJSON(w, http.StatusOK, responses)
	case "subscriptions":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		if _, ok := h.Store.GetUser(userID); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("user %s not found", userID))
			return
		}
		writeJSON(w, http.StatusOK, newUserResponses(h.Store.ListSubscribedChannels(userID)))
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown user resource %s", parts[1]))
	}
}
