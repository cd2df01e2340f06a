package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Playlists serves the playlist collection for the authenticated user.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
		if ownerID == "" {
			ownerID = user.ID
		}
		writeJSON(w, http.StatusOK, newPlaylistResponses(h.Store.ListPlaylists(ownerID)))
	case http.MethodPost:
		var req createPlaylistRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.CreatePlaylist(user.ID, req.Name, req.Description)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, newPlaylistResponse(playlist))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) requirePlaylistOwner(w http.ResponseWriter, r *http.Request, playlistID string) (models.Playlist, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.Playlist{}, false
	}
	playlist, exists := h.Store.GetPlaylist(playlistID)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist %s not found", playlistID))
		return models.Playlist{}, false
	}
	if playlist.OwnerID != user.ID {
		writeError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return models.Playlist{}, false
	}
	return playlist, true
}

// PlaylistByID serves a single playlist and its video membership
// subresource.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/playlists/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist id missing"))
		return
	}
	playlistID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			playlist, ok := h.Store.GetPlaylist(playlistID)
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Errorf("playlist %s not found", playlistID))
				return
			}
			writeJSON(w, http.StatusOK, newPlaylistResponse(playlist))
		case http.MethodPatch:
			if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
				return
			}
			var req updatePlaylistRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			playlist, err := h.Store.UpdatePlaylist(playlistID, storage.PlaylistUpdate{
				Name:        req.Name,
				Description: req.Description,
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, newPlaylistResponse(playlist))
		case http.MethodDelete:
			if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
				return
			}
			if err := h.Store.DeletePlaylist(playlistID); err != nil {
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

	if parts[1] != "videos" || len(parts) < 3 || parts[2] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown playlist resource"))
		return
	}
	videoID := parts[2]

	if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		playlist, err := h.Store.AddPlaylistVideo(playlistID, videoID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, err)
				return
			}
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, newPlaylistResponse(playlist))
	case http.MethodDelete:
		playlist, err := h.Store.RemovePlaylistVideo(playlistID, videoID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, newPlaylistResponse(playlist))
	default:
		w.Header().Set("Allow", "POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
