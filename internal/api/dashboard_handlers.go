package api

import (
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

type channelStatsResponse struct {
	ChannelID        string `json:"channelId"`
	TotalVideos      int    `json:"totalVideos"`
	TotalViews       int64  `json:"totalViews"`
	TotalSubscribers int    `json:"totalSubscribers"`
	TotalLikes       int    `json:"totalLikes"`
	TotalPosts       int    `json:"totalPosts"`
}

// DashboardStats aggregates the caller's channel counters. The independent
// counts are gathered concurrently.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	stats := channelStatsResponse{ChannelID: user.ID}
	group, _ := errgroup.WithContext(r.Context())
	group.Go(func() error {
		stats.TotalVideos = h.Store.CountChannelVideos(user.ID)
		return nil
	})
	group.Go(func() error {
		stats.TotalViews = h.Store.SumChannelViews(user.ID)
		return nil
	})
	group.Go(func() error {
		stats.TotalSubscribers = h.Store.CountSubscribers(user.ID)
		return nil
	})
	group.Go(func() error {
		stats.TotalLikes = h.Store.CountChannelLikes(user.ID)
		return nil
	})
	group.Go(func() error {
		stats.TotalPosts = h.Store.CountChannelPosts(user.ID)
		return nil
	})
	if err := group.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DashboardVideos lists every video the caller owns, drafts included.
func (h *Handler) DashboardVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	query := parseVideoQuery(r.URL.Query())
	query.OwnerID = user.ID
	query.IncludeUnpublished = true
	writeJSON(w, http.StatusOK, h.newVideoPageResponse(h.Store.ListVideos(query)))
}
