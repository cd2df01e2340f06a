package api

import (
	"net/http"
)

// Health reports datastore and session-store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	services := map[string]string{}

	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status = "degraded"
			services["storage"] = err.Error()
		} else {
			services["storage"] = "ok"
		}
	}
	if h.Sessions != nil {
		if err := h.Sessions.Ping(r.Context()); err != nil {
			status = "degraded"
			services["sessions"] = err.Error()
		} else {
			services["sessions"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"services": services,
	})
}
