package handlers

import "net/http"

// Version is reported by the health check
const Version = "1.0.0"

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	cacheStatus := "disabled"

	if h.Cache != nil {
		cacheStatus = "connected"
		if err := h.Cache.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			cacheStatus = "error"
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"version":  Version,
		"database": cacheStatus,
		"sessions": h.Sessions.Len(),
	})
}
