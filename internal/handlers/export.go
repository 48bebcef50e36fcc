package handlers

import (
	"log"
	"net/http"

	"rider-router/internal/export"
	"rider-router/internal/models"
	"rider-router/internal/session"
)

// ExportResponse carries the shareable forms of a route
type ExportResponse struct {
	URL        string                 `json:"url"`
	Directions *export.DirectionsPlan `json:"directions"`
	Warnings   []string               `json:"warnings"`
}

// HandleExport handles GET /api/v1/sessions/{id}/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	snapshot := sess.Snapshot()
	if snapshot.State != models.RouteStateReady {
		h.handleError(w, session.ErrNoRoute)
		return
	}

	link, linkWarn, err := export.DeepLink(snapshot.Stops)
	if err != nil {
		h.handleError(w, err)
		return
	}
	plan, planWarn, err := export.Directions(snapshot.Stops)
	if err != nil {
		h.handleError(w, err)
		return
	}

	warnings := []string{}
	if linkWarn != nil {
		warnings = append(warnings, linkWarn.Error())
	}
	if planWarn != nil {
		warnings = append(warnings, planWarn.Error())
	}

	log.Printf("[HTTP] GET /api/v1/sessions/{id}/export: id=%s stops=%d warnings=%d", sess.ID, len(snapshot.Stops), len(warnings))
	h.writeJSON(w, http.StatusOK, ExportResponse{URL: link, Directions: plan, Warnings: warnings})
}
