package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"rider-router/internal/models"
	"rider-router/internal/roster"
	"rider-router/internal/session"
)

const (
	sessionsPath   = "/api/v1/sessions/"
	maxUploadBytes = 10 << 20
)

// RosterSummary reports what normalization did to an uploaded roster
type RosterSummary struct {
	Rows     int `json:"rows"`
	Stops    int `json:"stops"`
	Dropped  int `json:"dropped"`
	Excluded int `json:"excluded"`
	Merged   int `json:"merged"`
}

// LoadResponse is returned when a roster is loaded into a session
type LoadResponse struct {
	*models.Snapshot
	Roster RosterSummary `json:"roster"`
}

type decisionRequest struct {
	Proceed *bool `json:"proceed" validate:"required"`
}

type insertStopRequest struct {
	Name       string `json:"name" validate:"max=200"`
	Phone      string `json:"phone" validate:"max=40"`
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=50"`
	Zip        string `json:"zip" validate:"required,max=20"`
	Notes      string `json:"notes" validate:"max=1000"`
	Category   string `json:"category" validate:"max=200"`
	RiderCount int    `json:"rider_count" validate:"gte=0,lte=100"`
}

type moveRequest struct {
	From *int `json:"from" validate:"required"`
	To   *int `json:"to" validate:"required"`
}

type ridersRequest struct {
	Index *int `json:"index" validate:"required"`
	Delta *int `json:"delta" validate:"required"`
}

type filterRequest struct {
	Category string `json:"category" validate:"max=200"`
}

// SplitSessionPath splits /api/v1/sessions/{id}/{action}/{arg} into its parts
func SplitSessionPath(path string) (id, action, arg string) {
	rest := strings.Trim(strings.TrimPrefix(path, sessionsPath), "/")
	parts := strings.SplitN(rest, "/", 3)
	id = parts[0]
	if len(parts) > 1 {
		action = parts[1]
	}
	if len(parts) > 2 {
		arg = parts[2]
	}
	return id, action, arg
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.RouteSession, bool) {
	id, _, _ := SplitSessionPath(r.URL.Path)
	sess := h.Sessions.Get(id)
	if sess == nil {
		log.Printf("[HTTP] %s %s: session not found id=%s", r.Method, r.URL.Path, id)
		h.handleNotFound(w, "Session not found")
		return nil, false
	}
	return sess, true
}

// readRoster parses the uploaded CSV in the "file" form field into stops
func (h *Handler) readRoster(r *http.Request) (*roster.Result, int, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, 0, fmt.Errorf("invalid upload: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, 0, fmt.Errorf("missing roster file: %w", err)
	}
	defer file.Close()

	table, err := roster.ReadCSV(file)
	if err != nil {
		return nil, 0, err
	}
	result, err := roster.Normalize(table, h.Columns)
	if err != nil {
		return nil, 0, err
	}

	log.Printf("[HTTP] Read roster: file=%s rows=%d stops=%d dropped=%d excluded=%d merged=%d",
		header.Filename, len(table.Rows), len(result.Stops), result.Dropped, result.Excluded, result.Merged)
	return result, len(table.Rows), nil
}

func summarize(result *roster.Result, rows int) RosterSummary {
	return RosterSummary{
		Rows:     rows,
		Stops:    len(result.Stops),
		Dropped:  result.Dropped,
		Excluded: result.Excluded,
		Merged:   result.Merged,
	}
}

func rosterWarnings(result *roster.Result) []string {
	var warnings []string
	if result.Dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows were skipped because the address was incomplete", result.Dropped))
	}
	if result.Excluded > 0 {
		warnings = append(warnings, fmt.Sprintf("%d driver or assistant rows were left out", result.Excluded))
	}
	return warnings
}

// loadRoster reads the upload and loads it into sess
func (h *Handler) loadRoster(w http.ResponseWriter, r *http.Request, sess *session.RouteSession, status int) bool {
	result, rows, err := h.readRoster(r)
	if err != nil {
		var schemaErr *roster.SchemaError
		if errors.As(err, &schemaErr) {
			h.handleError(w, err)
			return false
		}
		h.handleValidationError(w, err.Error())
		return false
	}

	snapshot, err := sess.LoadRoster(r.Context(), result.Stops, r.FormValue("category"), rosterWarnings(result))
	if err != nil {
		log.Printf("[ERROR] Failed to load roster: session=%s err=%v", sess.ID, err)
		h.handleError(w, err)
		return false
	}

	h.writeJSON(w, status, LoadResponse{Snapshot: snapshot, Roster: summarize(result, rows)})
	return true
}

// HandleCreateSession handles POST /api/v1/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	log.Printf("[HTTP] POST /api/v1/sessions")

	sess := h.Sessions.Create()
	if !h.loadRoster(w, r, sess, http.StatusCreated) {
		h.Sessions.Delete(sess.ID)
	}
}

// HandleReloadSession handles POST /api/v1/sessions/{id}/roster
func (h *Handler) HandleReloadSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	log.Printf("[HTTP] POST /api/v1/sessions/{id}/roster: id=%s", sess.ID)
	h.loadRoster(w, r, sess, http.StatusOK)
}

// HandleGetSession handles GET /api/v1/sessions/{id}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Snapshot())
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _, _ := SplitSessionPath(r.URL.Path)
	log.Printf("[HTTP] DELETE /api/v1/sessions/{id}: id=%s", id)

	if !h.Sessions.Delete(id) {
		h.handleNotFound(w, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDecision handles POST /api/v1/sessions/{id}/decision
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	log.Printf("[HTTP] POST /api/v1/sessions/{id}/decision: id=%s proceed=%t", sess.ID, *req.Proceed)
	snapshot, err := sess.Decide(r.Context(), *req.Proceed)
	h.respond(w, snapshot, err)
}

// HandleInsertStop handles POST /api/v1/sessions/{id}/stops
func (h *Handler) HandleInsertStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req insertStopRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	stop := models.Stop{
		Name:  strings.TrimSpace(req.Name),
		Phone: roster.NormalizePhone(req.Phone),
		Notes: strings.TrimSpace(req.Notes),
		Address: models.Address{
			Street: strings.TrimSpace(req.Street),
			City:   strings.TrimSpace(req.City),
			State:  strings.TrimSpace(req.State),
			Zip:    strings.TrimSpace(req.Zip),
		},
		Category:   strings.TrimSpace(req.Category),
		RiderCount: req.RiderCount,
	}

	log.Printf("[HTTP] POST /api/v1/sessions/{id}/stops: id=%s address=%s", sess.ID, stop.FullAddress())
	snapshot, err := sess.Insert(r.Context(), stop)
	h.respond(w, snapshot, err)
}

// HandleDeleteStop handles DELETE /api/v1/sessions/{id}/stops/{index}
func (h *Handler) HandleDeleteStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	_, _, arg := SplitSessionPath(r.URL.Path)
	index, err := strconv.Atoi(arg)
	if err != nil {
		log.Printf("[HTTP] DELETE /api/v1/sessions/{id}/stops/{index}: invalid_index=%s", arg)
		h.handleValidationError(w, "Invalid stop index")
		return
	}

	log.Printf("[HTTP] DELETE /api/v1/sessions/{id}/stops/{index}: id=%s index=%d", sess.ID, index)
	snapshot, err := sess.Delete(index)
	h.respond(w, snapshot, err)
}

// HandleMoveStop handles POST /api/v1/sessions/{id}/move
func (h *Handler) HandleMoveStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	log.Printf("[HTTP] POST /api/v1/sessions/{id}/move: id=%s from=%d to=%d", sess.ID, *req.From, *req.To)
	snapshot, err := sess.Move(*req.From, *req.To)
	h.respond(w, snapshot, err)
}

// HandleAdjustRiders handles POST /api/v1/sessions/{id}/riders
func (h *Handler) HandleAdjustRiders(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req ridersRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	log.Printf("[HTTP] POST /api/v1/sessions/{id}/riders: id=%s index=%d delta=%d", sess.ID, *req.Index, *req.Delta)
	snapshot, err := sess.SetRiderCount(*req.Index, *req.Delta)
	h.respond(w, snapshot, err)
}

// HandleFilter handles POST /api/v1/sessions/{id}/filter
func (h *Handler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	log.Printf("[HTTP] POST /api/v1/sessions/{id}/filter: id=%s category=%q", sess.ID, req.Category)
	snapshot, err := sess.FilterByCategory(r.Context(), req.Category)
	h.respond(w, snapshot, err)
}

// HandleReoptimize handles POST /api/v1/sessions/{id}/reoptimize
func (h *Handler) HandleReoptimize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	log.Printf("[HTTP] POST /api/v1/sessions/{id}/reoptimize: id=%s", sess.ID)
	snapshot, err := sess.Reoptimize(r.Context())
	h.respond(w, snapshot, err)
}

// HandleReset handles POST /api/v1/sessions/{id}/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	log.Printf("[HTTP] POST /api/v1/sessions/{id}/reset: id=%s", sess.ID)
	snapshot, err := sess.Reset()
	h.respond(w, snapshot, err)
}

// respond writes the snapshot of a session operation or its error
func (h *Handler) respond(w http.ResponseWriter, snapshot *models.Snapshot, err error) {
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshot)
}
