package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"rider-router/internal/database"
	"rider-router/internal/distance"
	"rider-router/internal/geocoding"
	"rider-router/internal/roster"
	"rider-router/internal/session"
	"rider-router/internal/tour"
)

// Handler provides common handler utilities and dependencies
type Handler struct {
	Sessions *session.Store
	Geocoder geocoding.Geocoder
	Cache    database.CacheStore // nil when caching is disabled
	Columns  roster.ColumnMap
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleError maps domain errors onto API error responses
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var (
		schemaErr    *roster.SchemaError
		geocodeErr   *geocoding.ErrGeocodingFailed
		protectedErr *session.ErrProtectedStop
		rangeErr     *session.ErrIndexOutOfRange
		stopsErr     *tour.ErrInsufficientStops
		matrixErr    *distance.ErrMatrixBuildFailed
		calcErr      *distance.ErrDistanceCalculationFailed
		unreachErr   *distance.ErrUnreachable
	)

	switch {
	case errors.As(err, &schemaErr):
		h.writeError(w, http.StatusBadRequest, "SCHEMA_ERROR", err.Error(), map[string]interface{}{
			"missing": schemaErr.Missing,
		})
	case errors.As(err, &geocodeErr):
		h.writeError(w, http.StatusUnprocessableEntity, "GEOCODING_FAILED", err.Error(), map[string]interface{}{
			"address": geocodeErr.Address,
			"reason":  geocodeErr.Reason,
		})
	case errors.As(err, &protectedErr):
		h.writeError(w, http.StatusConflict, "PROTECTED_STOP", err.Error(), map[string]interface{}{
			"index": protectedErr.Index,
		})
	case errors.As(err, &rangeErr):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), map[string]interface{}{
			"index":  rangeErr.Index,
			"length": rangeErr.Len,
		})
	case errors.As(err, &stopsErr):
		h.writeError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_STOPS", err.Error(), map[string]interface{}{
			"have": stopsErr.Have,
			"need": stopsErr.Need,
		})
	case errors.As(err, &unreachErr):
		h.writeError(w, http.StatusBadGateway, "GATEWAY_FAILURE", err.Error(), map[string]interface{}{
			"origin":      unreachErr.Origin,
			"destination": unreachErr.Destination,
		})
	case errors.As(err, &matrixErr):
		h.writeError(w, http.StatusBadGateway, "GATEWAY_FAILURE", err.Error(), map[string]interface{}{
			"row":      matrixErr.Row,
			"col":      matrixErr.Col,
			"attempts": matrixErr.Attempts,
		})
	case errors.As(err, &calcErr):
		h.writeError(w, http.StatusBadGateway, "GATEWAY_FAILURE", err.Error(), nil)
	case errors.Is(err, session.ErrBuildInProgress):
		h.writeError(w, http.StatusConflict, "BUILD_IN_PROGRESS", err.Error(), nil)
	case errors.Is(err, session.ErrSuperseded):
		h.writeError(w, http.StatusConflict, "SUPERSEDED", err.Error(), nil)
	case errors.Is(err, session.ErrNoRoute), errors.Is(err, session.ErrNoDecisionPending):
		h.writeError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, context.Canceled):
		log.Printf("[HTTP] Request cancelled: %v", err)
		h.writeError(w, http.StatusServiceUnavailable, "CANCELLED", "The request was cancelled.", nil)
	default:
		h.handleInternalError(w, err)
	}
}

// decodeJSON reads and validates a JSON request body, writing a 400 on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.handleValidationError(w, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.handleValidationError(w, describeValidation(err))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(msgs, ", ")
}
