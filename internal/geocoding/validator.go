package geocoding

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"rider-router/internal/models"
)

// ValidationResult splits a batch of stops by whether their address resolved
type ValidationResult struct {
	Validated []models.Stop
	Rejected  []models.Stop
}

// Validator resolves stop addresses one at a time with a fixed gap between requests
type Validator struct {
	geocoder Geocoder
	limiter  *rate.Limiter
}

// NewValidator creates a validator issuing at most one request per delay
func NewValidator(geocoder Geocoder, delay time.Duration) *Validator {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Validator{
		geocoder: geocoder,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Validate resolves every stop in order. A failed stop is marked invalid and the
// batch continues; only context cancellation aborts.
func (v *Validator) Validate(ctx context.Context, stops []models.Stop) (*ValidationResult, error) {
	result := &ValidationResult{
		Validated: make([]models.Stop, 0, len(stops)),
	}

	for i := range stops {
		stop := stops[i].Clone()
		if err := v.ValidateStop(ctx, &stop); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Rejected = append(result.Rejected, stop)
			continue
		}
		result.Validated = append(result.Validated, stop)
	}

	log.Printf("[GEOCODING] Validated stops: total=%d valid=%d rejected=%d",
		len(stops), len(result.Validated), len(result.Rejected))
	return result, nil
}

// ValidateStop resolves a single stop in place, recording the outcome on the stop
func (v *Validator) ValidateStop(ctx context.Context, stop *models.Stop) error {
	if err := v.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// the next slot falls after the context deadline
			stop.Validation = models.Validation{State: models.ValidationInvalid, Reason: "ran out of time before this address could be checked"}
			stop.Coordinates = nil
			log.Printf("[GEOCODING] Rejected stop: id=%s reason=deadline err=%v", stop.ID, err)
		}
		return err
	}

	address := stop.FullAddress()
	result, err := v.geocoder.Geocode(ctx, address)
	if err != nil {
		reason := err.Error()
		var gerr *ErrGeocodingFailed
		if errors.As(err, &gerr) {
			reason = gerr.Reason
		}
		stop.Validation = models.Validation{State: models.ValidationInvalid, Reason: reason}
		stop.Coordinates = nil
		log.Printf("[GEOCODING] Rejected stop: id=%s address=%s reason=%s", stop.ID, address, reason)
		return err
	}

	coords := result.Coords
	stop.Coordinates = &coords
	stop.FormattedAddress = result.DisplayName
	stop.Validation = models.Validation{State: models.ValidationValid}
	return nil
}
