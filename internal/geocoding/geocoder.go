package geocoding

import (
	"context"
	"fmt"

	"rider-router/internal/models"
)

// GeocodingResult is a resolved location plus the provider's formatted address.
type GeocodingResult struct {
	Coords      models.Coordinates `json:"coords"`
	DisplayName string             `json:"display_name"`
}

// Geocoder resolves a single free-form address. Implementations return
// *ErrGeocodingFailed when the provider answered but could not resolve it.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
}

// Searcher is implemented by geocoders that can return several candidates for a partial address
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error)
}

// ErrGeocodingFailed marks an address that could not be resolved. Reason is
// shown to the operator next to the rejected stop.
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("could not resolve %q: %s", e.Address, e.Reason)
}
