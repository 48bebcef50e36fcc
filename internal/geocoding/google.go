package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"rider-router/internal/models"
)

const defaultGoogleMapsURL = "https://maps.googleapis.com"

type googleGeocoder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGoogleGeocoder creates a geocoder backed by the Google Geocoding API
func NewGoogleGeocoder(apiKey string) *googleGeocoder {
	return &googleGeocoder{
		baseURL: defaultGoogleMapsURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *googleGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	queryURL := fmt.Sprintf("%s/maps/api/geocode/json?address=%s&key=%s",
		g.baseURL, url.QueryEscape(address), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Google geocoding request failed: address=%s err=%v", address, err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrGeocodingFailed{Address: address, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	var body googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	default:
		reason := body.Status
		if body.ErrorMessage != "" {
			reason = fmt.Sprintf("%s: %s", body.Status, body.ErrorMessage)
		}
		log.Printf("[ERROR] Google geocoding error: address=%s status=%s", address, body.Status)
		return nil, &ErrGeocodingFailed{Address: address, Reason: reason}
	}

	if len(body.Results) == 0 {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	first := body.Results[0]
	log.Printf("[GEOCODING] Google response: address=%s formatted=%s", address, first.FormattedAddress)
	return &GeocodingResult{
		Coords: models.Coordinates{
			Lat: first.Geometry.Location.Lat,
			Lng: first.Geometry.Location.Lng,
		},
		DisplayName: first.FormattedAddress,
	}, nil
}
