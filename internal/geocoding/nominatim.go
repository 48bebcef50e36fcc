package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"rider-router/internal/models"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	// Nominatim's usage policy requires an identifying agent
	userAgent = "RiderRouter/1.0"
)

type nominatimGeocoder struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a Nominatim geocoder limited to one request per second.
// An empty baseURL uses the public OpenStreetMap instance.
func NewNominatimGeocoder(baseURL string) *nominatimGeocoder {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	return &nominatimGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (g *nominatimGeocoder) query(ctx context.Context, address string, limit int) ([]nominatimResponse, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"q":            {address},
		"format":       {"json"},
		"limit":        {strconv.Itoa(limit)},
		"countrycodes": {"us"},
	}
	log.Printf("[GEOCODING] Request: address=%s limit=%d", address, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[ERROR] Nominatim request failed: address=%s err=%v", address, err)
		return nil, &ErrGeocodingFailed{Address: address, Reason: "geocoding service unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[ERROR] Nominatim error: address=%s status=%d body=%s", address, resp.StatusCode, snippet)
		return nil, &ErrGeocodingFailed{Address: address, Reason: fmt.Sprintf("geocoding service returned HTTP %d", resp.StatusCode)}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "unreadable geocoding response"}
	}
	return results, nil
}

func (r nominatimResponse) toResult() (*GeocodingResult, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", r.Lat)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", r.Lon)
	}
	return &GeocodingResult{
		Coords:      models.Coordinates{Lat: lat, Lng: lng},
		DisplayName: r.DisplayName,
	}, nil
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	results, err := g.query(ctx, address, 1)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		log.Printf("[GEOCODING] No results found: address=%s", address)
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	result, err := results[0].toResult()
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	log.Printf("[GEOCODING] Response: address=%s lat=%.6f lng=%.6f", address, result.Coords.Lat, result.Coords.Lng)
	return result, nil
}

func (g *nominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error) {
	results, err := g.query(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]GeocodingResult, 0, len(results))
	for _, r := range results {
		result, err := r.toResult()
		if err != nil {
			log.Printf("[GEOCODING] Skipping search result: query=%s err=%v", query, err)
			continue
		}
		out = append(out, *result)
	}

	log.Printf("[GEOCODING] Search response: query=%s results_count=%d", query, len(out))
	return out, nil
}
