package geocoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestNominatim(url string) *nominatimGeocoder {
	return &nominatimGeocoder{
		baseURL:     url,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestNominatimGeocodeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "12 Oak St, Olathe, KS 66061", r.URL.Query().Get("q"))
		assert.Equal(t, "RiderRouter/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]nominatimResponse{
			{Lat: "38.8814", Lon: "-94.8191", DisplayName: "12 Oak Street, Olathe, Kansas"},
		})
	}))
	defer server.Close()

	result, err := newTestNominatim(server.URL).Geocode(context.Background(), "12 Oak St, Olathe, KS 66061")

	require.NoError(t, err)
	assert.Equal(t, 38.8814, result.Coords.Lat)
	assert.Equal(t, -94.8191, result.Coords.Lng)
	assert.Equal(t, "12 Oak Street, Olathe, Kansas", result.DisplayName)
}

func TestNominatimGeocodeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]nominatimResponse{})
	}))
	defer server.Close()

	result, err := newTestNominatim(server.URL).Geocode(context.Background(), "1 Nowhere Rd")

	require.Error(t, err)
	assert.Nil(t, result)
	var gerr *ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "1 Nowhere Rd", gerr.Address)
	assert.Equal(t, "no results found", gerr.Reason)
}

func TestNominatimGeocodeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer server.Close()

	_, err := newTestNominatim(server.URL).Geocode(context.Background(), "12 Oak St")

	var gerr *ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Reason, "HTTP 503")
}

func TestNominatimGeocodeBadCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]nominatimResponse{{Lat: "north", Lon: "-94.1"}})
	}))
	defer server.Close()

	_, err := newTestNominatim(server.URL).Geocode(context.Background(), "12 Oak St")

	var gerr *ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Reason, "invalid latitude")
}

func TestNominatimSearchSkipsBadResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]nominatimResponse{
			{Lat: "38.1", Lon: "-94.1", DisplayName: "first"},
			{Lat: "bad", Lon: "-94.2", DisplayName: "broken"},
			{Lat: "38.3", Lon: "-94.3", DisplayName: "third"},
		})
	}))
	defer server.Close()

	results, err := newTestNominatim(server.URL).Search(context.Background(), "Oak", 5)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].DisplayName)
	assert.Equal(t, "third", results[1].DisplayName)
}

func TestNominatimRespectsCancelledContext(t *testing.T) {
	g := &nominatimGeocoder{
		baseURL:     "http://127.0.0.1:0",
		httpClient:  &http.Client{Timeout: time.Second},
		rateLimiter: rate.NewLimiter(rate.Every(time.Hour), 1),
	}
	// drain the single token so the next call has to wait
	require.True(t, g.rateLimiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Geocode(ctx, "12 Oak St")
	require.Error(t, err)
}
