package distance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rider-router/internal/models"
)

func TestGoogleGatewayParsesBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1 Elm St|2 Ash St", q.Get("origins"))
		assert.Equal(t, "3 Oak St", q.Get("destinations"))
		assert.Equal(t, "k", q.Get("key"))
		w.Write([]byte(`{"status":"OK","rows":[
			{"elements":[{"status":"OK","distance":{"value":1200},"duration":{"value":90}}]},
			{"elements":[{"status":"ZERO_RESULTS"}]}
		]}`))
	}))
	defer server.Close()

	gw := &googleGateway{baseURL: server.URL, apiKey: "k", httpClient: server.Client()}
	block, err := gw.BatchDistances(context.Background(),
		[]models.Location{{Address: "1 Elm St"}, {Address: "2 Ash St"}},
		[]models.Location{{Address: "3 Oak St"}})

	require.NoError(t, err)
	require.Len(t, block, 2)
	assert.Equal(t, Element{Meters: 1200, Seconds: 90, Status: StatusOK}, block[0][0])
	assert.Equal(t, StatusUnreachable, block[1][0].Status)
	assert.Equal(t, 10, gw.MaxBatchSize())
}

func TestGoogleGatewayErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"rate limited http", http.StatusTooManyRequests, `slow down`, true},
		{"server error", http.StatusBadGateway, `oops`, true},
		{"bad request", http.StatusBadRequest, `nope`, false},
		{"over query limit", http.StatusOK, `{"status":"OVER_QUERY_LIMIT","rows":[]}`, true},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"key","rows":[]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gw := &googleGateway{baseURL: server.URL, apiKey: "k", httpClient: server.Client()}
			_, err := gw.BatchDistances(context.Background(),
				[]models.Location{{Address: "a"}}, []models.Location{{Address: "b"}})

			var failed *ErrDistanceCalculationFailed
			require.ErrorAs(t, err, &failed)
			assert.Equal(t, tt.retryable, failed.Retryable)
		})
	}
}

func TestOSRMGatewayUsesSourcesAndDestinations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/table/v1/driving/"))
		coords := strings.Split(strings.TrimPrefix(r.URL.Path, "/table/v1/driving/"), ";")
		assert.Len(t, coords, 3)
		assert.Equal(t, "-94.100000,38.100000", coords[0])
		assert.Equal(t, "0;1", r.URL.Query().Get("sources"))
		assert.Equal(t, "2", r.URL.Query().Get("destinations"))
		w.Write([]byte(`{"code":"Ok","distances":[[500],[null]],"durations":[[40],[null]]}`))
	}))
	defer server.Close()

	gw := &osrmGateway{baseURL: server.URL, httpClient: &http.Client{Timeout: 5 * time.Second}, maxBatch: 10}
	block, err := gw.BatchDistances(context.Background(),
		[]models.Location{
			{Address: "a", Coords: &models.Coordinates{Lat: 38.1, Lng: -94.1}},
			{Address: "b", Coords: &models.Coordinates{Lat: 38.2, Lng: -94.2}},
		},
		[]models.Location{{Address: "c", Coords: &models.Coordinates{Lat: 38.3, Lng: -94.3}}})

	require.NoError(t, err)
	require.Len(t, block, 2)
	assert.Equal(t, Element{Meters: 500, Seconds: 40, Status: StatusOK}, block[0][0])
	assert.Equal(t, StatusUnreachable, block[1][0].Status)
}

func TestOSRMGatewayRequiresCoordinates(t *testing.T) {
	gw := NewOSRMGateway("http://127.0.0.1:0", 0)
	_, err := gw.BatchDistances(context.Background(),
		[]models.Location{{Address: "a"}}, []models.Location{{Address: "b"}})

	var failed *ErrDistanceCalculationFailed
	require.ErrorAs(t, err, &failed)
	assert.False(t, failed.Retryable)
	assert.Equal(t, 10, gw.MaxBatchSize())
}

func TestOSRMGatewayErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"InvalidQuery","message":"bad"}`))
	}))
	defer server.Close()

	gw := NewOSRMGateway(server.URL, 10)
	_, err := gw.BatchDistances(context.Background(),
		[]models.Location{{Coords: &models.Coordinates{Lat: 1, Lng: 1}}},
		[]models.Location{{Coords: &models.Coordinates{Lat: 2, Lng: 2}}})

	var failed *ErrDistanceCalculationFailed
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Reason, "InvalidQuery")
}

func TestHaversineGatewayEstimates(t *testing.T) {
	gw := NewHaversineGateway()
	olathe := models.Location{Address: "olathe", Coords: &models.Coordinates{Lat: 38.8814, Lng: -94.8191}}
	kc := models.Location{Address: "kc", Coords: &models.Coordinates{Lat: 39.0997, Lng: -94.5786}}

	block, err := gw.BatchDistances(context.Background(),
		[]models.Location{olathe, kc}, []models.Location{olathe, kc})

	require.NoError(t, err)
	assert.InDelta(t, 0, block[0][0].Meters, 0.001)
	// roughly 32 km apart
	assert.InDelta(t, 32000, block[0][1].Meters, 1500)
	assert.InDelta(t, block[0][1].Meters, block[1][0].Meters, 0.001)
	assert.InDelta(t, block[0][1].Meters/(40000.0/3600.0), block[0][1].Seconds, 0.001)
}

func TestHaversineGatewayRequiresCoordinates(t *testing.T) {
	_, err := NewHaversineGateway().BatchDistances(context.Background(),
		[]models.Location{{Address: "a"}}, []models.Location{{Address: "b"}})
	var failed *ErrDistanceCalculationFailed
	require.ErrorAs(t, err, &failed)
}
