package testutil

import (
	"context"
	"sync"

	"rider-router/internal/geocoding"
	"rider-router/internal/models"
)

// MockGeocoder resolves addresses from a fixed table. Unknown addresses fail.
type MockGeocoder struct {
	mu      sync.Mutex
	Results map[string]models.Coordinates
	Failing map[string]string
	Calls   []string
}

func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		Results: make(map[string]models.Coordinates),
		Failing: make(map[string]string),
	}
}

// Add registers coordinates for an address
func (m *MockGeocoder) Add(address string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[address] = models.Coordinates{Lat: lat, Lng: lng}
}

// Fail makes an address fail with the given reason
func (m *MockGeocoder) Fail(address, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failing[address] = reason
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (*geocoding.GeocodingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, address)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reason, ok := m.Failing[address]; ok {
		return nil, &geocoding.ErrGeocodingFailed{Address: address, Reason: reason}
	}
	coords, ok := m.Results[address]
	if !ok {
		return nil, &geocoding.ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}
	return &geocoding.GeocodingResult{Coords: coords, DisplayName: address}, nil
}

// CallCount returns the number of Geocode calls made so far
func (m *MockGeocoder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
