package testutil

import (
	"context"
	"math"
	"sync"

	"rider-router/internal/distance"
	"rider-router/internal/models"
)

// MockGateway is a distance.Gateway returning scaled Euclidean distances between coordinates
type MockGateway struct {
	mu          sync.Mutex
	ScaleFactor float64
	BatchSize   int
	// Provider is reported by Name
	Provider string
	Calls    int
	// Err, when set, is returned from every call
	Err error
	// Block, when non-nil, is waited on before answering
	Block chan struct{}
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		ScaleFactor: 111000, // 1 degree ≈ 111km in meters
		BatchSize:   10,
		Provider:    "mock",
	}
}

func (m *MockGateway) Name() string {
	return m.Provider
}

func (m *MockGateway) MaxBatchSize() int {
	return m.BatchSize
}

func (m *MockGateway) BatchDistances(ctx context.Context, origins, destinations []models.Location) ([][]distance.Element, error) {
	m.mu.Lock()
	m.Calls++
	block, err := m.Block, m.Err
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([][]distance.Element, len(origins))
	for i, o := range origins {
		out[i] = make([]distance.Element, len(destinations))
		for j, d := range destinations {
			if o.Coords == nil || d.Coords == nil {
				out[i][j] = distance.Element{Status: distance.StatusUnreachable}
				continue
			}
			dLat := d.Coords.Lat - o.Coords.Lat
			dLng := d.Coords.Lng - o.Coords.Lng
			meters := math.Sqrt(dLat*dLat+dLng*dLng) * m.ScaleFactor
			out[i][j] = distance.Element{
				Meters:  meters,
				Seconds: meters / 50000 * 3600,
				Status:  distance.StatusOK,
			}
		}
	}
	return out, nil
}

// CallCount returns the number of BatchDistances calls so far
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
