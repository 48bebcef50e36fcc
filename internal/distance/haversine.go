package distance

import (
	"context"
	"fmt"

	"github.com/golang/geo/s2"

	"rider-router/internal/models"
)

const (
	earthRadiusMeters = 6371008.8
	// 40 km/h
	estimatedSpeedMPS = 40000.0 / 3600.0
	haversineMaxBatch = 100
)

type haversineGateway struct{}

// NewHaversineGateway creates an offline gateway returning great-circle estimates.
// Locations must carry coordinates.
func NewHaversineGateway() Gateway {
	return haversineGateway{}
}

func (haversineGateway) Name() string { return "haversine" }

func (haversineGateway) MaxBatchSize() int {
	return haversineMaxBatch
}

func (haversineGateway) BatchDistances(ctx context.Context, origins, destinations []models.Location) ([][]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block := make([][]Element, len(origins))
	for i, o := range origins {
		if o.Coords == nil {
			return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("location %q has no coordinates", o.Address)}
		}
		from := s2.LatLngFromDegrees(o.Coords.Lat, o.Coords.Lng)
		block[i] = make([]Element, len(destinations))
		for j, d := range destinations {
			if d.Coords == nil {
				return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("location %q has no coordinates", d.Address)}
			}
			to := s2.LatLngFromDegrees(d.Coords.Lat, d.Coords.Lng)
			meters := from.Distance(to).Radians() * earthRadiusMeters
			block[i][j] = Element{
				Meters:  meters,
				Seconds: meters / estimatedSpeedMPS,
				Status:  StatusOK,
			}
		}
	}
	return block, nil
}
