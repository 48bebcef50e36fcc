package distance

import (
	"context"
	"fmt"

	"rider-router/internal/models"
)

// ElementStatus reports whether a provider could route between two locations
type ElementStatus string

const (
	StatusOK          ElementStatus = "OK"
	StatusUnreachable ElementStatus = "UNREACHABLE"
)

// Element is one origin/destination result from a provider
type Element struct {
	Meters  float64
	Seconds float64
	Status  ElementStatus
}

// Gateway returns distances for a block of origins against a block of destinations.
// The result is indexed [origin][destination]. Name identifies the cost model
// and namespaces cached values, so estimates from one provider are never served
// as another provider's costs.
type Gateway interface {
	BatchDistances(ctx context.Context, origins, destinations []models.Location) ([][]Element, error)
	MaxBatchSize() int
	Name() string
}

// ErrDistanceCalculationFailed is returned when a provider request fails
type ErrDistanceCalculationFailed struct {
	Reason    string
	Status    int
	Retryable bool
}

func (e *ErrDistanceCalculationFailed) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("distance calculation failed: HTTP %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("distance calculation failed: %s", e.Reason)
}

// ErrMatrixBuildFailed is returned when a chunk pair could not be fetched.
// Row and Col are chunk indices.
type ErrMatrixBuildFailed struct {
	Row      int
	Col      int
	Attempts int
	Err      error
}

func (e *ErrMatrixBuildFailed) Error() string {
	return fmt.Sprintf("distance matrix build failed at chunk (%d,%d) after %d attempt(s): %v", e.Row, e.Col, e.Attempts, e.Err)
}

func (e *ErrMatrixBuildFailed) Unwrap() error {
	return e.Err
}

// ErrUnreachable is returned when the provider cannot route between two stops
type ErrUnreachable struct {
	Origin      string
	Destination string
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("no route between %q and %q", e.Origin, e.Destination)
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
