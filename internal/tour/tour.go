package tour

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// CostMatrix is a square matrix of travel costs between stops
type CostMatrix interface {
	Size() int
	At(i, j int) float64
}

// ErrInsufficientStops is returned when there are too few stops to form a tour
type ErrInsufficientStops struct {
	Have int
	Need int
}

func (e *ErrInsufficientStops) Error() string {
	return fmt.Sprintf("need at least %d stops to build a route, have %d", e.Need, e.Have)
}

// ErrIncompleteMatrix is returned when a cost cell was never filled in
var ErrIncompleteMatrix = errors.New("cost matrix has unset cells")

// Build constructs a nearest-neighbour tour starting at stop 0.
// The result is closed: it starts and ends with 0 and visits every other index once.
// Ties go to the lowest index.
func Build(m CostMatrix) ([]int, error) {
	n := m.Size()
	if n < 2 {
		return nil, &ErrInsufficientStops{Have: n, Need: 2}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsNaN(m.At(i, j)) {
				return nil, ErrIncompleteMatrix
			}
		}
	}

	visited := make([]bool, n)
	visited[0] = true
	order := make([]int, 0, n+1)
	order = append(order, 0)

	current := 0
	for len(order) < n {
		next := -1
		best := math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if c := m.At(current, j); next == -1 || c < best {
				next = j
				best = c
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}
	order = append(order, 0)

	log.Printf("[TOUR] Built tour: stops=%d cost=%.0f", n, Cost(m, order))
	return order, nil
}

// Cost sums the matrix cost along consecutive indices of order
func Cost(m CostMatrix, order []int) float64 {
	total := 0.0
	for k := 1; k < len(order); k++ {
		total += m.At(order[k-1], order[k])
	}
	return total
}
