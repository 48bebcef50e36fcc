package distance

import "math"

// Matrix is a square cost matrix. Cells start unset and are distinguishable from zero.
type Matrix struct {
	n     int
	cells []float64
}

// NewMatrix creates an n×n matrix with every off-diagonal cell unset
func NewMatrix(n int) *Matrix {
	cells := make([]float64, n*n)
	for i := range cells {
		cells[i] = math.NaN()
	}
	m := &Matrix{n: n, cells: cells}
	for i := 0; i < n; i++ {
		m.Set(i, i, 0)
	}
	return m
}

// Size returns the number of rows
func (m *Matrix) Size() int {
	return m.n
}

// At returns the cost from i to j, NaN when unset
func (m *Matrix) At(i, j int) float64 {
	return m.cells[i*m.n+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.cells[i*m.n+j] = v
}

func (m *Matrix) IsSet(i, j int) bool {
	return !math.IsNaN(m.At(i, j))
}

// Complete reports whether every cell has been set
func (m *Matrix) Complete() bool {
	for _, v := range m.cells {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
