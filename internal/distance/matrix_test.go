package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMatrixStartsUnset(t *testing.T) {
	m := NewMatrix(3)

	assert.Equal(t, 3, m.Size())
	assert.False(t, m.Complete())
	assert.True(t, m.IsSet(1, 1))
	assert.Equal(t, 0.0, m.At(2, 2))
	assert.False(t, m.IsSet(0, 1))
	assert.True(t, math.IsNaN(m.At(0, 1)))
}

func TestMatrixZeroIsNotUnset(t *testing.T) {
	m := NewMatrix(2)
	m.Set(0, 1, 0)
	assert.False(t, m.Complete())
	m.Set(1, 0, 0)
	assert.True(t, m.Complete())
}
