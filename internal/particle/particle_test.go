package particle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZeroed(t *testing.T) {
	s := New(5)
	assert.Equal(t, 5, s.Len())
	for i := 0; i < 5; i++ {
		assert.Zero(t, s.Mass[i])
		assert.Zero(t, s.PosX[i])
	}
}

func TestComputeBoundsPadsByMargin(t *testing.T) {
	s := New(3)
	s.PosX = []float64{0, 10, 5}
	s.PosY = []float64{0, 0, 10}

	b, err := s.ComputeBounds(0.1)
	require.NoError(t, err)

	assert.Less(t, b.XMin, 0.0)
	assert.Greater(t, b.XMax, 10.0)
	assert.Less(t, b.YMin, 0.0)
	assert.Greater(t, b.YMax, 10.0)
}

func TestComputeBoundsRejectsEmptySystem(t *testing.T) {
	s := New(0)
	_, err := s.ComputeBounds(0.05)
	require.Error(t, err)
}

func TestComputeBoundsDegenerateSystem(t *testing.T) {
	// All particles coincident: width/height clamp to a minimum
	// extent rather than producing a zero-area box.
	s := New(2)
	s.PosX = []float64{1, 1}
	s.PosY = []float64{1, 1}

	b, err := s.ComputeBounds(0.05)
	require.NoError(t, err)
	assert.Greater(t, b.Width(), 0.0)
	assert.Greater(t, b.Height(), 0.0)
}

func TestInBounds(t *testing.T) {
	s := New(2)
	s.PosX = []float64{0, 100}
	s.PosY = []float64{0, 100}
	b := Bounds{XMin: -1, XMax: 1, YMin: -1, YMax: 1}

	assert.True(t, s.InBounds(0, b))
	assert.False(t, s.InBounds(1, b))
}

func TestCheckFiniteDetectsNaNAndInf(t *testing.T) {
	s := New(3)
	s.Mass = []float64{1, 1, 1}
	require.NoError(t, s.CheckFinite())

	s.PosX[1] = math.NaN()
	require.Error(t, s.CheckFinite())

	s.PosX[1] = 0
	s.Mass[2] = math.Inf(1)
	require.Error(t, s.CheckFinite())
}

func TestPermuteReordersAllParallelArrays(t *testing.T) {
	s := New(3)
	s.PosX = []float64{10, 20, 30}
	s.PosY = []float64{1, 2, 3}
	s.Mass = []float64{100, 200, 300}
	s.Brightness = []float64{0.1, 0.2, 0.3}

	// perm[i] = source index landing at destination i.
	s.Permute([]int{2, 0, 1})

	assert.Equal(t, []float64{30, 10, 20}, s.PosX)
	assert.Equal(t, []float64{3, 1, 2}, s.PosY)
	assert.Equal(t, []float64{300, 100, 200}, s.Mass)
	assert.Equal(t, []float64{0.3, 0.1, 0.2}, s.Brightness)
}

func TestPermuteIdentityIsNoOp(t *testing.T) {
	s := New(4)
	for i := range s.PosX {
		s.PosX[i] = float64(i)
	}
	before := append([]float64{}, s.PosX...)
	s.Permute([]int{0, 1, 2, 3})
	assert.Equal(t, before, s.PosX)
}
