package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/quadtree"
)

func randomSystem(n int, seed int64) *particle.System {
	rng := rand.New(rand.NewSource(seed))
	s := particle.New(n)
	for i := 0; i < n; i++ {
		s.PosX[i] = rng.Float64()
		s.PosY[i] = rng.Float64()
		s.Mass[i] = rng.Float64() + 0.1
	}
	return s
}

func TestIdentityOrderCoversAllIndices(t *testing.T) {
	order := IdentityOrder(10)
	require.Len(t, order, 10)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestRunMortonIsDeterministicAcrossThreadCounts(t *testing.T) {
	n := 2000
	s := randomSystem(n, 5)
	bounds, err := s.ComputeBounds(0.05)
	require.NoError(t, err)

	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	root, _, err := quadtree.Build(a, s, bounds)
	require.NoError(t, err)

	order := IdentityOrder(n)

	require.NoError(t, RunMorton(a, root, s, order, 0.5, 1))
	wantFX := append([]float64{}, s.FX...)
	wantFY := append([]float64{}, s.FY...)

	for i := range s.FX {
		s.FX[i], s.FY[i] = 0, 0
	}
	require.NoError(t, RunMorton(a, root, s, order, 0.5, 8))

	for i := range s.FX {
		assert.Equal(t, wantFX[i], s.FX[i], "fx mismatch at %d", i)
		assert.Equal(t, wantFY[i], s.FY[i], "fy mismatch at %d", i)
	}
}

func TestRunMortonHandlesEmptyOrder(t *testing.T) {
	s := particle.New(1)
	s.Mass[0] = 1
	a := arena.New(arena.RequiredCapacityHint(1), arena.Abort)
	root, _, err := quadtree.Build(a, s, particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1})
	require.NoError(t, err)

	require.NoError(t, RunMorton(a, root, s, nil, 0.5, 4))
}

func TestRunMortonChunkBoundaryNotAMultipleOfChunkSize(t *testing.T) {
	n := ChunkSize*3 + 7
	s := randomSystem(n, 9)
	bounds, err := s.ComputeBounds(0.05)
	require.NoError(t, err)
	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	root, _, err := quadtree.Build(a, s, bounds)
	require.NoError(t, err)

	require.NoError(t, RunMorton(a, root, s, IdentityOrder(n), 0.5, 3))
	for i := 0; i < n; i++ {
		assert.False(t, s.FX[i] == 0 && s.FY[i] == 0 && s.Mass[i] != 0)
	}
}
