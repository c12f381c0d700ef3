package quadtree

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

func buildSystem(positions [][2]float64, masses []float64) *particle.System {
	s := particle.New(len(positions))
	for i, p := range positions {
		s.PosX[i], s.PosY[i] = p[0], p[1]
		s.Mass[i] = masses[i]
	}
	return s
}

func TestBuildSingleParticleRootIsLeaf(t *testing.T) {
	s := buildSystem([][2]float64{{0.5, 0.5}}, []float64{3})
	a := arena.New(arena.RequiredCapacityHint(1), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, stats, err := Build(a, s, bounds)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodesAllocated)

	node := a.At(root)
	assert.True(t, node.Leaf())
	assert.Equal(t, 3.0, node.Mass)
	assert.Equal(t, 0.5, node.CMX)
}

func TestBuildTwoDistantParticlesSplitsOnce(t *testing.T) {
	s := buildSystem([][2]float64{{0.1, 0.1}, {0.9, 0.9}}, []float64{1, 1})
	a := arena.New(arena.RequiredCapacityHint(2), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)

	rn := a.At(root)
	assert.False(t, rn.Leaf())
	require.NoError(t, VerifyLeafUniqueness(a, root))
}

func TestBuildCoincidentParticlesMergeRatherThanOverflow(t *testing.T) {
	s := buildSystem([][2]float64{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}}, []float64{1, 1, 1})
	a := arena.New(arena.RequiredCapacityHint(3), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, stats, err := Build(a, s, bounds)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MergedPairs)

	rn := a.At(root)
	assert.True(t, rn.Leaf())
	assert.Equal(t, 3.0, rn.Mass)
}

func TestBuildAggregateMassEqualsTotalMass(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 500
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	total := 0.0
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = rng.Float64() + 0.1
		total += masses[i]
	}
	s := buildSystem(positions, masses)
	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)

	rn := a.At(root)
	assert.InDelta(t, total, rn.Mass, 1e-9)
}

func TestBuildLeafUniquenessHoldsForRandomSystem(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 1000
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = 1
	}
	s := buildSystem(positions, masses)
	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)
	assert.NoError(t, VerifyLeafUniqueness(a, root))
}

func TestBuildRetriesAfterArenaGrows(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 200
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = 1
	}
	s := buildSystem(positions, masses)

	// Deliberately undersized so the first build attempt exhausts the
	// arena and DoubleAndRestart must grow and retry internally.
	a := arena.New(4, arena.DoubleAndRestart)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)
	assert.NoError(t, VerifyLeafUniqueness(a, root))
}

func TestBuildAbortsWhenArenaTooSmall(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 200
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = 1
	}
	s := buildSystem(positions, masses)

	a := arena.New(4, arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	_, _, err := Build(a, s, bounds)
	require.Error(t, err)
}

func TestQuadrantTieBreaksOnStrictInequality(t *testing.T) {
	// Exactly on both midlines, neither "px > midX" nor "py > midY"
	// holds, so the particle falls to the bit-clear quadrant (SW, 0) —
	// there is no epsilon widening, just the plain strict comparison.
	assert.Equal(t, 0, quadrant(0.5, 0.5, 0.5, 0.5))
	assert.Equal(t, 0, quadrant(0.4, 0.4, 0.5, 0.5))
	// Infinitesimally past the midline on both axes does cross into NE.
	assert.Equal(t, 3, quadrant(0.5+1e-9, 0.5+1e-9, 0.5, 0.5))
}

func randomPositioned(n int, seed int64) (*particle.System, particle.Bounds) {
	rng := rand.New(rand.NewSource(seed))
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = rng.Float64() + 0.1
	}
	return buildSystem(positions, masses), particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
}

// walkInternal calls visit on every internal (non-leaf, non-empty) node
// reachable from root, including root itself if it is internal.
func walkInternal(a *arena.Arena, root arena.Index, visit func(idx arena.Index, node *arena.Node)) {
	stack := []arena.Index{root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := a.At(idx)
		if node.Empty() || node.Leaf() {
			continue
		}
		visit(idx, node)
		for _, c := range node.Child {
			if c != -1 {
				stack = append(stack, c)
			}
		}
	}
}

func TestChildBoundsMatchQuadrantForEveryAllocatedChild(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := 2000
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = rng.Float64() + 0.1
	}
	s := buildSystem(positions, masses)
	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)

	checked := 0
	walkInternal(a, root, func(_ arena.Index, node *arena.Node) {
		for q, c := range node.Child {
			if c == -1 {
				continue
			}
			child := a.At(c)
			xMin, xMax, yMin, yMax := childBounds(*node, q)
			assert.Equal(t, xMin, child.XMin)
			assert.Equal(t, xMax, child.XMax)
			assert.Equal(t, yMin, child.YMin)
			assert.Equal(t, yMax, child.YMax)

			// The reported quadrant for the child's own center of mass,
			// evaluated against the *parent's* midline, must select this
			// same slot q back.
			midX := 0.5 * (node.XMin + node.XMax)
			midY := 0.5 * (node.YMin + node.YMax)
			assert.Equal(t, q, quadrant(child.CMX, child.CMY, midX, midY))
			checked++
		}
	})
	assert.Greater(t, checked, 0)
}

func TestCenterOfMassConsistentAtInternalNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	n := 2000
	positions := make([][2]float64, n)
	masses := make([]float64, n)
	for i := range positions {
		positions[i] = [2]float64{rng.Float64(), rng.Float64()}
		masses[i] = rng.Float64() + 0.1
	}
	s := buildSystem(positions, masses)
	a := arena.New(arena.RequiredCapacityHint(n), arena.Abort)
	bounds := particle.Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}

	root, _, err := Build(a, s, bounds)
	require.NoError(t, err)

	checked := 0
	walkInternal(a, root, func(_ arena.Index, node *arena.Node) {
		var massSum, momentX, momentY float64
		for _, c := range node.Child {
			if c == -1 {
				continue
			}
			child := a.At(c)
			massSum += child.Mass
			momentX += child.Mass * child.CMX
			momentY += child.Mass * child.CMY
		}
		assert.InDelta(t, node.Mass, massSum, 1e-9)
		assert.InDelta(t, node.Mass*node.CMX, momentX, 1e-9)
		assert.InDelta(t, node.Mass*node.CMY, momentY, 1e-9)
		checked++
	})
	assert.Greater(t, checked, 0)
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{1000, 10000, 100000} {
		b.Run(fmt.Sprintf("Particles-%d", n), func(b *testing.B) {
			s, bounds := randomPositioned(n, 42)
			a := arena.New(arena.RequiredCapacityHint(n), arena.DoubleAndRestart)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				a.Reset()
				if _, _, err := Build(a, s, bounds); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
