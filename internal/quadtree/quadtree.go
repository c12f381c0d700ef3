// Package quadtree builds the Barnes–Hut spatial index over a
// particle.System into an arena.Arena and maintains center-of-mass
// aggregates as it does so.
//
// Quadrant encoding is fixed for the lifetime of a tree:
// q = ((py > mid_y) << 1) | (px > mid_x), i.e. bit 0 is "east of the
// midline", bit 1 is "north of the midline". The comparison is strict
// ">" with no epsilon widening, applied identically wherever a
// quadrant is computed (new-particle placement and the existing-leaf
// eviction during a split); a particle exactly on a midline therefore
// falls to the bit-clear (west/south) side on that axis, since it does
// not satisfy the strict inequality.
package quadtree

import (
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

// coincidentEps is the positional tolerance under which two particles
// are treated as a single merged cluster rather than split into
// separate leaves.
const coincidentEps = 1e-9

// minSideLength is the node side length below which any further
// split is abandoned and particles are merged instead, bounding
// recursion depth on pathological inputs.
const minSideLength = 1e-12

// Stats records bookkeeping from one Build call, reported in the
// kernel's debug log after a successful build and used by tests.
type Stats struct {
	NodesAllocated int
	MaxDepth       int
	MergedPairs    int
}

// quadrant computes the child slot index for (px,py) within a node
// whose midline is (midX, midY). Strict "px > midX" / "py > midY" on
// both axes, no epsilon widening.
func quadrant(px, py, midX, midY float64) int {
	q := 0
	if py > midY {
		q |= 2
	}
	if px > midX {
		q |= 1
	}
	return q
}

// childBounds derives a child's bounding box from its parent's bounds
// and its quadrant index, matching the bit layout quadrant() uses:
// bit0 (1) = east half, bit1 (2) = north half.
func childBounds(parent arena.Node, q int) (xMin, xMax, yMin, yMax float64) {
	midX := 0.5 * (parent.XMin + parent.XMax)
	midY := 0.5 * (parent.YMin + parent.YMax)
	if q&1 != 0 {
		xMin, xMax = midX, parent.XMax
	} else {
		xMin, xMax = parent.XMin, midX
	}
	if q&2 != 0 {
		yMin, yMax = midY, parent.YMax
	} else {
		yMin, yMax = parent.YMin, midY
	}
	return
}

// Build constructs a fresh tree in a (already Reset) arena over the
// particles in s, rooted at bounds, and returns the root index. On
// ArenaExhausted under arena.Abort, the error is returned unwrapped
// so the caller can decide whether to grow and retry. On
// arena.ErrNeedsRestart under arena.DoubleAndRestart, Build itself
// retries internally against the grown arena until it either
// succeeds or something else goes wrong.
func Build(a *arena.Arena, s *particle.System, bounds particle.Bounds) (arena.Index, Stats, error) {
	for {
		root, stats, err := buildOnce(a, s, bounds)
		if err == arena.ErrNeedsRestart {
			a.Reset()
			continue
		}
		return root, stats, err
	}
}

func buildOnce(a *arena.Arena, s *particle.System, bounds particle.Bounds) (arena.Index, Stats, error) {
	var stats Stats

	root, err := a.Alloc()
	if err != nil {
		return 0, stats, err
	}
	stats.NodesAllocated++
	rn := a.At(root)
	rn.XMin, rn.XMax, rn.YMin, rn.YMax = bounds.XMin, bounds.XMax, bounds.YMin, bounds.YMax
	rn.PID = -1
	rn.Mass, rn.CMX, rn.CMY = 0, 0, 0

	n := s.Len()
	for i := 0; i < n; i++ {
		depth, err := insert(a, root, s.PosX[i], s.PosY[i], s.Mass[i], int32(i), &stats)
		if err != nil {
			return 0, stats, err
		}
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
	}
	return root, stats, nil
}

// insert descends from node idx placing particle (px,py,mass,pid),
// using an explicit loop rather than recursion so that N ~ 1e6 cannot
// overflow the host goroutine's stack. It returns the depth at which
// the particle was finally placed.
func insert(a *arena.Arena, idx arena.Index, px, py, mass float64, pid int32, stats *Stats) (int, error) {
	depth := 0
	for {
		node := a.At(idx)

		if node.Empty() {
			node.PID = pid
			node.Mass = mass
			node.CMX, node.CMY = px, py
			return depth, nil
		}

		if node.Leaf() {
			side := node.XMax - node.XMin
			coincident := side < minSideLength ||
				(abs(px-node.CMX) < coincidentEps && abs(py-node.CMY) < coincidentEps)
			if coincident {
				newMass := node.Mass + mass
				node.CMX = (mass*px + node.Mass*node.CMX) / newMass
				node.CMY = (mass*py + node.Mass*node.CMY) / newMass
				node.Mass = newMass
				stats.MergedPairs++
				return depth, nil
			}

			// Split: evict the existing particle into a child, turn
			// this node internal, then fall through to place the new
			// particle below.
			midX := 0.5 * (node.XMin + node.XMax)
			midY := 0.5 * (node.YMin + node.YMax)
			existingQ := quadrant(node.CMX, node.CMY, midX, midY)

			childIdx, err := a.Alloc()
			if err != nil {
				return depth, err
			}
			stats.NodesAllocated++
			xMin, xMax, yMin, yMax := childBounds(*node, existingQ)
			child := a.At(childIdx)
			child.XMin, child.XMax, child.YMin, child.YMax = xMin, xMax, yMin, yMax
			child.PID = node.PID
			child.Mass = node.Mass
			child.CMX, child.CMY = node.CMX, node.CMY

			node = a.At(idx)
			node.Child[existingQ] = childIdx
			node.PID = -1
			// node.Mass/CM stay as-is; they already equal the single
			// particle that is now one level down, and the
			// aggregate-update step below folds in the new particle.
		}

		node = a.At(idx)
		midX := 0.5 * (node.XMin + node.XMax)
		midY := 0.5 * (node.YMin + node.YMax)
		q := quadrant(px, py, midX, midY)

		if node.Child[q] == -1 {
			childIdx, err := a.Alloc()
			if err != nil {
				return depth, err
			}
			stats.NodesAllocated++
			xMin, xMax, yMin, yMax := childBounds(*node, q)
			child := a.At(childIdx)
			child.XMin, child.XMax, child.YMin, child.YMax = xMin, xMax, yMin, yMax
			child.PID = pid
			child.Mass = mass
			child.CMX, child.CMY = px, py

			node = a.At(idx)
			node.Child[q] = childIdx
			updateAggregate(node, mass, px, py)
			return depth + 1, nil
		}

		updateAggregate(node, mass, px, py)
		idx = node.Child[q]
		depth++
	}
}

// updateAggregate folds a newly-placed particle's mass into node's
// running mass/center-of-mass using the weighted-average form (not
// accumulate-then-divide), because aggregate CM values are read
// during insertion when a leaf below gets split.
func updateAggregate(node *arena.Node, mass, px, py float64) {
	newMass := node.Mass + mass
	if newMass == 0 {
		return
	}
	node.CMX = (node.Mass*node.CMX + mass*px) / newMass
	node.CMY = (node.Mass*node.CMY + mass*py) / newMass
	node.Mass = newMass
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// VerifyLeafUniqueness walks the tree and returns an error if any two
// leaves share a PID. Intended for tests, not the hot path.
func VerifyLeafUniqueness(a *arena.Arena, root arena.Index) error {
	seen := make(map[int32]bool)
	stack := []arena.Index{root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := a.At(idx)
		if n.Leaf() {
			if seen[n.PID] {
				return kernelerr.New(kernelerr.ArgumentInvalid, "duplicate leaf pid %d", n.PID)
			}
			seen[n.PID] = true
			continue
		}
		for _, c := range n.Child {
			if c != -1 {
				stack = append(stack, c)
			}
		}
	}
	return nil
}
