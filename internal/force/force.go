// Package force implements the Barnes–Hut multipole acceptance
// traversal and the pairwise gravitational kernel.
//
// Sign convention: the per-interaction displacement is
// r = pos_i - node.cm, and
//
//	F_i += -G * m_i * node.mass * r / (|r|^2 + eps^2)^{3/2}
//
// so positive contributions pull particle i toward the node. This is
// the only sign convention implemented.
package force

import (
	"math"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

// Softening is the constant added under the square root of squared
// distance to avoid a singularity when two particles nearly coincide.
const Softening = 1e-3

// GravitationalConstant returns the G used to non-dimensionalize the
// simulation, which must be preserved bit-for-bit: G = 100 / N. This
// scaling is part of the external contract — the reference datasets
// were normalized against it.
func GravitationalConstant(n int) float64 {
	return 100.0 / float64(n)
}

// maxStackDepth bounds the explicit traversal stack: a small constant
// times log4(N), generously sized for N up to 1e6.
const maxStackDepth = 256

// ErrStackOverflow is a defensive sentinel; it should be unreachable
// given maxStackDepth's margin over any quadtree actually built by
// internal/quadtree, and tests assert it never fires.
type ErrStackOverflow struct{}

func (ErrStackOverflow) Error() string { return "force: traversal stack exceeded bound" }

// Evaluator holds a reusable traversal stack so repeated calls to
// ForParticle across many particles in one goroutine don't
// reallocate it.
type Evaluator struct {
	stack    [maxStackDepth]arena.Index
	maxDepth int // high-water mark of stack usage, for tests
}

// NewEvaluator constructs an Evaluator with its stack pre-sized.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// MaxStackDepthSeen returns the high-water mark of stack occupancy
// across all ForParticle calls made with this Evaluator, for bounding
// traversal depth in tests.
func (e *Evaluator) MaxStackDepthSeen() int { return e.maxDepth }

// ForParticle computes the total force on particle i exerted by the
// tree rooted at root, using squared-distance comparisons throughout
// so no sqrt is needed on the acceptance-test hot path; sqrt is used
// only inside the direct pairwise kernel itself.
func (e *Evaluator) ForParticle(a *arena.Arena, root arena.Index, s *particle.System, i int, theta float64) (fx, fy float64, err error) {
	px, py, mi := s.PosX[i], s.PosY[i], s.Mass[i]
	g := GravitationalConstant(s.Len())
	thetaSq := theta * theta

	sp := 0
	e.stack[sp] = root
	sp++

	for sp > 0 {
		if sp > e.maxDepth {
			e.maxDepth = sp
		}

		sp--
		idx := e.stack[sp]
		node := a.At(idx)

		if node.PID == int32(i) {
			continue // self-interaction skip
		}

		if node.Leaf() {
			fx, fy = accumulate(fx, fy, px, py, mi, node.Mass, node.CMX, node.CMY, g)
			continue
		}

		sideSq := (node.XMax - node.XMin) * (node.XMax - node.XMin)
		dx := node.CMX - px
		dy := node.CMY - py
		distSq := dx*dx + dy*dy

		if sideSq < thetaSq*distSq {
			fx, fy = accumulate(fx, fy, px, py, mi, node.Mass, node.CMX, node.CMY, g)
			continue
		}

		// Too close: recurse into children. Push in reverse index
		// order so traversal visits quadrant 0 first — an
		// implementation-defined but deterministic order, which is
		// required so floating-point summation order (and hence bit-
		// for-bit output) is repeatable across runs.
		for q := 3; q >= 0; q-- {
			c := node.Child[q]
			if c != -1 {
				if sp >= len(e.stack) {
					return fx, fy, ErrStackOverflow{}
				}
				e.stack[sp] = c
				sp++
			}
		}
	}

	return fx, fy, nil
}

// accumulate adds the force contribution of a mass mn at (cmx,cmy) on
// a particle of mass mi at (px,py) to the running (fx,fy).
func accumulate(fx, fy, px, py, mi, mn, cmx, cmy, g float64) (float64, float64) {
	rx := px - cmx
	ry := py - cmy
	distSq := rx*rx + ry*ry + Softening*Softening
	invDist := 1.0 / math.Sqrt(distSq)
	invDist3 := invDist * invDist * invDist
	factor := -g * mi * mn * invDist3
	return fx + factor*rx, fy + factor*ry
}

// DirectSum computes the exact O(N^2) force on particle i, used as
// the theta=0 and brute-force reference in tests.
func DirectSum(s *particle.System, i int) (fx, fy float64) {
	g := GravitationalConstant(s.Len())
	px, py, mi := s.PosX[i], s.PosY[i], s.Mass[i]
	for j := 0; j < s.Len(); j++ {
		if j == i {
			continue
		}
		fx, fy = accumulate(fx, fy, px, py, mi, s.Mass[j], s.PosX[j], s.PosY[j], g)
	}
	return fx, fy
}
