// Package particle holds the per-step particle state as a structure
// of arrays: the force kernel only ever touches positions and masses,
// and the Morton reordering layer must permute several parallel
// arrays in lockstep, so keeping one array per field (rather than one
// slice of structs) is both what the hot path wants and what the
// permutation primitive wants.
package particle

import (
	"math"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"
)

// System is the SoA particle state for one simulation. All slices
// have identical length N and are permuted together by any
// reordering; a particle's identity is its current index and is not
// preserved across a reorder.
type System struct {
	PosX, PosY []float64
	Mass       []float64
	VelX, VelY []float64

	// AccX, AccY cache the previous step's acceleration for
	// velocity-Verlet's half-kick recurrence.
	AccX, AccY []float64

	// Brightness is owned by rendering tools; the core never reads
	// its values but must carry it through any reordering so the
	// result file can write it back out unchanged.
	Brightness []float64

	// FX, FY are written by the force kernel and consumed by the
	// integrator.
	FX, FY []float64
}

// New allocates a System for n particles with all arrays zeroed.
func New(n int) *System {
	return &System{
		PosX: make([]float64, n), PosY: make([]float64, n),
		Mass:       make([]float64, n),
		VelX:       make([]float64, n), VelY: make([]float64, n),
		AccX:       make([]float64, n), AccY: make([]float64, n),
		Brightness: make([]float64, n),
		FX:         make([]float64, n), FY: make([]float64, n),
	}
}

// Len returns N, the particle count.
func (s *System) Len() int { return len(s.PosX) }

// Bounds is an axis-aligned bounding box in simulation space.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// Width returns the box's horizontal extent.
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height returns the box's vertical extent.
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

// ComputeBounds finds the tightest box enclosing all particles and
// pads it by marginFrac on each side, giving the tree's root node
// enough slack to absorb the next step's drift before it needs
// rebuilding.
func (s *System) ComputeBounds(marginFrac float64) (Bounds, error) {
	n := s.Len()
	if n == 0 {
		return Bounds{}, kernelerr.New(kernelerr.ArgumentInvalid, "cannot compute bounds for 0 particles")
	}
	b := Bounds{XMin: s.PosX[0], XMax: s.PosX[0], YMin: s.PosY[0], YMax: s.PosY[0]}
	for i := 1; i < n; i++ {
		x, y := s.PosX[i], s.PosY[i]
		if x < b.XMin {
			b.XMin = x
		}
		if x > b.XMax {
			b.XMax = x
		}
		if y < b.YMin {
			b.YMin = y
		}
		if y > b.YMax {
			b.YMax = y
		}
	}
	dx := b.XMax - b.XMin
	dy := b.YMax - b.YMin
	if dx < 1e-6 {
		dx = 1e-6
	}
	if dy < 1e-6 {
		dy = 1e-6
	}
	b.XMin -= dx * marginFrac
	b.XMax += dx * marginFrac
	b.YMin -= dy * marginFrac
	b.YMax += dy * marginFrac
	return b, nil
}

// InBounds reports whether particle i's position lies within b.
func (s *System) InBounds(i int, b Bounds) bool {
	x, y := s.PosX[i], s.PosY[i]
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// CheckFinite returns kernelerr.NonFinite if any position or mass is
// NaN or Inf. Every step runs this check first so a corrupted input
// fails fast instead of propagating NaN through the tree build.
func (s *System) CheckFinite() error {
	isFinite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for i := 0; i < s.Len(); i++ {
		if !isFinite(s.PosX[i]) || !isFinite(s.PosY[i]) || !isFinite(s.Mass[i]) {
			return kernelerr.New(kernelerr.NonFinite, "non-finite state at particle %d", i)
		}
	}
	return nil
}

// Permute reorders every parallel array in place according to perm,
// where perm[i] is the *source* index that should land at destination
// i (the convention produced by internal/morton.Sort). All per-particle
// arrays that outlive one step — positions, masses, velocities,
// brightness, and the cached acceleration — are permuted; fx/fy are
// not, since they are fully overwritten by the next force-kernel call
// before being read.
func (s *System) Permute(perm []int) {
	n := s.Len()
	scratch := make([]float64, n)
	apply := func(arr []float64) {
		for i, src := range perm {
			scratch[i] = arr[src]
		}
		copy(arr, scratch)
	}
	apply(s.PosX)
	apply(s.PosY)
	apply(s.Mass)
	apply(s.VelX)
	apply(s.VelY)
	apply(s.AccX)
	apply(s.AccY)
	apply(s.Brightness)
}
