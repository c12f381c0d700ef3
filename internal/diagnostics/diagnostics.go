// Package diagnostics collects energy/momentum/mass bookkeeping for
// simulation accuracy and regression checks: two-body orbit energy
// drift, multi-body force symmetry, and approximate-vs-exact force
// accuracy percentiles. It uses gonum for the mass and net-force sums
// and the percentile statistics; the energy sums are plain loops.
package diagnostics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

// TotalMass sums s.Mass with gonum/floats, used to check mass
// conservation against a tree's root node mass.
func TotalMass(s *particle.System) float64 {
	return floats.Sum(s.Mass)
}

// SystemEnergy returns the total (kinetic + potential) energy of s
// for the caller-supplied gravitational constant g (the force kernel
// uses G = 100/N), for detecting energy drift across an integration
// run. The potential is the unsoftened -g*m_i*m_j/r pair sum;
// coincident pairs (r == 0) are skipped.
func SystemEnergy(s *particle.System, g float64) float64 {
	n := s.Len()

	speedsSq := make([]float64, n)
	for i := 0; i < n; i++ {
		speedsSq[i] = s.VelX[i]*s.VelX[i] + s.VelY[i]*s.VelY[i]
	}
	kinetic := 0.0
	for i := 0; i < n; i++ {
		kinetic += 0.5 * s.Mass[i] * speedsSq[i]
	}

	potential := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := s.PosX[i] - s.PosX[j]
			dy := s.PosY[i] - s.PosY[j]
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist > 0 {
				potential -= g * s.Mass[i] * s.Mass[j] / dist
			}
		}
	}

	return kinetic + potential
}

// NetForce sums fx/fy across all particles, used to check that
// Newton's third law holds exactly at theta=0 and approximately for
// theta>0.
func NetForce(s *particle.System) (fx, fy float64) {
	return floats.Sum(s.FX), floats.Sum(s.FY)
}

// RelativeErrorStats compares an approximate force field against a
// reference (e.g. theta=0.5 against a direct-sum reference) and
// returns the median and 99th-percentile relative error across all
// particles.
func RelativeErrorStats(approxFX, approxFY, refFX, refFY []float64) (median, p99 float64) {
	n := len(approxFX)
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		refMag := math.Hypot(refFX[i], refFY[i])
		dx := approxFX[i] - refFX[i]
		dy := approxFY[i] - refFY[i]
		errMag := math.Hypot(dx, dy)
		if refMag > 0 {
			errs[i] = errMag / refMag
		}
	}
	sorted := append([]float64(nil), errs...)
	sort.Float64s(sorted)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return median, p99
}
