// Package integrate implements the kick-drift-kick velocity-Verlet
// step the force kernel is designed to be called from, plus an
// optional RK4 variant kept for driver code that wants a non-
// symplectic higher-order integrator at the cost of the symplectic
// energy-conservation property the two-stage scheme gives for free.
//
// The half-kick/drift passes have no spatial locality requirement —
// every particle update is an independent, uniform-cost operation —
// so they are parallelized with a flat data-parallel map rather than
// the Morton-chunked work-stealing scheduler the force kernel uses.
package integrate

import (
	"github.com/dgravesa/go-parallel/parallel"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernel"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

// Stepper advances a particle.System by one step, calling the kernel
// exactly as many times as its integration scheme requires.
type Stepper interface {
	Step(k *kernel.Kernel, s *particle.System, dt float64, order []int) error
}

// VelocityVerlet is the two-stage (kick-drift-kick) integrator the
// force kernel is designed around, calling it exactly once per step:
//
//  1. v += (dt/2) * a_prev
//  2. x += dt * v
//  3. a_new = force_kernel(x, m) / m
//  4. v += (dt/2) * a_new
//  5. a_prev = a_new
type VelocityVerlet struct{ Threads int }

func (vv VelocityVerlet) threads() int {
	if vv.Threads < 1 {
		return 1
	}
	return vv.Threads
}

// Step performs one full velocity-Verlet step, calling k.Step exactly
// once (positions are only consistent once per call, at the instant
// the force kernel is invoked in step 3).
func (vv VelocityVerlet) Step(k *kernel.Kernel, s *particle.System, dt float64, order []int) error {
	n := s.Len()
	half := dt * 0.5

	parallel.WithNumGoroutines(vv.threads()).For(n, func(i, _ int) {
		s.VelX[i] += half * s.AccX[i]
		s.VelY[i] += half * s.AccY[i]
		s.PosX[i] += dt * s.VelX[i]
		s.PosY[i] += dt * s.VelY[i]
	})

	if err := k.Step(s, order); err != nil {
		return err
	}

	parallel.WithNumGoroutines(vv.threads()).For(n, func(i, _ int) {
		invM := 1.0 / s.Mass[i]
		newAccX := s.FX[i] * invM
		newAccY := s.FY[i] * invM
		s.VelX[i] += half * newAccX
		s.VelY[i] += half * newAccY
		s.AccX[i] = newAccX
		s.AccY[i] = newAccY
	})

	return nil
}

// RK4 is a fourth-order Runge-Kutta alternative. It is not symplectic:
// long integrations will show secular energy drift that
// velocity-Verlet does not.
type RK4 struct{ Threads int }

func (r RK4) threads() int {
	if r.Threads < 1 {
		return 1
	}
	return r.Threads
}

// Step performs one RK4 step, calling k.Step five times: once per
// stage, since each stage needs the force at a different intermediate
// position, and once more at the end to refresh the cached
// acceleration at the advanced positions.
func (r RK4) Step(k *kernel.Kernel, s *particle.System, dt float64, order []int) error {
	n := s.Len()
	threads := r.threads()

	origPX := append([]float64(nil), s.PosX...)
	origPY := append([]float64(nil), s.PosY...)
	origVX := append([]float64(nil), s.VelX...)
	origVY := append([]float64(nil), s.VelY...)

	type stage struct{ kvx, kvy, kpx, kpy []float64 }
	newStage := func() stage {
		return stage{make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)}
	}

	accel := func() error {
		if err := k.Step(s, order); err != nil {
			return err
		}
		return nil
	}

	evalStage := func(dtFrac float64, px, py, vx, vy []float64) (stage, error) {
		copy(s.PosX, px)
		copy(s.PosY, py)
		if err := accel(); err != nil {
			return stage{}, err
		}
		st := newStage()
		parallel.WithNumGoroutines(threads).For(n, func(i, _ int) {
			invM := 1.0 / s.Mass[i]
			st.kvx[i] = s.FX[i] * invM
			st.kvy[i] = s.FY[i] * invM
			st.kpx[i] = vx[i]
			st.kpy[i] = vy[i]
		})
		_ = dtFrac
		return st, nil
	}

	k1, err := evalStage(0, origPX, origPY, origVX, origVY)
	if err != nil {
		return err
	}

	mid := func(base, k []float64, frac float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = base[i] + frac*dt*k[i]
		}
		return out
	}

	px2 := mid(origPX, k1.kpx, 0.5)
	py2 := mid(origPY, k1.kpy, 0.5)
	vx2 := mid(origVX, k1.kvx, 0.5)
	vy2 := mid(origVY, k1.kvy, 0.5)
	k2, err := evalStage(0.5, px2, py2, vx2, vy2)
	if err != nil {
		return err
	}

	px3 := mid(origPX, k2.kpx, 0.5)
	py3 := mid(origPY, k2.kpy, 0.5)
	vx3 := mid(origVX, k2.kvx, 0.5)
	vy3 := mid(origVY, k2.kvy, 0.5)
	k3, err := evalStage(0.5, px3, py3, vx3, vy3)
	if err != nil {
		return err
	}

	px4 := mid(origPX, k3.kpx, 1.0)
	py4 := mid(origPY, k3.kpy, 1.0)
	vx4 := mid(origVX, k3.kvx, 1.0)
	vy4 := mid(origVY, k3.kvy, 1.0)
	k4, err := evalStage(1.0, px4, py4, vx4, vy4)
	if err != nil {
		return err
	}

	parallel.WithNumGoroutines(threads).For(n, func(i, _ int) {
		s.PosX[i] = origPX[i] + dt/6.0*(k1.kpx[i]+2*k2.kpx[i]+2*k3.kpx[i]+k4.kpx[i])
		s.PosY[i] = origPY[i] + dt/6.0*(k1.kpy[i]+2*k2.kpy[i]+2*k3.kpy[i]+k4.kpy[i])
		s.VelX[i] = origVX[i] + dt/6.0*(k1.kvx[i]+2*k2.kvx[i]+2*k3.kvx[i]+k4.kvx[i])
		s.VelY[i] = origVY[i] + dt/6.0*(k1.kvy[i]+2*k2.kvy[i]+2*k3.kvy[i]+k4.kvy[i])
	})

	// Leave positions at the final, fully-advanced state and refresh
	// the cached acceleration for any caller that inspects it.
	if err := accel(); err != nil {
		return err
	}
	parallel.WithNumGoroutines(threads).For(n, func(i, _ int) {
		invM := 1.0 / s.Mass[i]
		s.AccX[i] = s.FX[i] * invM
		s.AccY[i] = s.FY[i] * invM
	})

	return nil
}
