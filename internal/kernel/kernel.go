// Package kernel exposes the one operation the core contributes to a
// simulation: given N particles' positions and masses, compute the
// gravitational force on every particle using Barnes–Hut. Everything
// else — integration, I/O, CLI, logging cadence — is the driver's
// job; this package's Step is a pure per-call contract (modulo the
// arena it mutates).
package kernel

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/quadtree"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/scheduler"
)

// Kernel is the explicit, per-simulation-instance handle holding the
// arena and the scratch order buffer. There is no process-wide
// singleton: the driver owns one Kernel per simulation and passes it
// to every Step call, rather than relying on file-scope "last seen N"
// state.
type Kernel struct {
	arena    *arena.Arena
	order    []int
	Logger   zerolog.Logger
	Theta    float64
	Threads  int
	Margin   float64 // root bounding-box safety margin, fraction of each side

	// ForceEvalObserver, if set, is called with the wall time of each
	// parallel force-evaluation pass — a hook for the driver's
	// Prometheus histogram, kept out of this package so the kernel
	// itself has no metrics-library dependency.
	ForceEvalObserver func(time.Duration)
}

// Option configures a new Kernel.
type Option func(*Kernel)

// WithLogger attaches a structured logger used for arena-exhaustion
// and diagnostic events.
func WithLogger(l zerolog.Logger) Option { return func(k *Kernel) { k.Logger = l } }

// New constructs a Kernel sized for n particles, using policy for
// arena growth behavior on exhaustion.
func New(n int, theta float64, threads int, policy arena.GrowthPolicy, opts ...Option) (*Kernel, error) {
	if n <= 0 {
		return nil, kernelerr.New(kernelerr.ArgumentInvalid, "N must be positive, got %d", n)
	}
	if theta <= 0 {
		return nil, kernelerr.New(kernelerr.ArgumentInvalid, "theta must be positive, got %g", theta)
	}
	k := &Kernel{
		arena:   arena.New(arena.RequiredCapacityHint(n), policy),
		order:   scheduler.IdentityOrder(n),
		Logger:  zerolog.Nop(),
		Theta:   theta,
		Threads: threads,
		Margin:  0.05,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.Threads < 1 {
		k.Threads = 1
	}
	return k, nil
}

// Step overwrites s.FX/s.FY with the force on every particle, given
// the current positions and masses. order selects which particle
// index sequence the parallel scheduler walks; pass nil to use
// natural array order (the k==1 / single-cluster mode), or a
// Morton-sorted permutation from internal/morton.Sort for the
// recommended k=0 configuration.
func (k *Kernel) Step(s *particle.System, order []int) error {
	if err := s.CheckFinite(); err != nil {
		return err
	}

	k.arena.Reset()

	bounds, err := s.ComputeBounds(k.Margin)
	if err != nil {
		return err
	}

	root, stats, err := quadtree.Build(k.arena, s, bounds)
	if err != nil {
		if kind, ok := kernelerr.KindOf(err); ok && kind == kernelerr.ArenaExhausted {
			k.Logger.Error().
				Int("capacity", k.arena.Capacity()).
				Msg("arena exhausted during tree build")
		}
		return err
	}
	k.Logger.Debug().
		Int("nodes_allocated", stats.NodesAllocated).
		Int("max_depth", stats.MaxDepth).
		Int("merged_pairs", stats.MergedPairs).
		Msg("tree built")

	if order == nil {
		order = k.order
	}

	start := time.Now()
	err = scheduler.RunMorton(k.arena, root, s, order, k.Theta, k.Threads)
	if k.ForceEvalObserver != nil {
		k.ForceEvalObserver(time.Since(start))
	}
	return err
}

// ArenaCapacity reports the current arena capacity, for diagnostics.
func (k *Kernel) ArenaCapacity() int { return k.arena.Capacity() }
