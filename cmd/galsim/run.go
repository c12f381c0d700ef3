package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/arena"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/config"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/integrate"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/iofmt"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernel"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/kernelerr"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/morton"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/scheduler/kmeans"
)

type runOptions struct {
	args           []string
	movieOut       string
	resultOut      string
	metricsAddr    string
	omitBrightness bool
	fatalOutOfBox  bool
	schedulerMode  string
	cfg            config.Run
	logger         zerolog.Logger
}

var metrics = newKernelMetrics()

type kernelMetrics struct {
	stepSeconds    prometheus.Histogram
	forceSeconds   prometheus.Histogram
	arenaExhausted prometheus.Counter
}

func newKernelMetrics() *kernelMetrics {
	return &kernelMetrics{
		stepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "galsim_step_seconds",
			Help: "Wall time of one full velocity-Verlet step.",
		}),
		forceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "galsim_force_eval_seconds",
			Help: "Wall time of one parallel force-evaluation pass.",
		}),
		arenaExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "galsim_arena_exhausted_total",
			Help: "Number of times the tree arena ran out of capacity.",
		}),
	}
}

func (m *kernelMetrics) register() {
	prometheus.MustRegister(m.stepSeconds, m.forceSeconds, m.arenaExhausted)
}

func runSimulation(opts runOptions) error {
	n, err := strconv.Atoi(opts.args[0])
	if err != nil || n <= 0 {
		return kernelerr.New(kernelerr.ArgumentInvalid, "N must be a positive integer, got %q", opts.args[0])
	}
	inputFile := opts.args[1]
	nsteps, err := strconv.Atoi(opts.args[2])
	if err != nil || nsteps < 0 {
		return kernelerr.New(kernelerr.ArgumentInvalid, "nsteps must be a non-negative integer, got %q", opts.args[2])
	}
	dt, err := strconv.ParseFloat(opts.args[3], 64)
	if err != nil || dt <= 0 {
		return kernelerr.New(kernelerr.ArgumentInvalid, "dt must be positive, got %q", opts.args[3])
	}
	threads, err := strconv.Atoi(opts.args[4])
	if err != nil || threads < 1 {
		return kernelerr.New(kernelerr.ArgumentInvalid, "n_threads must be >= 1, got %q", opts.args[4])
	}
	theta, err := strconv.ParseFloat(opts.args[5], 64)
	if err != nil || theta <= 0 {
		return kernelerr.New(kernelerr.ArgumentInvalid, "theta must be positive, got %q", opts.args[5])
	}
	k, err := strconv.Atoi(opts.args[6])
	if err != nil {
		return kernelerr.New(kernelerr.ArgumentInvalid, "k must be an integer, got %q", opts.args[6])
	}

	if opts.metricsAddr != "" {
		metrics.register()
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(opts.metricsAddr, nil)
		}()
	}

	sys, err := iofmt.ReadSystem(inputFile, n)
	if err != nil {
		return err
	}

	policy := arena.Abort
	if opts.cfg.Simulation.ArenaGrowPolicy == "grow" {
		policy = arena.DoubleAndRestart
	}

	kern, err := kernel.New(n, theta, threads, policy, kernel.WithLogger(opts.logger))
	if err != nil {
		return err
	}
	kern.Margin = opts.cfg.Simulation.BoundsMargin
	if opts.metricsAddr != "" {
		kern.ForceEvalObserver = func(d time.Duration) { metrics.forceSeconds.Observe(d.Seconds()) }
	}

	var movie *iofmt.MovieWriter
	if opts.movieOut != "" {
		movie, err = iofmt.OpenMovieWriter(opts.movieOut)
		if err != nil {
			return err
		}
		defer movie.Close()
	}

	integrator := integrate.VelocityVerlet{Threads: threads}
	resortInterval := opts.cfg.Simulation.ResortInterval
	if resortInterval <= 0 {
		resortInterval = 10
	}

	var prevBounds particle.Bounds
	havePrevBounds := false

	for step := 0; step < nsteps; step++ {
		if havePrevBounds {
			// Catches particles that drifted out of the box computed
			// at the start of the previous step (the kernel computes
			// its own box on every call).
			if err := checkBounds(sys, prevBounds, opts); err != nil {
				return err
			}
		}

		bounds, err := sys.ComputeBounds(kern.Margin)
		if err != nil {
			return err
		}
		prevBounds, havePrevBounds = bounds, true

		if step%resortInterval == 0 {
			sys.Permute(morton.Sort(sys, bounds))
		}

		var order []int
		if opts.schedulerMode == "kmeans" {
			order = kmeansOrder(sys, k)
		}

		stepStart := time.Now()
		if err := integrator.Step(kern, sys, dt, order); err != nil {
			if opts.metricsAddr != "" {
				if kind, ok := kernelerr.KindOf(err); ok && kind == kernelerr.ArenaExhausted {
					metrics.arenaExhausted.Inc()
				}
			}
			return err
		}
		if opts.metricsAddr != "" {
			metrics.stepSeconds.Observe(time.Since(stepStart).Seconds())
		}

		if movie != nil {
			if err := movie.WriteFrame(sys); err != nil {
				return err
			}
		}
	}

	return iofmt.WriteResult(opts.resultOut, sys, iofmt.WriteResultOptions{OmitBrightness: opts.omitBrightness})
}

// checkBounds implements the ParticleOutOfRegion policy: fatal when
// fatalOutOfBox is set, otherwise demoted to a logged warning since
// this driver recomputes the box every step.
func checkBounds(sys *particle.System, bounds particle.Bounds, opts runOptions) error {
	for i := 0; i < sys.Len(); i++ {
		if !sys.InBounds(i, bounds) {
			if opts.fatalOutOfBox {
				return kernelerr.New(kernelerr.ParticleOutOfRegion, "particle %d left the bounding box", i)
			}
			opts.logger.Warn().Int("particle", i).Msg("particle outside recomputed bounding box")
		}
	}
	return nil
}

// kmeansOrder flattens the k-means clustering into a single
// particle-index order, grouping particles by cluster so the dynamic
// scheduler's contiguous chunks mostly cover one cluster; a chunk can
// still straddle the boundary between two clusters.
// Kept as an alternative to the default Morton-ordered scheduler; not
// recommended at scale since it costs an O(N*k) clustering pass every
// time it is invoked.
func kmeansOrder(sys *particle.System, k int) []int {
	clusters := kmeans.Run(sys.PosX, sys.PosY, k)
	order := make([]int, 0, sys.Len())
	for _, members := range clusters.Members {
		order = append(order, members...)
	}
	return order
}
