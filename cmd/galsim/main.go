// Command galsim is the reference driver for the Barnes–Hut force
// kernel: it owns CLI parsing, particle file I/O, movie-frame
// dumping, the integration loop, and logging — none of which the
// core force kernel itself needs to know about.
//
// Usage:
//
//	galsim run N input_file nsteps dt n_threads theta k [flags]
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "galsim",
		Short: "2-D Barnes-Hut N-body gravitational simulator",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		movieOut       string
		resultOut      string
		metricsAddr    string
		configPath     string
		omitBrightness bool
		fatalOutOfBox  bool
		schedulerMode  string
		logLevel       string
	)

	cmd := &cobra.Command{
		Use:   "run N input_file nsteps dt n_threads theta k",
		Short: "Run a simulation from a particle file",
		Args:  cobra.ExactArgs(7),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

			cfg := config.Defaults()
			if configPath != "" {
				overlay, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = config.Merge(cfg, *overlay)
			}

			opts := runOptions{
				args:           args,
				movieOut:       movieOut,
				resultOut:      resultOut,
				metricsAddr:    metricsAddr,
				omitBrightness: omitBrightness,
				fatalOutOfBox:  fatalOutOfBox,
				schedulerMode:  schedulerMode,
				cfg:            cfg,
				logger:         logger,
			}
			return runSimulation(opts)
		},
	}

	cmd.Flags().StringVar(&movieOut, "movie", "", "optional movie.gal frame-dump path")
	cmd.Flags().StringVar(&resultOut, "out", "result.gal", "result file path")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&configPath, "config", "", "optional INI run-parameter overlay")
	cmd.Flags().BoolVar(&omitBrightness, "omit-brightness", false, "omit brightness field from the result file")
	cmd.Flags().BoolVar(&fatalOutOfBox, "fatal-out-of-region", false, "treat ParticleOutOfRegion as fatal instead of recomputing bounds")
	cmd.Flags().StringVar(&schedulerMode, "scheduler", "morton", "force-evaluation scheduler: morton (default) or kmeans")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "zerolog level: debug, info, warn, error")

	return cmd
}
