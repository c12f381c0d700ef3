// Package config reads an optional INI-style run-parameter overlay,
// which the driver merges onto Defaults(). The driver reads
// ResortInterval, BoundsMargin and ArenaGrowPolicy from the result;
// Theta, ChunkSize and ArenaCapFactor are parsed and merged but the
// driver does not use them (theta comes from the CLI argument).
package config

import "gopkg.in/gcfg.v1"

// Run holds the overlay-able simulation parameters. Zero values mean
// "not set in the config file"; the driver fills gaps from Defaults()
// via Merge.
type Run struct {
	Simulation struct {
		Theta           float64
		ChunkSize       int
		ResortInterval  int
		ArenaCapFactor  int
		BoundsMargin    float64
		ArenaGrowPolicy string // "abort" or "grow"
	}
}

// Load parses an INI file at path into a Run. A missing file is not
// an error at this layer — callers that require a config file check
// for that themselves; this keeps config optional by default.
func Load(path string) (*Run, error) {
	var r Run
	if err := gcfg.ReadFileInto(&r, path); err != nil {
		return nil, err
	}
	return &r, nil
}

// Defaults returns the conforming default configuration: Morton +
// dynamic 64-chunks, theta=0.5, resort every 10 steps, 10x arena
// capacity factor, 5% bounds margin, abort-on-exhaustion.
func Defaults() Run {
	var r Run
	r.Simulation.Theta = 0.5
	r.Simulation.ChunkSize = 64
	r.Simulation.ResortInterval = 10
	r.Simulation.ArenaCapFactor = 10
	r.Simulation.BoundsMargin = 0.05
	r.Simulation.ArenaGrowPolicy = "abort"
	return r
}

// Merge overlays non-zero fields of override onto base and returns
// the result, so an overlay (the driver passes a loaded config file)
// wins over base (the driver passes Defaults()) wherever the overlay
// sets a field.
func Merge(base, override Run) Run {
	out := base
	if override.Simulation.Theta != 0 {
		out.Simulation.Theta = override.Simulation.Theta
	}
	if override.Simulation.ChunkSize != 0 {
		out.Simulation.ChunkSize = override.Simulation.ChunkSize
	}
	if override.Simulation.ResortInterval != 0 {
		out.Simulation.ResortInterval = override.Simulation.ResortInterval
	}
	if override.Simulation.ArenaCapFactor != 0 {
		out.Simulation.ArenaCapFactor = override.Simulation.ArenaCapFactor
	}
	if override.Simulation.BoundsMargin != 0 {
		out.Simulation.BoundsMargin = override.Simulation.BoundsMargin
	}
	if override.Simulation.ArenaGrowPolicy != "" {
		out.Simulation.ArenaGrowPolicy = override.Simulation.ArenaGrowPolicy
	}
	return out
}
