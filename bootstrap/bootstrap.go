// Package bootstrap loads a compiled artifact.ProgramArtifact into a
// fresh environment and spawns its entry organism. Grounded on
// core/core.go's NewCore (the teacher's "load a Program into a fresh
// Core" constructor), generalized from one core's linear instruction
// array to writing a sparse N-dimensional artifact into a shared
// env.Environment and handing the result to a sim.Scheduler, per
// spec.md 4.6.
package bootstrap

import (
	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/sim"
)

// Config is the small set of knobs bootstrap needs beyond the
// artifact itself.
type Config struct {
	Origin        env.Coord // where the artifact's own (0,...,0) maps to in the environment
	EntryEnergy   int64
	MaxCallDepth  int
}

// Load writes every cell art places (machine code and initial world
// objects) into e, offset by cfg.Origin, and spawns the entry organism
// on s at the origin with IP=origin, DV=(1,0,...), per spec.md 4.6's
// "the entry organism starts at the artifact's origin, executing its
// first instruction."
func Load(art *artifact.ProgramArtifact, e *env.Environment, s *sim.Scheduler, cfg Config) *organismHandle {
	dims := e.Dimensions()
	for _, cv := range art.MachineCodeLayout {
		writeCell(e, cv, cfg.Origin, dims)
	}
	for _, cv := range art.InitialWorldObjects {
		writeCell(e, cv, cfg.Origin, dims)
	}

	entry := cfg.Origin.Clone()
	o := s.Spawn(entry, cfg.EntryEnergy, 0, false, cfg.MaxCallDepth)
	return &organismHandle{id: o.ID()}
}

// organismHandle is a small read-only handle to the spawned entry
// organism's id, returned so callers can look it up in the
// scheduler's population without bootstrap needing to export
// *organism.Organism construction details.
type organismHandle struct {
	id int64
}

// ID reports the entry organism's assigned id.
func (h *organismHandle) ID() int64 { return h.id }

func writeCell(e *env.Environment, cv artifact.CellValue, origin env.Coord, dims int) {
	c := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		if i < len(origin) {
			c[i] = origin[i]
		}
		if i < len(cv.Coord) {
			c[i] += cv.Coord[i]
		}
	}
	e.Set(c, molecule.Decode(cv.Value))
}
