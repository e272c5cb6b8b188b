// Package sim drives the shared-environment tick loop: every
// simulation tick, each live organism gets one FETCH..ADVANCE pass,
// the resulting world writes are reconciled against each other, and
// the survivors are applied to the environment. Generalizes the
// teacher's Core.Tick single-thread loop (core/core.go) from one
// independently-clocked unit to many organisms arbitrating over one
// shared grid, using the same akita TickingComponent backbone the
// teacher's own components (api/builder.go, cgra/cgra.go) embed.
package sim

import (
	"log/slog"
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/organism"
)

// Scheduler is the C4 simulation component: one akita TickingComponent
// that, on every tick, runs every live organism's instruction cycle
// and reconciles their proposed world writes (spec.md 4.4).
type Scheduler struct {
	*sim.TickingComponent

	env     *env.Environment
	catalog *isa.Catalog
	program organism.Program
	logger  *slog.Logger

	organisms map[int64]*organism.Organism
	nextID    int64
	tickCount uint64
}

// Builder assembles a Scheduler the way the teacher's DeviceBuilder
// (config/config.go) assembles a device: a fluent chain of With*
// calls terminated by Build.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	env     *env.Environment
	catalog *isa.Catalog
	program organism.Program
	logger  *slog.Logger
}

// NewBuilder starts a Builder with sim.GHz-free defaults; callers must
// still supply an engine, frequency, environment, and catalog before
// calling Build.
func NewBuilder() Builder {
	return Builder{logger: slog.Default()}
}

// WithEngine sets the akita engine the scheduler's ticks run on.
func (b Builder) WithEngine(e sim.Engine) Builder { b.engine = e; return b }

// WithFreq sets the scheduler's tick frequency.
func (b Builder) WithFreq(f sim.Freq) Builder { b.freq = f; return b }

// WithEnvironment sets the shared grid organisms act on.
func (b Builder) WithEnvironment(e *env.Environment) Builder { b.env = e; return b }

// WithCatalog sets the opcode catalog organisms decode against.
func (b Builder) WithCatalog(c *isa.Catalog) Builder { b.catalog = c; return b }

// WithProgram sets the compiled artifact organisms resolve calls and
// labels against.
func (b Builder) WithProgram(p organism.Program) Builder { b.program = p; return b }

// WithLogger overrides the default logger.
func (b Builder) WithLogger(l *slog.Logger) Builder { b.logger = l; return b }

// Build constructs the Scheduler and wires it to an akita engine under
// name, mirroring DeviceBuilder.Build's pattern of embedding a fresh
// TickingComponent built from the accumulated fields.
func (b Builder) Build(name string) *Scheduler {
	s := &Scheduler{
		env:       b.env,
		catalog:   b.catalog,
		program:   b.program,
		logger:    b.logger,
		organisms: make(map[int64]*organism.Organism),
	}
	s.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, s)
	return s
}

// Spawn adds an organism to the population, assigning it the next
// sequential id. Ids are never reused, even after the organism dies.
func (s *Scheduler) Spawn(startPos env.Coord, initialEnergy int64, parentID int64, hasParent bool, maxCallDepth int) *organism.Organism {
	s.nextID++
	o := organism.New(s.nextID, startPos, s.env.Dimensions(), initialEnergy, parentID, hasParent, maxCallDepth, isa.DefaultCostModel)
	s.organisms[o.ID()] = o
	return o
}

// TickCount reports how many ticks have been applied so far.
func (s *Scheduler) TickCount() uint64 { return s.tickCount }

// Population returns the current organism, by id, including dead
// ones: ids persist after death per spec.md 4.4 step 5.
func (s *Scheduler) Population() map[int64]*organism.Organism { return s.organisms }

// Tick implements sim.TickingComponent's handler: one full pass of
// spec.md 4.4 — FETCH..PROPOSE every live organism in ascending id
// order, reconcile their proposed world writes, apply the survivors
// and every organism's energy delta, then reap the newly dead.
func (s *Scheduler) Tick(now sim.VTimeInSec) bool {
	liveIDs := s.liveOrganismIDsAscending()
	if len(liveIDs) == 0 {
		return false
	}

	proposals := make(map[int64]organism.Proposal, len(liveIDs))
	writesByOrganism := make(map[int64][]isa.WorldWrite, len(liveIDs))
	for _, id := range liveIDs {
		p := s.organisms[id].Tick(s.env, s.catalog, s.program)
		proposals[id] = p
		if len(p.WorldWrites) > 0 {
			writesByOrganism[id] = p.WorldWrites
		}
	}

	resolved := resolveConflicts(writesByOrganism)
	s.applyWrites(resolved.writes)
	s.chargeEnergy(liveIDs, proposals, resolved)

	s.tickCount++
	return true
}

// liveOrganismIDsAscending snapshots the ids of organisms that are
// not yet dead, lowest id first (spec.md 4.4 step 1).
func (s *Scheduler) liveOrganismIDsAscending() []int64 {
	ids := make([]int64, 0, len(s.organisms))
	for id, o := range s.organisms {
		if !o.IsDead() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// applyWrites commits every surviving write to the environment in the
// order resolveConflicts produced them: sorted by the string form of
// the target coordinate.
func (s *Scheduler) applyWrites(writes []isa.WorldWrite) {
	for _, w := range writes {
		s.env.Set(w.Target, w.Value)
		if w.SetOwner {
			s.env.SetOwner(w.Target, w.OwnerID)
		}
	}
}

// chargeEnergy applies spec.md 4.4's cost rule to every organism that
// acted this tick, then reaps anyone whose energy dropped to zero or
// below.
func (s *Scheduler) chargeEnergy(liveIDs []int64, proposals map[int64]organism.Proposal, resolved conflictResult) {
	for _, id := range liveIDs {
		p := proposals[id]
		o := s.organisms[id]

		var cost int64
		switch {
		case p.Failed:
			cost = p.FailurePenalty
		case len(p.WorldWrites) == 0:
			cost = p.BaseCost + p.ExtraCost
		case resolved.survived[id]:
			cost = p.BaseCost + p.ExtraCost + resolved.costByOrganism[id]
		default:
			cost = 0
		}

		if cost != 0 {
			o.ApplyEnergyDelta(-cost)
		}
		if o.IsDead() {
			s.logger.Debug("organism died", "id", id, "tick", s.tickCount)
		}
	}
}
