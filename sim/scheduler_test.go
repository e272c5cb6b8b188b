package sim_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	akitasim "github.com/sarchlab/akita/v4/sim"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/organism"
	"github.com/evochora/evochora/sim"
)

type fakeProgram struct{}

func (fakeProgram) CallBindingsAt(env.Coord) (isa.CallBinding, bool) { return isa.CallBinding{}, false }
func (fakeProgram) ResolveLabel(string) (env.Coord, bool)           { return nil, false }

func newScheduler(e *env.Environment, cat *isa.Catalog) *sim.Scheduler {
	engine := akitasim.NewSerialEngine()
	return sim.NewBuilder().
		WithEngine(engine).
		WithFreq(1 * akitasim.GHz).
		WithEnvironment(e).
		WithCatalog(cat).
		WithProgram(fakeProgram{}).
		Build("Scheduler")
}

var _ = Describe("Scheduler.Tick", func() {
	var (
		e   *env.Environment
		cat *isa.Catalog
		s   *sim.Scheduler
	)

	BeforeEach(func() {
		e = env.New([]int64{10, 10}, true)
		cat = isa.NewCatalog()
		s = newScheduler(e, cat)
	})

	It("applies a single organism's write and charges its full cost", func() {
		setiDef, _ := cat.Lookup("SETI")
		pokeDef, _ := cat.Lookup("POKERR")

		o := s.Spawn(env.Coord{0, 0}, 1000, 0, false, 8)
		e.Set(env.Coord{0, 0}, molecule.New(molecule.Code, int64(setiDef.ID)))
		e.Set(env.Coord{1, 0}, molecule.New(molecule.Data, 0)) // %DR0
		e.Set(env.Coord{2, 0}, molecule.New(molecule.Data, 9))
		e.Set(env.Coord{3, 0}, molecule.New(molecule.Code, int64(pokeDef.ID)))
		e.Set(env.Coord{4, 0}, molecule.New(molecule.Data, 0))  // value from %DR0
		e.Set(env.Coord{5, 0}, molecule.New(molecule.Data, 18)) // vector from %LR0
		o.WriteVectorRegister("%LR0", molecule.Vector{0, 1})

		Expect(s.Tick(0)).To(BeTrue())
		Expect(s.Tick(0)).To(BeTrue())

		Expect(e.Get(env.Coord{0, 1}).Scalar).To(Equal(int64(9)))
		Expect(o.Energy()).To(Equal(int64(1000 - setiDef.BaseCost - pokeDef.BaseCost - isa.WriteCost(9))))
	})

	It("lets the lowest id win a contended cell and waives the loser's cost", func() {
		pokeDef, _ := cat.Lookup("POKERR")

		winner := s.Spawn(env.Coord{0, 0}, 1000, 0, false, 8)
		loser := s.Spawn(env.Coord{0, 2}, 1000, 0, false, 8)
		Expect(winner.ID()).To(BeNumerically("<", loser.ID()))

		// both POKE into the same cell, {0, 1}, from opposite sides.
		e.Set(env.Coord{0, 0}, molecule.New(molecule.Code, int64(pokeDef.ID)))
		e.Set(env.Coord{1, 0}, molecule.New(molecule.Data, 0))
		e.Set(env.Coord{2, 0}, molecule.New(molecule.Data, 18))
		winner.WriteRegister("%DR0", molecule.New(molecule.Data, 11))
		winner.WriteVectorRegister("%LR0", molecule.Vector{0, 1})

		e.Set(env.Coord{0, 2}, molecule.New(molecule.Code, int64(pokeDef.ID)))
		e.Set(env.Coord{1, 2}, molecule.New(molecule.Data, 0))
		e.Set(env.Coord{2, 2}, molecule.New(molecule.Data, 18))
		loser.WriteRegister("%DR0", molecule.New(molecule.Data, 22))
		loser.WriteVectorRegister("%LR0", molecule.Vector{0, -1})

		Expect(s.Tick(0)).To(BeTrue())

		Expect(e.Get(env.Coord{0, 1}).Scalar).To(Equal(int64(11)))
		Expect(winner.Energy()).To(Equal(int64(1000 - pokeDef.BaseCost - isa.WriteCost(11))))
		Expect(loser.Energy()).To(Equal(int64(1000)))
	})

	It("reaps an organism whose energy is exhausted", func() {
		nopDef, _ := cat.Lookup("NOP")
		o := s.Spawn(env.Coord{0, 0}, nopDef.BaseCost, 0, false, 8)
		e.Set(env.Coord{0, 0}, molecule.New(molecule.Code, int64(nopDef.ID)))

		Expect(s.Tick(0)).To(BeTrue())
		Expect(o.IsDead()).To(BeTrue())

		// a tick with no live organisms makes no progress.
		Expect(s.Tick(0)).To(BeFalse())
	})
})
