package isa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
)

var _ = Describe("Catalog", func() {
	It("builds a closed catalog with no duplicate mnemonics", func() {
		cat := isa.NewCatalog()
		seen := map[string]bool{}
		for _, name := range cat.Mnemonics() {
			Expect(seen[name]).To(BeFalse(), "duplicate mnemonic %s", name)
			seen[name] = true
			_, ok := cat.Lookup(name)
			Expect(ok).To(BeTrue())
		}
		Expect(len(cat.Mnemonics())).To(BeNumerically(">", 60))
	})

	It("resolves both directions of the mnemonic/id mapping", func() {
		cat := isa.NewCatalog()
		def, ok := cat.Lookup("ADDR")
		Expect(ok).To(BeTrue())
		byID, ok := cat.LookupID(def.ID)
		Expect(ok).To(BeTrue())
		Expect(byID.Mnemonic).To(Equal("ADDR"))
	})
})

var _ = Describe("control opcodes", func() {
	var cat *isa.Catalog
	BeforeEach(func() { cat = isa.NewCatalog() })

	It("JMPI displaces IP and skips the normal advance", func() {
		m := newFakeMachine()
		def, _ := cat.Lookup("JMPI")
		args := []isa.ResolvedArg{{Spec: def.Args[0], Vector: molecule.Vector{2, 3}}}
		_, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		Expect(m.ip).To(Equal(env.Coord{2, 3}))
		Expect(m.skipAdvance).To(BeTrue())
	})

	It("CALL binds actuals into FPRs and RET writes back REF actuals", func() {
		m := newFakeMachine()
		m.registers["%X"] = molecule.New(molecule.Data, 42)
		m.bindings[m.ip.String()] = isa.CallBinding{
			Actuals: []isa.BindingActual{{RegisterName: "%X", IsRef: true}},
		}

		callDef, _ := cat.Lookup("CALL")
		_, fail := callDef.Handler(m, []isa.ResolvedArg{
			{Spec: callDef.Args[0], Vector: molecule.Vector{1, 0}},
		})
		Expect(fail).To(BeNil())
		Expect(m.registers["%FPR0"].Scalar).To(Equal(int64(42)))
		Expect(m.skipAdvance).To(BeTrue())
		Expect(len(m.callStack)).To(Equal(1))

		m.registers["%FPR0"] = molecule.New(molecule.Data, 99)
		retDef, _ := cat.Lookup("RET")
		_, fail = retDef.Handler(m, nil)
		Expect(fail).To(BeNil())
		Expect(m.registers["%X"].Scalar).To(Equal(int64(99)))
		Expect(len(m.callStack)).To(Equal(0))
	})

	It("RET underflows cleanly with no pending call", func() {
		m := newFakeMachine()
		retDef, _ := cat.Lookup("RET")
		_, fail := retDef.Handler(m, nil)
		Expect(fail).NotTo(BeNil())
	})

	It("IFTR skips the next instruction only when the register is nonzero", func() {
		m := newFakeMachine()
		def, _ := cat.Lookup("IFTR")

		args := []isa.ResolvedArg{{Spec: def.Args[0], Scalar: molecule.New(molecule.Data, 0)}}
		def.Handler(m, args)
		Expect(m.skipNext).To(BeFalse())

		args = []isa.ResolvedArg{{Spec: def.Args[0], Scalar: molecule.New(molecule.Data, 5)}}
		def.Handler(m, args)
		Expect(m.skipNext).To(BeTrue())
	})
})

var _ = Describe("arithmetic opcodes", func() {
	It("ADDR writes the sum through a register destination", func() {
		cat := isa.NewCatalog()
		m := newFakeMachine()
		def, _ := cat.Lookup("ADDR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], OutputRegister: "%R0"},
			{Spec: def.Args[1], Scalar: molecule.New(molecule.Data, 3)},
			{Spec: def.Args[2], Scalar: molecule.New(molecule.Data, 4)},
		}
		_, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		Expect(m.registers["%R0"].Scalar).To(Equal(int64(7)))
	})

	It("SUBS pops two values and pushes their difference", func() {
		cat := isa.NewCatalog()
		m := newFakeMachine()
		m.dataStack = []molecule.Molecule{molecule.New(molecule.Data, 10), molecule.New(molecule.Data, 4)}
		def, _ := cat.Lookup("SUBS")
		_, fail := def.Handler(m, nil)
		Expect(fail).To(BeNil())
		Expect(m.dataStack).To(HaveLen(1))
		Expect(m.dataStack[0].Scalar).To(Equal(int64(6)))
	})
})

var _ = Describe("environment opcodes", func() {
	var (
		cat *isa.Catalog
		m   *fakeMachine
	)
	BeforeEach(func() {
		cat = isa.NewCatalog()
		m = newFakeMachine()
	})

	It("PEEKRR fails on an empty cell", func() {
		def, _ := cat.Lookup("PEEKRR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], OutputRegister: "%R0"},
			{Spec: def.Args[1], Vector: molecule.Vector{1, 0}},
		}
		_, fail := def.Handler(m, args)
		Expect(fail).NotTo(BeNil())
	})

	It("PEEKRR reads and clears an occupied cell", func() {
		m.write(env.Coord{1, 0}, molecule.New(molecule.Data, 7), 0)
		def, _ := cat.Lookup("PEEKRR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], OutputRegister: "%R0"},
			{Spec: def.Args[1], Vector: molecule.Vector{1, 0}},
		}
		effects, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		Expect(m.registers["%R0"].Scalar).To(Equal(int64(7)))
		m.apply(effects)
		Expect(m.ReadCell(env.Coord{1, 0}).IsEmpty()).To(BeTrue())
	})

	It("SCANRR reads without clearing the cell", func() {
		m.write(env.Coord{0, 1}, molecule.New(molecule.Data, 9), 0)
		def, _ := cat.Lookup("SCANRR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], OutputRegister: "%R0"},
			{Spec: def.Args[1], Vector: molecule.Vector{0, 1}},
		}
		effects, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		m.apply(effects)
		Expect(m.ReadCell(env.Coord{0, 1}).Scalar).To(Equal(int64(9)))
	})

	It("POKERR fails when the target cell is occupied", func() {
		m.write(env.Coord{1, 1}, molecule.New(molecule.Data, 1), 0)
		def, _ := cat.Lookup("POKERR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], Scalar: molecule.New(molecule.Data, 2)},
			{Spec: def.Args[1], Vector: molecule.Vector{1, 1}},
		}
		_, fail := def.Handler(m, args)
		Expect(fail).NotTo(BeNil())
	})

	It("OVWRRR writes regardless of prior occupancy", func() {
		m.write(env.Coord{1, 1}, molecule.New(molecule.Data, 1), 0)
		def, _ := cat.Lookup("OVWRRR")
		args := []isa.ResolvedArg{
			{Spec: def.Args[0], Scalar: molecule.New(molecule.Data, 2)},
			{Spec: def.Args[1], Vector: molecule.Vector{1, 1}},
		}
		effects, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		m.apply(effects)
		Expect(m.ReadCell(env.Coord{1, 1}).Scalar).To(Equal(int64(2)))
	})

	It("SEEKR moves the active data pointer", func() {
		def, _ := cat.Lookup("SEEKR")
		args := []isa.ResolvedArg{{Spec: def.Args[0], Vector: molecule.Vector{2, 0}}}
		_, fail := def.Handler(m, args)
		Expect(fail).To(BeNil())
		Expect(m.ActiveDataPointer()).To(Equal(env.Coord{2, 0}))
	})
})
