package organism

import (
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
)

// Program is the compile-time information a running organism needs
// but does not own: call-site bindings and label addresses. Declared
// here, implemented by the compiled artifact, to keep organism from
// depending on the compiler/artifact package the way isa.Machine keeps
// isa from depending on organism.
type Program interface {
	CallBindingsAt(site env.Coord) (isa.CallBinding, bool)
	ResolveLabel(name string) (env.Coord, bool)
}

// Proposal is the outcome of one organism's FETCH..PROPOSE pass: the
// world writes it wants to make (still subject to the scheduler's
// conflict resolution) and the energy it owes, split so the scheduler
// can apply spec.md 4.4's waived-base-cost rule.
type Proposal struct {
	OrganismID int64
	Mnemonic   string

	WorldWrites []isa.WorldWrite

	// BaseCost + ExtraCost is charged unconditionally when WorldWrites
	// is empty (there is nothing for conflict resolution to discard).
	// When WorldWrites is non-empty, the scheduler charges it only if
	// at least one of those writes survives.
	BaseCost  int64
	ExtraCost int64

	Failed         bool
	FailureReason  string
	FailurePenalty int64
}

// Tick runs FETCH through the local half of APPLY for one instruction:
// it reads and decodes the instruction at the organism's IP, validates
// it, runs its handler (which mutates registers/stacks/pointers on o
// directly — the "organism-local effects apply unconditionally" half
// of spec.md 4.2 step 5), and advances IP. World writes proposed by
// the handler are returned, not applied; e is only ever read.
func (o *Organism) Tick(e *env.Environment, cat *isa.Catalog, prog Program) Proposal {
	o.env = e
	o.program = prog
	o.lookupOpcode = cat.LookupID
	defer func() { o.env = nil; o.program = nil; o.lookupOpcode = nil }()

	o.failureReason = ""
	o.skipIPAdvance = false

	dims := e.Dimensions()

	opcodeCell, ok := o.readCellAt(o.ip)
	if !ok || opcodeCell.Type != molecule.Code {
		return o.failAt(1, "not executable")
	}
	def, ok := cat.LookupID(int(opcodeCell.Scalar))
	if !ok {
		return o.failAt(1, "not executable")
	}

	args, ok := o.decode(def, dims)
	if !ok {
		return o.failAt(1+def.Arity(dims), "truncated instruction")
	}

	if def.CoordVectorArg >= 0 && !args[def.CoordVectorArg].Vector.IsUnit() {
		return o.failAt(1+def.Arity(dims), "vector is not a unit vector")
	}

	effects, failure := def.Handler(o, args)
	if failure != nil {
		return o.failAt(1+def.Arity(dims), failure.Reason)
	}

	o.advance(def, dims)

	return Proposal{
		OrganismID:  o.id,
		Mnemonic:    def.Mnemonic,
		WorldWrites: effects.WorldWrites,
		BaseCost:    def.BaseCost,
		ExtraCost:   effects.ExtraCost,
	}
}

// failAt records the failure reason, charges the failure penalty
// (applied by the scheduler like any other energy delta), and advances
// IP by steps cells.
func (o *Organism) failAt(steps int, reason string) Proposal {
	o.failureReason = reason
	o.ip = o.Advance(o.ip, o.dv, steps)
	return Proposal{
		OrganismID:     o.id,
		Failed:         true,
		FailureReason:  reason,
		FailurePenalty: o.costModel.FailurePenalty,
	}
}

// advance implements spec.md 4.2 step 6: move IP past this
// instruction's own cells (unless a jump/call/return already
// repositioned IP and called SetSkipIPAdvance), then, if an IF*
// handler asked to skip the following instruction, peek it and step
// past that one too.
func (o *Organism) advance(def isa.OpcodeDef, dims int) {
	if !o.skipIPAdvance {
		o.ip = o.Advance(o.ip, o.dv, 1+def.Arity(dims))
	}
	o.skipIPAdvance = false

	if !o.skipNext {
		return
	}
	o.skipNext = false

	next, ok := o.readCellAt(o.ip)
	if !ok || next.Type != molecule.Code {
		o.ip = o.Advance(o.ip, o.dv, 1)
		return
	}
	skipDef, ok := o.catalogLookup(next)
	if !ok {
		o.ip = o.Advance(o.ip, o.dv, 1)
		return
	}
	o.ip = o.Advance(o.ip, o.dv, 1+skipDef.Arity(dims))
}

// catalogLookup is a small indirection so advance doesn't need its own
// *isa.Catalog reference; the one passed into Tick is captured on o
// only for the lifetime of the call, so we resolve through a closure
// stored at Tick time instead of holding the catalog long-term.
func (o *Organism) catalogLookup(m molecule.Molecule) (isa.OpcodeDef, bool) {
	if o.lookupOpcode == nil {
		return isa.OpcodeDef{}, false
	}
	return o.lookupOpcode(int(m.Scalar))
}

// decode reads def's declared arguments from the cells following the
// opcode (for register/immediate sources) or from the organism's
// stacks (for stack sources), resolving each into a ResolvedArg. It
// reports false if the instruction runs off the end of a bounded
// environment or a stack-sourced argument underflows.
func (o *Organism) decode(def isa.OpcodeDef, dims int) ([]isa.ResolvedArg, bool) {
	args := make([]isa.ResolvedArg, len(def.Args))
	pos := o.Advance(o.ip, o.dv, 1)

	for i, spec := range def.Args {
		switch spec.Source {
		case isa.SrcStack:
			if spec.IsOutput {
				args[i] = isa.ResolvedArg{Spec: spec}
				continue
			}
			if spec.Kind == isa.KindVector {
				v, ok := o.PopLocation()
				if !ok {
					return nil, false
				}
				args[i] = isa.ResolvedArg{Spec: spec, Vector: v}
			} else {
				v, ok := o.PopData()
				if !ok {
					return nil, false
				}
				args[i] = isa.ResolvedArg{Spec: spec, Scalar: v}
			}

		case isa.SrcRegister:
			cell, ok := o.readCellAt(pos)
			if !ok {
				return nil, false
			}
			pos = o.Advance(pos, o.dv, 1)
			name, _, ok := PhysicalRegisterName(int(cell.Scalar))
			if !ok {
				return nil, false
			}
			if spec.IsOutput {
				args[i] = isa.ResolvedArg{Spec: spec, OutputRegister: name}
				continue
			}
			if spec.Kind == isa.KindVector {
				v, _ := o.ReadVectorRegister(name)
				args[i] = isa.ResolvedArg{Spec: spec, Vector: v}
			} else {
				v, _ := o.ReadRegister(name)
				args[i] = isa.ResolvedArg{Spec: spec, Scalar: v}
			}

		case isa.SrcImmediate:
			if spec.Kind == isa.KindVector {
				vec := make(molecule.Vector, dims)
				for d := 0; d < dims; d++ {
					cell, ok := o.readCellAt(pos)
					if !ok {
						return nil, false
					}
					pos = o.Advance(pos, o.dv, 1)
					vec[d] = cell.Scalar
				}
				args[i] = isa.ResolvedArg{Spec: spec, Vector: vec}
			} else {
				cell, ok := o.readCellAt(pos)
				if !ok {
					return nil, false
				}
				pos = o.Advance(pos, o.dv, 1)
				args[i] = isa.ResolvedArg{Spec: spec, Scalar: cell}
			}
		}
	}
	return args, true
}

// readCellAt reads the cell at c, reporting false if c is out of
// range in a bounded (non-toroidal) environment.
func (o *Organism) readCellAt(c env.Coord) (molecule.Molecule, bool) {
	if _, ok := o.env.Normalize(c); !ok {
		return molecule.Empty, false
	}
	return o.env.Get(c), true
}

// ReadCell implements isa.Machine.
func (o *Organism) ReadCell(c env.Coord) molecule.Molecule { return o.env.Get(c) }

// OwnerAtCell implements isa.Machine.
func (o *Organism) OwnerAtCell(c env.Coord) int64 { return o.env.OwnerOf(c) }

// Normalize implements isa.Machine.
func (o *Organism) Normalize(c env.Coord) (env.Coord, bool) { return o.env.Normalize(c) }

// Displace implements isa.Machine.
func (o *Organism) Displace(from env.Coord, delta molecule.Vector) env.Coord {
	if nc, ok := o.env.Normalize(from.Add(delta)); ok {
		return nc
	}
	return from.Add(delta)
}

// Advance implements isa.Machine.
func (o *Organism) Advance(from env.Coord, dv molecule.Vector, steps int) env.Coord {
	out := from
	for i := 0; i < steps; i++ {
		out = o.Displace(out, dv)
	}
	return out
}

// CallBindingsAt implements isa.Machine.
func (o *Organism) CallBindingsAt(site env.Coord) (isa.CallBinding, bool) {
	if o.program == nil {
		return isa.CallBinding{}, false
	}
	return o.program.CallBindingsAt(site)
}

// ResolveLabel implements isa.Machine.
func (o *Organism) ResolveLabel(name string) (env.Coord, bool) {
	if o.program == nil {
		return nil, false
	}
	return o.program.ResolveLabel(name)
}
