// Package isa defines Evochora's closed instruction-set catalog: one
// immutable table built once at startup, mapping mnemonics to arity,
// argument-source metadata, and a handler function. This replaces the
// teacher's process-wide instruction registry (instr/isa.go's
// package-level defaultISA initialized by a defaultISAinit() function)
// with the explicit-catalog design called for by the embedding spec's
// "global mutable state" design note: the catalog is built once by
// NewCatalog and handed to both the compiler (for recognition/arity
// checks) and the runtime (for dispatch), never touched again.
package isa

import (
	"fmt"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/molecule"
)

// ArgKind says whether an argument slot carries a scalar Molecule or a
// Vector.
type ArgKind int

const (
	KindScalar ArgKind = iota
	KindVector
)

// ArgSource says where an argument's runtime value comes from. It
// mirrors the source-code's R/I/S suffix scheme (spec.md, Instruction
// Set Architecture): R=register, I=immediate, S=stack.
type ArgSource int

const (
	// SrcRegister: the operand cell holds a register index; the
	// runtime value is that register's current content.
	SrcRegister ArgSource = iota
	// SrcImmediate: the operand cell(s) hold the literal value
	// directly (one cell for a scalar, Dims cells for a vector).
	SrcImmediate
	// SrcStack: no operand cell is consumed; the value is popped from
	// the data stack (scalar) or location stack (vector) at execution
	// time.
	SrcStack
)

// ArgSpec describes one declared argument slot of an opcode.
type ArgSpec struct {
	Kind   ArgKind
	Source ArgSource
	// IsOutput marks an argument slot that receives a result rather
	// than supplying one (e.g. PEEK's destination). For IsOutput +
	// SrcRegister, decode resolves the register's *name*, not its
	// current value, so the handler can write through it. For
	// IsOutput + SrcStack, the handler pushes the result directly.
	IsOutput bool
}

// Width reports how many instruction-stream cells this argument slot
// occupies. Stack-sourced arguments occupy none; vector-immediate
// arguments occupy one cell per environment axis.
func (a ArgSpec) Width(dims int) int {
	if a.Source == SrcStack {
		return 0
	}
	if a.Kind == KindVector && a.Source == SrcImmediate {
		return dims
	}
	return 1
}

// ResolvedArg is the decoded value of one argument. For an input
// argument, Scalar/Vector (per Kind) holds the current value. For an
// output argument with Source==SrcRegister, OutputRegister holds the
// resolved register name the handler should write the result through;
// for Source==SrcStack the handler pushes the result directly.
type ResolvedArg struct {
	Spec           ArgSpec
	Scalar         molecule.Molecule
	Vector         molecule.Vector
	OutputRegister string
}

// WriteScalarResult delivers a scalar result to an output argument,
// writing through the register it names or pushing it onto the data
// stack, per the argument's declared source.
func WriteScalarResult(m Machine, arg ResolvedArg, value molecule.Molecule) {
	switch arg.Spec.Source {
	case SrcRegister:
		m.WriteRegister(arg.OutputRegister, value)
	case SrcStack:
		m.PushData(value)
	}
}

// Failure describes why an instruction could not complete.
type Failure struct {
	Reason string
}

func (f *Failure) Error() string { return f.Reason }

// WorldWrite is a proposed write to the environment. The scheduler
// applies it only if it survives conflict resolution (spec.md 4.4).
type WorldWrite struct {
	Target   env.Coord
	Value    molecule.Molecule
	SetOwner bool
	OwnerID  int64
	// Cost is this write's energy cost (value-proportional write cost
	// plus any foreign-owner surcharge), computed at PROPOSE time. The
	// scheduler sums Cost only for writes that survive conflict
	// resolution (spec.md 4.4): a write discarded as a loser costs
	// nothing.
	Cost int64
}

// Effects is what a Handler proposes for one instruction execution:
// world writes (deferred, contended) and any cost beyond the opcode's
// base cost (e.g. the write-proportional and ownership surcharges from
// the cost model). Organism-local effects (registers, stacks, IP/DV)
// are never deferred — the handler applies them directly through
// Machine, matching spec.md 4.2 step 5: "organism-local effects...
// apply unconditionally."
type Effects struct {
	WorldWrites []WorldWrite
	ExtraCost   int64
}

// BindingActual is one caller-side actual argument bound to a CALL's
// formal parameters, in declaration order.
type BindingActual struct {
	RegisterName string
	IsRef        bool
}

// CallBinding is the ordered caller-register-name list recorded for
// one CALL site (spec.md's callSiteBindings), consulted by CALL/RET
// handlers to marshal %FPR0..%FPRk-1.
type CallBinding struct {
	Actuals []BindingActual
}

// Machine is the surface a Handler needs from the executing organism.
// Defined here (rather than imported from package organism) so isa has
// no dependency on organism, avoiding an import cycle: organism depends
// on isa, not the reverse.
type Machine interface {
	ReadRegister(name string) (molecule.Molecule, bool)
	WriteRegister(name string, m molecule.Molecule)
	ReadVectorRegister(name string) (molecule.Vector, bool)
	WriteVectorRegister(name string, v molecule.Vector)

	PushData(m molecule.Molecule) bool
	PopData() (molecule.Molecule, bool)
	PushLocation(v molecule.Vector) bool
	PopLocation() (molecule.Vector, bool)
	PushCall(ret env.Coord, savedPR []molecule.Molecule, bindings CallBinding) bool
	PopCall() (ret env.Coord, savedPR []molecule.Molecule, bindings CallBinding, ok bool)

	IP() env.Coord
	SetIP(env.Coord)
	DV() molecule.Vector
	SetDV(molecule.Vector)
	SetSkipIPAdvance()
	// SkipNextInstruction marks that, after this instruction's own
	// normal advance, the following instruction's full width must
	// also be skipped — the IF* conditional-skip semantics.
	SkipNextInstruction()

	ActiveDataPointer() env.Coord
	SetActiveDataPointer(env.Coord)
	SeekDataPointer(delta molecule.Vector)

	ReadCell(c env.Coord) molecule.Molecule
	OwnerAtCell(c env.Coord) int64
	Normalize(c env.Coord) (env.Coord, bool)
	// Displace returns from+delta, normalized by the environment's
	// wrap/bounds rule. delta need not be a unit vector.
	Displace(from env.Coord, delta molecule.Vector) env.Coord
	// Advance returns from stepped by dv, steps times, normalized
	// after each step.
	Advance(from env.Coord, dv molecule.Vector, steps int) env.Coord

	ID() int64
	ParentID() (int64, bool)
	Energy() int64
	// Cost returns the cost model in effect, so environment-interaction
	// handlers can price their proposed writes without isa depending on
	// the runtime configuration that produced the model.
	Cost() CostModel

	CallBindingsAt(site env.Coord) (CallBinding, bool)
	ResolveLabel(name string) (env.Coord, bool)
}

// Handler implements an opcode's VALIDATE+PROPOSE behavior. args has
// exactly len(OpcodeDef.Args) entries, in declaration order, already
// resolved (registers read, stack values popped). A non-nil Failure
// means the instruction failed; the caller still charges the failure
// penalty and advances IP per spec.md's failure policy.
type Handler func(m Machine, args []ResolvedArg) (Effects, *Failure)

// OpcodeDef is one catalog entry.
type OpcodeDef struct {
	Mnemonic string
	ID       int
	Args     []ArgSpec
	// CoordVectorArg is the index into Args of the vector argument
	// that forms a target cell offset or a new direction vector, or -1
	// if none. Arguments at this index are subject to the unity-vector
	// rule (spec.md 4.2); JMPI/JMPR/CALL displacements are not.
	CoordVectorArg int
	BaseCost       int64
	Handler        Handler
}

// Arity reports the number of instruction-stream cells this opcode's
// arguments occupy, given the environment's dimensionality (vector
// immediates are dims-wide).
func (d OpcodeDef) Arity(dims int) int {
	total := 0
	for _, a := range d.Args {
		total += a.Width(dims)
	}
	return total
}

// Catalog is the closed, immutable set of opcodes, built once by
// NewCatalog and never mutated again.
type Catalog struct {
	byName map[string]OpcodeDef
	byID   map[int]OpcodeDef
	names  []string // insertion order, for deterministic iteration/disassembly
}

// Lookup resolves a mnemonic to its definition.
func (c *Catalog) Lookup(mnemonic string) (OpcodeDef, bool) {
	d, ok := c.byName[mnemonic]
	return d, ok
}

// LookupID resolves a numeric opcode id to its definition.
func (c *Catalog) LookupID(id int) (OpcodeDef, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Mnemonics returns every recognized mnemonic, in catalog-build order.
func (c *Catalog) Mnemonics() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

type builder struct {
	cat    *Catalog
	nextID int
}

func (b *builder) register(mnemonic string, coordArg int, baseCost int64, handler Handler, args ...ArgSpec) {
	if _, exists := b.cat.byName[mnemonic]; exists {
		panic(fmt.Sprintf("isa: duplicate mnemonic %q", mnemonic))
	}
	def := OpcodeDef{
		Mnemonic:       mnemonic,
		ID:             b.nextID,
		Args:           args,
		CoordVectorArg: coordArg,
		BaseCost:       baseCost,
		Handler:        handler,
	}
	b.cat.byName[mnemonic] = def
	b.cat.byID[b.nextID] = def
	b.cat.names = append(b.cat.names, mnemonic)
	b.nextID++
}

// NewCatalog builds the default, immutable Evochora ISA.
func NewCatalog() *Catalog {
	cat := &Catalog{
		byName: make(map[string]OpcodeDef),
		byID:   make(map[int]OpcodeDef),
	}
	b := &builder{cat: cat}

	registerControl(b)
	registerArithmetic(b)
	registerDataMovement(b)
	registerEnvironment(b)
	registerIntrospection(b)

	return cat
}
