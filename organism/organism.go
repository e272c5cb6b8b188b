// Package organism implements the per-organism virtual machine:
// registers, pointers, stacks, and the one-instruction-per-tick
// FETCH..ADVANCE cycle that drives the isa catalog's handlers.
// Generalizes the teacher's single Core (core/core.go), which carries
// one thread's PC/registers/code, to many independently-ticked
// organisms sharing one Environment.
package organism

import (
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
)

type callFrame struct {
	ret      env.Coord
	savedPR  []molecule.Molecule
	bindings isa.CallBinding
}

// Organism is one running program: its registers, stacks, pointers,
// and energy. It implements isa.Machine so the catalog's handlers can
// act on it directly during PROPOSE.
type Organism struct {
	id        int64
	parentID  int64
	hasParent bool
	energy    int64
	dead      bool

	ip env.Coord
	dv molecule.Vector
	dp env.Coord

	scalars map[string]molecule.Molecule
	vectors map[string]molecule.Vector

	dataStack []molecule.Molecule
	locStack  []molecule.Vector
	callStack []callFrame
	maxCallDepth int

	failureReason string
	skipIPAdvance bool
	skipNext      bool

	costModel isa.CostModel

	// env, program, and lookupOpcode are bound only for the duration of
	// a Tick call; see tick.go.
	env          *env.Environment
	program      Program
	lookupOpcode func(id int) (isa.OpcodeDef, bool)
}

// New creates an organism at startPos with initialEnergy, owned by
// parentID when hasParent is true. dims is the environment's
// dimensionality, used to size the zero-valued location registers and
// direction vector.
func New(id int64, startPos env.Coord, dims int, initialEnergy int64, parentID int64, hasParent bool, maxCallDepth int, cm isa.CostModel) *Organism {
	dv := make(molecule.Vector, dims)
	dv[0] = 1

	o := &Organism{
		id:           id,
		parentID:     parentID,
		hasParent:    hasParent,
		energy:       initialEnergy,
		ip:           startPos.Clone(),
		dv:           dv,
		dp:           startPos.Clone(),
		scalars:      make(map[string]molecule.Molecule),
		vectors:      make(map[string]molecule.Vector),
		maxCallDepth: maxCallDepth,
		costModel:    cm,
	}
	for i := 0; i < numDR; i++ {
		name, _, _ := PhysicalRegisterName(i)
		o.scalars[name] = molecule.Empty
	}
	for i := numDR; i < numDR+numPR; i++ {
		name, _, _ := PhysicalRegisterName(i)
		o.scalars[name] = molecule.Empty
	}
	for i := numDR + numPR; i < numDR+numPR+numFPR; i++ {
		name, _, _ := PhysicalRegisterName(i)
		o.scalars[name] = molecule.Empty
	}
	for i := numDR + numPR + numFPR; i < RegisterCount; i++ {
		name, _, _ := PhysicalRegisterName(i)
		o.vectors[name] = make(molecule.Vector, dims)
	}
	return o
}

// ID reports the organism's immutable identity.
func (o *Organism) ID() int64 { return o.id }

// ParentID reports the organism's creator, if any.
func (o *Organism) ParentID() (int64, bool) { return o.parentID, o.hasParent }

// Energy reports the organism's current energy reserve.
func (o *Organism) Energy() int64 { return o.energy }

// Cost returns the cost model this organism charges against.
func (o *Organism) Cost() isa.CostModel { return o.costModel }

// IsDead reports whether the organism's energy has been exhausted.
func (o *Organism) IsDead() bool { return o.dead }

// ApplyEnergyDelta adjusts the organism's energy by delta (negative to
// spend) and marks it dead once energy drops to zero or below. Called
// by the scheduler's APPLY step, not by handlers.
func (o *Organism) ApplyEnergyDelta(delta int64) {
	o.energy += delta
	if o.energy <= 0 {
		o.dead = true
	}
}

// FailureReason reports the reason the most recently executed
// instruction failed, or "" if it succeeded.
func (o *Organism) FailureReason() string { return o.failureReason }

// ReadRegister implements isa.Machine.
func (o *Organism) ReadRegister(name string) (molecule.Molecule, bool) {
	v, ok := o.scalars[name]
	return v, ok
}

// WriteRegister implements isa.Machine.
func (o *Organism) WriteRegister(name string, m molecule.Molecule) {
	if _, ok := o.scalars[name]; ok {
		o.scalars[name] = m
	}
}

// ReadVectorRegister implements isa.Machine.
func (o *Organism) ReadVectorRegister(name string) (molecule.Vector, bool) {
	v, ok := o.vectors[name]
	return v, ok
}

// WriteVectorRegister implements isa.Machine.
func (o *Organism) WriteVectorRegister(name string, v molecule.Vector) {
	if _, ok := o.vectors[name]; ok {
		o.vectors[name] = v
	}
}

// PushData implements isa.Machine.
func (o *Organism) PushData(m molecule.Molecule) bool {
	o.dataStack = append(o.dataStack, m)
	return true
}

// PopData implements isa.Machine.
func (o *Organism) PopData() (molecule.Molecule, bool) {
	if len(o.dataStack) == 0 {
		return molecule.Empty, false
	}
	v := o.dataStack[len(o.dataStack)-1]
	o.dataStack = o.dataStack[:len(o.dataStack)-1]
	return v, true
}

// PushLocation implements isa.Machine.
func (o *Organism) PushLocation(v molecule.Vector) bool {
	o.locStack = append(o.locStack, v)
	return true
}

// PopLocation implements isa.Machine.
func (o *Organism) PopLocation() (molecule.Vector, bool) {
	if len(o.locStack) == 0 {
		return nil, false
	}
	v := o.locStack[len(o.locStack)-1]
	o.locStack = o.locStack[:len(o.locStack)-1]
	return v, true
}

// PushCall implements isa.Machine. It refuses the call once the stack
// is at configured capacity.
func (o *Organism) PushCall(ret env.Coord, savedPR []molecule.Molecule, bindings isa.CallBinding) bool {
	if o.maxCallDepth > 0 && len(o.callStack) >= o.maxCallDepth {
		return false
	}
	o.callStack = append(o.callStack, callFrame{ret: ret, savedPR: savedPR, bindings: bindings})
	return true
}

// PopCall implements isa.Machine.
func (o *Organism) PopCall() (env.Coord, []molecule.Molecule, isa.CallBinding, bool) {
	if len(o.callStack) == 0 {
		return nil, nil, isa.CallBinding{}, false
	}
	top := o.callStack[len(o.callStack)-1]
	o.callStack = o.callStack[:len(o.callStack)-1]
	return top.ret, top.savedPR, top.bindings, true
}

// IP implements isa.Machine.
func (o *Organism) IP() env.Coord { return o.ip }

// SetIP implements isa.Machine.
func (o *Organism) SetIP(c env.Coord) { o.ip = c }

// DV implements isa.Machine.
func (o *Organism) DV() molecule.Vector { return o.dv }

// SetDV implements isa.Machine.
func (o *Organism) SetDV(v molecule.Vector) { o.dv = v }

// SetSkipIPAdvance implements isa.Machine.
func (o *Organism) SetSkipIPAdvance() { o.skipIPAdvance = true }

// SkipNextInstruction implements isa.Machine.
func (o *Organism) SkipNextInstruction() { o.skipNext = true }

// ActiveDataPointer implements isa.Machine.
func (o *Organism) ActiveDataPointer() env.Coord { return o.dp }

// SetActiveDataPointer implements isa.Machine.
func (o *Organism) SetActiveDataPointer(c env.Coord) { o.dp = c }

// SeekDataPointer implements isa.Machine.
func (o *Organism) SeekDataPointer(delta molecule.Vector) {
	o.dp = o.Displace(o.dp, delta)
}
