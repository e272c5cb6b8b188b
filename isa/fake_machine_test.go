package isa_test

import (
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
)

// fakeMachine is a hand-rolled isa.Machine double. The package's
// handlers are plain functions over a narrow interface, so a fake
// struct exercises them more directly than a generated mock would.
type fakeMachine struct {
	registers map[string]molecule.Molecule
	vectors   map[string]molecule.Vector
	dataStack []molecule.Molecule
	locStack  []molecule.Vector
	callStack []callFrame

	ip env.Coord
	dv molecule.Vector
	dp env.Coord

	cells  map[string]molecule.Molecule
	owners map[string]int64

	id        int64
	parentID  int64
	hasParent bool
	energy    int64
	cost      isa.CostModel

	bindings map[string]isa.CallBinding

	skipAdvance bool
	skipNext    bool
}

type callFrame struct {
	ret      env.Coord
	savedPR  []molecule.Molecule
	bindings isa.CallBinding
}

func newFakeMachine() *fakeMachine {
	return &fakeMachine{
		registers: make(map[string]molecule.Molecule),
		vectors:   make(map[string]molecule.Vector),
		cells:     make(map[string]molecule.Molecule),
		owners:    make(map[string]int64),
		bindings:  make(map[string]isa.CallBinding),
		ip:        env.Coord{0, 0},
		dv:        molecule.Vector{1, 0},
		dp:        env.Coord{0, 0},
		cost:      isa.DefaultCostModel,
	}
}

func (f *fakeMachine) ReadRegister(name string) (molecule.Molecule, bool) {
	v, ok := f.registers[name]
	return v, ok
}
func (f *fakeMachine) WriteRegister(name string, m molecule.Molecule) { f.registers[name] = m }

func (f *fakeMachine) ReadVectorRegister(name string) (molecule.Vector, bool) {
	v, ok := f.vectors[name]
	return v, ok
}
func (f *fakeMachine) WriteVectorRegister(name string, v molecule.Vector) { f.vectors[name] = v }

func (f *fakeMachine) PushData(m molecule.Molecule) bool {
	f.dataStack = append(f.dataStack, m)
	return true
}
func (f *fakeMachine) PopData() (molecule.Molecule, bool) {
	if len(f.dataStack) == 0 {
		return molecule.Empty, false
	}
	v := f.dataStack[len(f.dataStack)-1]
	f.dataStack = f.dataStack[:len(f.dataStack)-1]
	return v, true
}
func (f *fakeMachine) PushLocation(v molecule.Vector) bool {
	f.locStack = append(f.locStack, v)
	return true
}
func (f *fakeMachine) PopLocation() (molecule.Vector, bool) {
	if len(f.locStack) == 0 {
		return nil, false
	}
	v := f.locStack[len(f.locStack)-1]
	f.locStack = f.locStack[:len(f.locStack)-1]
	return v, true
}
func (f *fakeMachine) PushCall(ret env.Coord, savedPR []molecule.Molecule, bindings isa.CallBinding) bool {
	f.callStack = append(f.callStack, callFrame{ret: ret, savedPR: savedPR, bindings: bindings})
	return true
}
func (f *fakeMachine) PopCall() (env.Coord, []molecule.Molecule, isa.CallBinding, bool) {
	if len(f.callStack) == 0 {
		return nil, nil, isa.CallBinding{}, false
	}
	top := f.callStack[len(f.callStack)-1]
	f.callStack = f.callStack[:len(f.callStack)-1]
	return top.ret, top.savedPR, top.bindings, true
}

func (f *fakeMachine) IP() env.Coord        { return f.ip }
func (f *fakeMachine) SetIP(c env.Coord)    { f.ip = c }
func (f *fakeMachine) DV() molecule.Vector  { return f.dv }
func (f *fakeMachine) SetDV(v molecule.Vector) { f.dv = v }
func (f *fakeMachine) SetSkipIPAdvance()    { f.skipAdvance = true }
func (f *fakeMachine) SkipNextInstruction() { f.skipNext = true }

func (f *fakeMachine) ActiveDataPointer() env.Coord     { return f.dp }
func (f *fakeMachine) SetActiveDataPointer(c env.Coord) { f.dp = c }
func (f *fakeMachine) SeekDataPointer(delta molecule.Vector) {
	f.dp = f.Displace(f.dp, delta)
}

func (f *fakeMachine) ReadCell(c env.Coord) molecule.Molecule {
	v, ok := f.cells[c.String()]
	if !ok {
		return molecule.Empty
	}
	return v
}
func (f *fakeMachine) OwnerAtCell(c env.Coord) int64 { return f.owners[c.String()] }
func (f *fakeMachine) Normalize(c env.Coord) (env.Coord, bool) { return c, true }

func (f *fakeMachine) Displace(from env.Coord, delta molecule.Vector) env.Coord {
	out := make(env.Coord, len(from))
	for i := range from {
		out[i] = from[i] + delta[i]
	}
	return out
}
func (f *fakeMachine) Advance(from env.Coord, dv molecule.Vector, steps int) env.Coord {
	out := from.Clone()
	for i := 0; i < steps; i++ {
		out = f.Displace(out, dv)
	}
	return out
}

func (f *fakeMachine) ID() int64 { return f.id }
func (f *fakeMachine) ParentID() (int64, bool) { return f.parentID, f.hasParent }
func (f *fakeMachine) Energy() int64 { return f.energy }
func (f *fakeMachine) Cost() isa.CostModel { return f.cost }

func (f *fakeMachine) CallBindingsAt(site env.Coord) (isa.CallBinding, bool) {
	b, ok := f.bindings[site.String()]
	return b, ok
}
func (f *fakeMachine) ResolveLabel(name string) (env.Coord, bool) { return nil, false }

// write directly sets a cell's value for test setup, bypassing
// WorldWrite staging.
func (f *fakeMachine) write(c env.Coord, m molecule.Molecule, owner int64) {
	f.cells[c.String()] = m
	f.owners[c.String()] = owner
}

func (f *fakeMachine) apply(effects isa.Effects) {
	for _, w := range effects.WorldWrites {
		f.cells[w.Target.String()] = w.Value
		if w.SetOwner {
			f.owners[w.Target.String()] = w.OwnerID
		}
	}
}
