// Package layout walks the lowered IR item list and assigns every
// label and instruction an absolute coordinate: a deterministic
// position/direction-vector walker, generalized from core/program.go's
// sequential "operation after operation, core after core" addressing
// (LoadProgramFileFromASM building one flat []Operation per core) to
// Evochora's N-dimensional grid walk with relocation (`.ORG`),
// re-steering (`.DIR`), and `.PLACE`'s direct world-data writes, per
// spec.md 4.5.6.
package layout

import (
	"github.com/evochora/evochora/ast"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/ir"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/token"
)

// CallSite is one CALL instruction's resolved address and its REF/VAL
// actual register names, carried forward for the link package.
type CallSite struct {
	Addr    env.Coord
	RefRegs []string
	ValRegs []string
}

// Layout is the result of walking a program's IR. CodeCells holds
// every cell the sequential instruction walk wrote (opcode cells and
// their operand cells); WorldCells holds every cell a `.PLACE`
// directive wrote directly, per spec.md 4.5.8's split between
// machineCodeLayout and initialWorldObjects.
type Layout struct {
	CodeCells  map[string]molecule.Molecule
	CodeCoord  map[string]env.Coord
	CodePos    map[string]token.Position
	WorldCells map[string]molecule.Molecule
	WorldCoord map[string]env.Coord
	WorldPos   map[string]token.Position
	CallSites  []CallSite
	Labels     map[string]env.Coord
}

func key(c env.Coord) string { return c.String() }

func labelKey(module, name string) string { return module + "\x00" + name }

// Compute assigns addresses to every item in items and resolves every
// label reference to a displacement vector, over an environment of the
// given shape (used only to expand `.PLACE` wildcards). cat supplies
// each opcode's cell width.
func Compute(items []ir.Item, shape []int64, cat *isa.Catalog, d *diag.Diagnostics) *Layout {
	dims := len(shape)
	labelAddrs := firstPass(items, dims, cat, d)

	l := &Layout{
		CodeCells:  map[string]molecule.Molecule{},
		CodeCoord:  map[string]env.Coord{},
		CodePos:    map[string]token.Position{},
		WorldCells: map[string]molecule.Molecule{},
		WorldCoord: map[string]env.Coord{},
		WorldPos:   map[string]token.Position{},
		Labels:     labelAddrs,
	}

	cursor := make(env.Coord, dims)
	dv := initialDV(dims)

	writeCode := func(c env.Coord, m molecule.Molecule, pos token.Position) {
		k := key(c)
		if prev, ok := l.CodePos[k]; ok {
			d.Warning(pos, "cell %s already written at %s; overwriting", c, prev)
		}
		l.CodePos[k] = pos
		l.CodeCells[k] = m
		l.CodeCoord[k] = c.Clone()
	}

	writeWorld := func(c env.Coord, m molecule.Molecule, pos token.Position) {
		k := key(c)
		if prev, ok := l.WorldPos[k]; ok {
			d.Warning(pos, "cell %s already placed at %s; overwriting", c, prev)
		}
		l.WorldPos[k] = pos
		l.WorldCells[k] = m
		l.WorldCoord[k] = c.Clone()
	}

	for _, it := range items {
		switch it.Kind {
		case ir.ItemLabel:
			// bound in pass 1.
		case ir.ItemDirective:
			switch it.DirName {
			case "ORG":
				cursor = vectorToCoord(it.DirVector, dims)
			case "DIR":
				dv = vectorToVector(it.DirVector, dims)
			case "PLACE":
				m := placeValueMolecule(it.Value, d)
				for _, coords := range expandPlacements(it.Placements, shape) {
					writeWorld(vectorToCoord(coords, dims), m, it.Pos)
				}
			}
		case ir.ItemInstruction:
			def, ok := cat.Lookup(it.Opcode)
			if !ok {
				continue
			}
			cells := instructionCells(it, def, dims, labelAddrs, cursor, d)
			if it.Opcode == "CALL" {
				l.CallSites = append(l.CallSites, buildCallSite(it, cursor))
			}
			placeAt(cursor, dv, cells, writeCode, it.Pos)
			cursor = advance(cursor, dv, len(cells))
		}
	}
	return l
}

func initialDV(dims int) molecule.Vector {
	dv := make(molecule.Vector, dims)
	if dims > 0 {
		dv[0] = 1
	}
	return dv
}

func buildCallSite(it ir.Item, addr env.Coord) CallSite {
	cs := CallSite{Addr: addr.Clone()}
	for _, op := range it.RefOperands {
		cs.RefRegs = append(cs.RefRegs, op.RegisterName)
	}
	for _, op := range it.ValOperands {
		cs.ValRegs = append(cs.ValRegs, op.RegisterName)
	}
	return cs
}

func placeAt(origin env.Coord, dv molecule.Vector, cells []molecule.Molecule, write func(env.Coord, molecule.Molecule, token.Position), pos token.Position) {
	c := origin.Clone()
	for _, m := range cells {
		write(c, m, pos)
		c = c.Add(dv)
	}
}

func advance(c env.Coord, dv molecule.Vector, steps int) env.Coord {
	out := c.Clone()
	for i := 0; i < steps; i++ {
		out = out.Add(dv)
	}
	return out
}

// placeValueMolecule renders a `.PLACE` directive's value expression
// into the molecule written at each of its coordinates. Only scalar
// expressions (number or typed literal) are meaningful world data; any
// other operand kind is a layout error.
func placeValueMolecule(op ir.Operand, d *diag.Diagnostics) molecule.Molecule {
	switch op.Kind {
	case ir.OpImmScalar:
		return molecule.New(molecule.Data, op.Scalar)
	case ir.OpTypedImm:
		t, ok := molecule.ParseType(op.TypedName)
		if !ok {
			d.Error(op.Pos, "unknown type %q", op.TypedName)
			t = molecule.Data
		}
		return molecule.New(t, op.Scalar)
	default:
		d.Error(op.Pos, ".PLACE value must be a number or typed literal")
		return molecule.New(molecule.Data, 0)
	}
}

// firstPass computes every label's address without writing any cells,
// so pass 2 can resolve both forward and backward label references.
// `.PLACE` never affects the sequential cursor, since it writes world
// data directly rather than diverting instruction placement.
func firstPass(items []ir.Item, dims int, cat *isa.Catalog, d *diag.Diagnostics) map[string]env.Coord {
	labelAddrs := map[string]env.Coord{}
	cursor := make(env.Coord, dims)
	dv := initialDV(dims)

	for _, it := range items {
		switch it.Kind {
		case ir.ItemLabel:
			labelAddrs[labelKey(it.LabelModule, it.LabelName)] = cursor.Clone()
		case ir.ItemDirective:
			switch it.DirName {
			case "ORG":
				cursor = vectorToCoord(it.DirVector, dims)
			case "DIR":
				dv = vectorToVector(it.DirVector, dims)
			}
		case ir.ItemInstruction:
			def, ok := cat.Lookup(it.Opcode)
			if !ok {
				d.Error(it.Pos, "unknown opcode %q", it.Opcode)
				continue
			}
			cursor = advance(cursor, dv, 1+def.Arity(dims))
		}
	}
	return labelAddrs
}

// instructionCells renders one instruction item into its opcode cell
// plus one cell per operand width, resolving OpLabelRef operands to a
// displacement vector relative to site, the coordinate this instruction
// occupies.
func instructionCells(it ir.Item, def isa.OpcodeDef, dims int, labelAddrs map[string]env.Coord, site env.Coord, d *diag.Diagnostics) []molecule.Molecule {
	cells := []molecule.Molecule{molecule.New(molecule.Code, int64(def.ID))}
	for i, op := range it.Operands {
		if i >= len(def.Args) {
			break
		}
		cells = append(cells, operandCells(op, def.Args[i], dims, labelAddrs, site, d)...)
	}
	return cells
}

func operandCells(op ir.Operand, spec isa.ArgSpec, dims int, labelAddrs map[string]env.Coord, site env.Coord, d *diag.Diagnostics) []molecule.Molecule {
	switch op.Kind {
	case ir.OpReg:
		return []molecule.Molecule{molecule.New(molecule.Data, int64(op.RegisterIndex))}
	case ir.OpImmScalar:
		return []molecule.Molecule{molecule.New(molecule.Data, op.Scalar)}
	case ir.OpTypedImm:
		t, ok := molecule.ParseType(op.TypedName)
		if !ok {
			d.Error(op.Pos, "unknown type %q", op.TypedName)
			t = molecule.Data
		}
		return []molecule.Molecule{molecule.New(t, op.Scalar)}
	case ir.OpImmVector:
		return vectorCells(op.Vector, dims)
	case ir.OpLabelRef:
		target, ok := labelAddrs[labelKey(op.LabelModule, op.LabelName)]
		if !ok {
			d.Error(op.Pos, "unresolved label %q", op.LabelName)
			return vectorCells(make([]int64, dims), dims)
		}
		if spec.Kind != isa.KindVector {
			return []molecule.Molecule{molecule.New(molecule.Data, 0)}
		}
		disp := make([]int64, dims)
		for i := 0; i < dims; i++ {
			t, s := int64(0), int64(0)
			if i < len(target) {
				t = target[i]
			}
			if i < len(site) {
				s = site[i]
			}
			disp[i] = t - s
		}
		return vectorCells(disp, dims)
	default:
		return []molecule.Molecule{molecule.New(molecule.Data, 0)}
	}
}

func vectorCells(v []int64, dims int) []molecule.Molecule {
	out := make([]molecule.Molecule, dims)
	for i := 0; i < dims; i++ {
		if i < len(v) {
			out[i] = molecule.New(molecule.Data, v[i])
		} else {
			out[i] = molecule.New(molecule.Data, 0)
		}
	}
	return out
}

func vectorToCoord(v []int64, dims int) env.Coord {
	out := make(env.Coord, dims)
	for i := 0; i < dims; i++ {
		if i < len(v) {
			out[i] = v[i]
		}
	}
	return out
}

func vectorToVector(v []int64, dims int) molecule.Vector {
	out := make(molecule.Vector, dims)
	for i := 0; i < dims; i++ {
		if i < len(v) {
			out[i] = v[i]
		}
	}
	return out
}

// expandPlacements resolves a `.PLACE` directive's comma-separated
// placement groups, each a pipe-separated per-axis expression, into
// the union of absolute coordinates they denote. A wildcard axis
// ranges over [0, shape[axis]).
func expandPlacements(groups [][]ast.PlacementAxis, shape []int64) [][]int64 {
	var out [][]int64
	for _, group := range groups {
		out = append(out, expandGroup(group, shape)...)
	}
	return out
}

func expandGroup(axes []ast.PlacementAxis, shape []int64) [][]int64 {
	perAxis := make([][]int64, len(axes))
	for i, ax := range axes {
		extent := int64(0)
		if i < len(shape) {
			extent = shape[i]
		}
		perAxis[i] = axisValues(ax, extent)
	}
	return cartesian(perAxis)
}

func axisValues(ax ast.PlacementAxis, extent int64) []int64 {
	switch ax.Kind {
	case ast.PlacementValue:
		return []int64{ax.Value}
	case ast.PlacementRange:
		var out []int64
		for v := ax.From; v <= ax.To; v++ {
			out = append(out, v)
		}
		return out
	case ast.PlacementStepped:
		var out []int64
		step := ax.Step
		if step == 0 {
			step = 1
		}
		if step > 0 {
			for v := ax.From; v <= ax.To; v += step {
				out = append(out, v)
			}
		} else {
			for v := ax.From; v >= ax.To; v += step {
				out = append(out, v)
			}
		}
		return out
	case ast.PlacementWildcard:
		out := make([]int64, extent)
		for i := range out {
			out[i] = int64(i)
		}
		return out
	default:
		return nil
	}
}

func cartesian(axes [][]int64) [][]int64 {
	if len(axes) == 0 {
		return nil
	}
	out := [][]int64{{}}
	for _, values := range axes {
		var next [][]int64
		for _, prefix := range out {
			for _, v := range values {
				point := append(append([]int64{}, prefix...), v)
				next = append(next, point)
			}
		}
		out = next
	}
	return out
}
