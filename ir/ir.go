// Package ir lowers the validated statement tree into a flat,
// name-resolved intermediate form: one Item per label, instruction, or
// position/placement directive, each operand already reduced to a
// register index, an immediate value, or a (module, name) label
// reference. Grounded on core/program.go's Operation/OperandList
// (post-parse, pre-emission instruction shape), generalized from a
// fixed two-operand VLIW slot to Evochora's variable-arity, multi-kind
// operand model per spec.md 4.5.5.
package ir

import (
	"strconv"
	"strings"

	"github.com/evochora/evochora/ast"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/organism"
	"github.com/evochora/evochora/semantics"
	"github.com/evochora/evochora/token"
)

// OperandKind distinguishes how an Item's argument was expressed.
type OperandKind int

const (
	OpReg OperandKind = iota
	OpImmScalar
	OpImmVector
	OpLabelRef
	OpTypedImm
)

// Operand is one fully name-resolved instruction or directive
// argument.
type Operand struct {
	Kind OperandKind
	Pos  token.Position

	RegisterIndex int
	RegisterName  string // canonical physical name, e.g. "%DR3"

	Scalar int64
	Vector []int64

	LabelModule string
	LabelName   string

	TypedName string // CODE/DATA/ENERGY/STRUCTURE
}

// ItemKind distinguishes the three shapes an Item can take.
type ItemKind int

const (
	ItemLabel ItemKind = iota
	ItemInstruction
	ItemDirective
)

// Item is one lowered statement. Which fields are populated depends on
// Kind.
type Item struct {
	Kind ItemKind
	Pos  token.Position

	// ItemLabel
	LabelModule string
	LabelName   string

	// ItemInstruction
	Opcode      string
	Operands    []Operand
	RefOperands []Operand
	ValOperands []Operand

	// ItemDirective: DirName is "ORG", "DIR", "PLACE", "PROC_ENTER", or
	// "PROC_EXIT". ORG/DIR carry a single vector in DirVector;
	// PROC_ENTER carries the procedure's total arity in Arity. PLACE
	// carries the molecule to write in Value and the raw placement
	// expression in Placements, left unexpanded (layout needs the
	// environment's shape to resolve wildcards).
	DirName    string
	DirVector  []int64
	Arity      int
	Value      Operand
	Placements [][]ast.PlacementAxis
}

type generator struct {
	symbols *semantics.SymbolTable
	modules interface {
		Lookup(module, alias string) (string, bool)
	}
	d      *diag.Diagnostics
	scopes []map[string]string
}

// ModuleResolver lets Generate accept the preprocess.ModuleRegistry
// without an import cycle; compiler wires the adapter.
type ModuleResolver interface {
	Lookup(module, alias string) (string, bool)
}

// Generate lowers nodes into a flat Item list, using sym (produced by
// semantics.Analyze) to resolve constants and register aliases and
// mr to resolve module-qualified identifiers to canonical module
// names.
func Generate(nodes []ast.Node, sym *semantics.SymbolTable, mr ModuleResolver, d *diag.Diagnostics) []Item {
	g := &generator{symbols: sym, modules: mr, d: d}
	return g.walk(nodes)
}

func (g *generator) pushScope() { g.scopes = append(g.scopes, map[string]string{}) }
func (g *generator) popScope()  { g.scopes = g.scopes[:len(g.scopes)-1] }

func (g *generator) walk(nodes []ast.Node) []Item {
	var out []Item
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Label:
			out = append(out, Item{Kind: ItemLabel, Pos: v.Pos, LabelModule: v.Pos.Module, LabelName: v.Name})
		case *ast.Instruction:
			out = append(out, g.lowerInstruction(v))
		case *ast.Directive:
			if item, ok := g.lowerDirective(v); ok {
				out = append(out, item)
			}
		case *ast.Procedure:
			out = append(out, g.lowerProcedure(v)...)
		case *ast.Scope:
			g.pushScope()
			out = append(out, g.walk(v.Body)...)
			g.popScope()
		}
	}
	return out
}

func (g *generator) lowerProcedure(p *ast.Procedure) []Item {
	var out []Item
	if p.Name != "" {
		out = append(out, Item{Kind: ItemLabel, Pos: p.Pos, LabelModule: p.Pos.Module, LabelName: p.Name})
	}
	arity := len(p.Params) + len(p.RefParams) + len(p.ValParams)
	out = append(out, Item{Kind: ItemDirective, Pos: p.Pos, DirName: "PROC_ENTER", Arity: arity})
	g.pushScope()
	// formal parameters name %FPR0..%FPRk-1, in declaration order.
	formals := append(append(append([]string{}, p.Params...), p.RefParams...), p.ValParams...)
	for i, name := range formals {
		g.scopes[len(g.scopes)-1][name] = "FPR" + strconv.Itoa(i)
	}
	out = append(out, g.walk(p.Body)...)
	g.popScope()
	out = append(out, Item{Kind: ItemDirective, Pos: p.Pos, DirName: "PROC_EXIT"})
	return out
}

func (g *generator) lowerDirective(d *ast.Directive) (Item, bool) {
	switch d.Name {
	case "ORG":
		return Item{Kind: ItemDirective, Pos: d.Pos, DirName: "ORG", DirVector: g.argsToVector(d.Args)}, true
	case "DIR":
		return Item{Kind: ItemDirective, Pos: d.Pos, DirName: "DIR", DirVector: g.argsToVector(d.Args)}, true
	case "PLACE":
		if len(d.Args) != 1 {
			g.d.Error(d.Pos, ".PLACE requires a value expression before its coordinate group(s)")
			return Item{}, false
		}
		value := g.lowerArg(d.Pos.Module, d.Args[0])
		return Item{Kind: ItemDirective, Pos: d.Pos, DirName: "PLACE", Value: value, Placements: d.Placements}, true
	case "PREG":
		// .PREG binds a name to a physical register for the rest of the
		// enclosing .PROC/.SCOPE block; it lowers to no item of its own.
		if len(g.scopes) > 0 && len(d.Args) == 2 {
			g.scopes[len(g.scopes)-1][d.Args[0].Name] = d.Args[1].Register
		}
		return Item{}, false
	default:
		// DEFINE/REG/MODULE/IMPORT/EXPORT are fully consumed by
		// semantic analysis; they name no runtime state to lower.
		return Item{}, false
	}
}

// argsToVector accepts either a single vector-literal argument or a
// run of scalar arguments, one per axis.
func (g *generator) argsToVector(args []ast.Arg) []int64 {
	if len(args) == 1 && args[0].Kind == ast.VectorLit {
		return args[0].Vector
	}
	out := make([]int64, 0, len(args))
	for _, a := range args {
		out = append(out, constValue(a))
	}
	return out
}

func constValue(a ast.Arg) int64 {
	if a.Kind == ast.TypedLit {
		return a.TypedValue
	}
	return a.Number
}

func (g *generator) lowerInstruction(inst *ast.Instruction) Item {
	item := Item{Kind: ItemInstruction, Pos: inst.Pos, Opcode: inst.Opcode}
	for _, a := range inst.Args {
		item.Operands = append(item.Operands, g.lowerArg(inst.Pos.Module, a))
	}
	for _, a := range inst.RefArgs {
		item.RefOperands = append(item.RefOperands, g.lowerArg(inst.Pos.Module, a))
	}
	for _, a := range inst.ValArgs {
		item.ValOperands = append(item.ValOperands, g.lowerArg(inst.Pos.Module, a))
	}
	return item
}

func (g *generator) lowerArg(module string, a ast.Arg) Operand {
	switch a.Kind {
	case ast.RegisterArg:
		phys := g.resolveRegister(a.Register)
		idx, _ := organism.PhysicalRegisterIndex(phys)
		return Operand{Kind: OpReg, Pos: a.Pos, RegisterIndex: idx, RegisterName: "%" + phys}
	case ast.NumberLit:
		return Operand{Kind: OpImmScalar, Pos: a.Pos, Scalar: a.Number}
	case ast.TypedLit:
		return Operand{Kind: OpTypedImm, Pos: a.Pos, Scalar: a.TypedValue, TypedName: a.TypedType}
	case ast.VectorLit:
		return Operand{Kind: OpImmVector, Pos: a.Pos, Vector: a.Vector}
	case ast.IdentifierArg:
		if phys := g.resolveRegister(a.Name); phys != a.Name {
			idx, _ := organism.PhysicalRegisterIndex(phys)
			return Operand{Kind: OpReg, Pos: a.Pos, RegisterIndex: idx, RegisterName: "%" + phys}
		}
		return g.lowerIdentifier(module, a)
	default:
		return Operand{Kind: OpImmScalar, Pos: a.Pos}
	}
}

func (g *generator) resolveRegister(name string) string {
	if _, ok := organism.PhysicalRegisterIndex(name); ok {
		return name
	}
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if phys, ok := g.scopes[i][name]; ok {
			return phys
		}
	}
	if sym, ok := g.symbols.Lookup("", name); ok && sym.Kind == semantics.REGISTER_ALIAS {
		return sym.AliasTarget
	}
	return name
}

func (g *generator) lowerIdentifier(module string, a ast.Arg) Operand {
	name := a.Name
	lookupModule := module
	symbolName := name
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		if canonical, ok := g.modules.Lookup(module, parts[0]); ok {
			lookupModule = canonical
			symbolName = parts[1]
		}
	}
	sym, ok := g.symbols.Lookup(lookupModule, symbolName)
	if !ok {
		sym, ok = g.symbols.Lookup("", symbolName)
		lookupModule = ""
	}
	if !ok {
		return Operand{Kind: OpLabelRef, Pos: a.Pos, LabelModule: lookupModule, LabelName: symbolName}
	}
	switch sym.Kind {
	case semantics.CONSTANT:
		return Operand{Kind: OpImmScalar, Pos: a.Pos, Scalar: sym.ConstValue}
	default:
		return Operand{Kind: OpLabelRef, Pos: a.Pos, LabelModule: lookupModule, LabelName: symbolName}
	}
}

// ArgWidth reports how many instruction-stream cells one operand
// occupies, matching isa.ArgSpec.Width for the corresponding spec.
func ArgWidth(spec isa.ArgSpec, dims int) int {
	return spec.Width(dims)
}
