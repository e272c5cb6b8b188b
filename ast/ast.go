// Package ast defines the parse tree produced by package parser:
// labels, instructions, procedures, scopes, and directives. Grounded
// on core/program.go's EntryBlock/InstructionGroup/Operation tree,
// generalized from "instruction groups" (a CGRA tile's fixed VLIW
// bundles) to a full statement-level tree with tagged-variant nodes
// per spec.md 9's "deep inheritance -> tagged variant" design note.
package ast

import "github.com/evochora/evochora/token"

// Node is any top-level statement the parser produces.
type Node interface {
	node()
	Position() token.Position
}

// Arg is an instruction or directive argument expression.
type Arg struct {
	Kind ArgKind
	Pos  token.Position

	Number     int64    // NumberLit
	TypedType  string   // TypedLit: CODE/DATA/ENERGY/STRUCTURE
	TypedValue int64    // TypedLit
	Vector     []int64  // VectorLit
	Register   string   // RegisterArg: physical or alias name, no leading %
	Name       string    // IdentifierArg: constant or label reference, possibly qualified (Alias.symbol)
}

// ArgKind distinguishes the syntactic shape of an Arg.
type ArgKind int

const (
	NumberLit ArgKind = iota
	TypedLit
	VectorLit
	RegisterArg
	IdentifierArg
)

// Label is a `name:` statement. It binds to the address of the
// following instruction during layout.
type Label struct {
	Pos  token.Position
	Name string
}

func (*Label) node()                     {}
func (l *Label) Position() token.Position { return l.Pos }

// Instruction is an opcode plus its argument expressions. CALL
// additionally carries REF and VAL actual-argument lists, keyed by
// formal parameter position.
type Instruction struct {
	Pos     token.Position
	Opcode  string
	Args    []Arg
	RefArgs []Arg // CALL only: actuals bound by reference
	ValArgs []Arg // CALL only: actuals bound by value
}

func (*Instruction) node()                       {}
func (i *Instruction) Position() token.Position { return i.Pos }

// Procedure is a `.PROC name WITH p1, p2 ... .ENDP` block, or one
// declared with explicit REF/VAL parameter lists.
type Procedure struct {
	Pos        token.Position
	Name       string
	Params     []string // WITH-style positional formal names
	RefParams  []string
	ValParams  []string
	Body       []Node
}

func (*Procedure) node()                     {}
func (p *Procedure) Position() token.Position { return p.Pos }

// Scope is a `.SCOPE name ... .ENDS` lexical block used for
// .PREG-style local register aliasing.
type Scope struct {
	Pos  token.Position
	Name string
	Body []Node
}

func (*Scope) node()                     {}
func (s *Scope) Position() token.Position { return s.Pos }

// Directive is any directive not otherwise modeled as its own node:
// .ORG, .DIR, .PLACE, .DEFINE, .REG, .PREG.
type Directive struct {
	Pos  token.Position
	Name string // without leading '.', upper-cased
	Args []Arg
	// Placements holds one entry per comma-separated placement group
	// in a .PLACE directive; each inner slice is the per-axis
	// expression (single value, a..b range, a:s:b stepped range, or *
	// wildcard), in axis order. Empty for every other directive.
	Placements [][]PlacementAxis
}

func (*Directive) node()                     {}
func (d *Directive) Position() token.Position { return d.Pos }

// PlacementAxisKind distinguishes one axis of a .PLACE coordinate
// expression.
type PlacementAxisKind int

const (
	PlacementValue PlacementAxisKind = iota
	PlacementRange
	PlacementStepped
	PlacementWildcard
)

// PlacementAxis is one axis of one .PLACE placement group.
type PlacementAxis struct {
	Kind            PlacementAxisKind
	Value           int64 // PlacementValue
	From, To        int64 // PlacementRange, PlacementStepped
	Step            int64 // PlacementStepped
}
