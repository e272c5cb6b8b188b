// Package semantics resolves the parsed statement tree into a symbol
// table and validates it: module-qualified name resolution, register
// alias and constant definitions, and per-instruction arity checks
// against the isa catalog. Grounded on core/program.go's two-pass
// label resolution (first collect every EntryBlock's addressable
// names, then resolve operand references against it), generalized
// from a single flat label namespace to spec.md 4.5.4's per-module
// symbol table with qualified/unqualified/export visibility rules.
package semantics

import "github.com/evochora/evochora/token"

// Kind classifies a declared name.
type Kind int

const (
	PROCEDURE Kind = iota
	LABEL
	CONSTANT
	REGISTER_ALIAS
	PARAMETER
	VARIABLE
)

func (k Kind) String() string {
	switch k {
	case PROCEDURE:
		return "PROCEDURE"
	case LABEL:
		return "LABEL"
	case CONSTANT:
		return "CONSTANT"
	case REGISTER_ALIAS:
		return "REGISTER_ALIAS"
	case PARAMETER:
		return "PARAMETER"
	case VARIABLE:
		return "VARIABLE"
	default:
		return "UNKNOWN"
	}
}

// Symbol is one declared name: a label, procedure, constant, or
// register alias, scoped to the module it was declared in (the empty
// module name is the implicit global module that every source file
// without a `.MODULE` declaration belongs to).
type Symbol struct {
	ID     int64
	Name   string
	Kind   Kind
	Module string
	Pos    token.Position

	// ConstValue is the resolved value of a CONSTANT.
	ConstValue int64
	// AliasTarget is the physical register name (no leading '%') a
	// REGISTER_ALIAS resolves to.
	AliasTarget string
	// ProcRefParams/ProcValParams/ProcParams mirror ast.Procedure for a
	// PROCEDURE symbol, so call sites can validate REF/VAL argument
	// counts without re-walking the AST.
	ProcRefParams []string
	ProcValParams []string
	ProcParams    []string
}

// SymbolTable is an arena of every declared Symbol, indexed by id and
// by (module, name) for lookup.
type SymbolTable struct {
	byID   map[int64]*Symbol
	byName map[string]map[string]*Symbol // module -> name -> symbol
	nextID int64
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byID:   make(map[int64]*Symbol),
		byName: make(map[string]map[string]*Symbol),
	}
}

// Define records a new symbol, reporting the existing one and false if
// (module, name) is already taken.
func (t *SymbolTable) Define(module, name string, kind Kind, pos token.Position) (*Symbol, bool) {
	if existing, ok := t.Lookup(module, name); ok {
		return existing, false
	}
	t.nextID++
	sym := &Symbol{ID: t.nextID, Name: name, Kind: kind, Module: module, Pos: pos}
	t.byID[sym.ID] = sym
	if t.byName[module] == nil {
		t.byName[module] = make(map[string]*Symbol)
	}
	t.byName[module][name] = sym
	return sym, true
}

// Lookup finds a symbol declared in exactly the given module.
func (t *SymbolTable) Lookup(module, name string) (*Symbol, bool) {
	m, ok := t.byName[module]
	if !ok {
		return nil, false
	}
	s, ok := m[name]
	return s, ok
}

// ByID returns the symbol with the given id.
func (t *SymbolTable) ByID(id int64) (*Symbol, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// All returns every symbol, in declaration order.
func (t *SymbolTable) All() []*Symbol {
	out := make([]*Symbol, 0, len(t.byID))
	for i := int64(1); i <= t.nextID; i++ {
		if s, ok := t.byID[i]; ok {
			out = append(out, s)
		}
	}
	return out
}

// TokenMapEntry records what one identifier-shaped token in the source
// turned out to mean, for tooling (hover info, go-to-definition) per
// spec.md 4.5.4.
type TokenMapEntry struct {
	Pos          token.Position
	Text         string
	SymbolKind   Kind
	Scope        string // the module the resolution happened in
	IsDefinition bool
}
