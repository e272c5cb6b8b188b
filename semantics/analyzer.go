package semantics

import (
	"strconv"
	"strings"

	"github.com/evochora/evochora/ast"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/organism"
	"github.com/evochora/evochora/preprocess"
	"github.com/evochora/evochora/token"
)

// globalModule is the implicit module every file belongs to before any
// `.MODULE` declaration, and the fallback scope an unqualified
// identifier resolves against once its own module comes up empty.
const globalModule = ""

// Result is the output of Analyze: the populated symbol table and the
// token map, alongside any diagnostics recorded on the Diagnostics
// passed in.
type Result struct {
	Symbols   *SymbolTable
	TokenMap  []TokenMapEntry
	Modules   *preprocess.ModuleRegistry
}

// localScope is one .PROC/.SCOPE nesting level's register aliases
// (declared by `.PREG`), distinct from the symbol table's module-wide
// `.REG` aliases because a PREG name is only visible inside the block
// that declares it.
type localScope struct {
	aliases map[string]string // alias -> physical register name
}

type analyzer struct {
	cat     *isa.Catalog
	diag    *diag.Diagnostics
	modules *preprocess.ModuleRegistry
	symbols *SymbolTable
	tokens  []TokenMapEntry
	scopes  []*localScope
}

// Analyze walks nodes (as produced by parser.Parse) building the
// symbol table, validating every instruction's arity against cat, and
// resolving every identifier and register operand it finds. modules is
// the registry produced by preprocess.Process, used for qualified
// (Alias.name) resolution and export visibility.
func Analyze(nodes []ast.Node, modules *preprocess.ModuleRegistry, cat *isa.Catalog, d *diag.Diagnostics) *Result {
	a := &analyzer{cat: cat, diag: d, modules: modules, symbols: NewSymbolTable()}
	a.collect(nodes)
	a.validate(nodes)
	return &Result{Symbols: a.symbols, TokenMap: a.tokens, Modules: modules}
}

func (a *analyzer) record(pos token.Position, text string, kind Kind, scope string, isDef bool) {
	a.tokens = append(a.tokens, TokenMapEntry{Pos: pos, Text: text, SymbolKind: kind, Scope: scope, IsDefinition: isDef})
}

// collect is the first pass: every LABEL, PROCEDURE, CONSTANT, and
// global REGISTER_ALIAS gets defined before any reference is resolved,
// so forward references (a CALL to a procedure declared later in the
// file) work.
func (a *analyzer) collect(nodes []ast.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Label:
			mod := v.Pos.Module
			if sym, ok := a.symbols.Define(mod, v.Name, LABEL, v.Pos); ok {
				a.record(v.Pos, v.Name, LABEL, mod, true)
			} else {
				a.diag.Error(v.Pos, "label %q already defined at %s", v.Name, sym.Pos)
			}
		case *ast.Procedure:
			mod := v.Pos.Module
			if v.Name != "" {
				sym, ok := a.symbols.Define(mod, v.Name, PROCEDURE, v.Pos)
				if !ok {
					a.diag.Error(v.Pos, "procedure %q already defined at %s", v.Name, sym.Pos)
				} else {
					sym.ProcRefParams = v.RefParams
					sym.ProcValParams = v.ValParams
					sym.ProcParams = v.Params
					a.record(v.Pos, v.Name, PROCEDURE, mod, true)
				}
			}
			a.collect(v.Body)
		case *ast.Scope:
			a.collect(v.Body)
		case *ast.Directive:
			a.collectDirective(v)
		}
	}
}

func (a *analyzer) collectDirective(d *ast.Directive) {
	mod := d.Pos.Module
	switch d.Name {
	case "DEFINE":
		if len(d.Args) != 2 || d.Args[0].Kind != ast.IdentifierArg {
			a.diag.Error(d.Pos, ".DEFINE requires a name and a value")
			return
		}
		name := d.Args[0].Name
		value := constArgValue(d.Args[1])
		sym, ok := a.symbols.Define(mod, name, CONSTANT, d.Pos)
		if !ok {
			a.diag.Error(d.Pos, "constant %q already defined at %s", name, sym.Pos)
			return
		}
		sym.ConstValue = value
		a.record(d.Args[0].Pos, name, CONSTANT, mod, true)
	case "REG":
		if len(d.Args) != 2 || d.Args[0].Kind != ast.IdentifierArg || d.Args[1].Kind != ast.RegisterArg {
			a.diag.Error(d.Pos, ".REG requires an alias name and a physical register")
			return
		}
		name := d.Args[0].Name
		sym, ok := a.symbols.Define(globalModule, name, REGISTER_ALIAS, d.Pos)
		if !ok {
			a.diag.Error(d.Pos, "register alias %q already defined at %s", name, sym.Pos)
			return
		}
		sym.AliasTarget = d.Args[1].Register
		a.record(d.Args[0].Pos, name, REGISTER_ALIAS, globalModule, true)
	}
}

func constArgValue(arg ast.Arg) int64 {
	switch arg.Kind {
	case ast.NumberLit:
		return arg.Number
	case ast.TypedLit:
		return arg.TypedValue
	default:
		return 0
	}
}

// validate is the second pass: per-instruction arity checks and
// identifier/register resolution, now that every name is collected.
func (a *analyzer) validate(nodes []ast.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Procedure:
			a.pushScope()
			for _, p := range v.Params {
				a.defineParameter(v.Pos.Module, p, v.Pos)
			}
			for _, p := range v.RefParams {
				a.defineParameter(v.Pos.Module, p, v.Pos)
			}
			for _, p := range v.ValParams {
				a.defineParameter(v.Pos.Module, p, v.Pos)
			}
			a.validate(v.Body)
			a.popScope()
		case *ast.Scope:
			a.pushScope()
			a.validate(v.Body)
			a.popScope()
		case *ast.Directive:
			a.validateDirective(v)
		case *ast.Instruction:
			a.validateInstruction(v)
		}
	}
}

func (a *analyzer) defineParameter(mod, name string, pos token.Position) {
	if len(a.scopes) > 0 {
		top := a.scopes[len(a.scopes)-1]
		top.aliases[name] = "FPR" + strconv.Itoa(len(top.aliases))
	}
	a.record(pos, name, PARAMETER, mod, true)
}

func (a *analyzer) pushScope() { a.scopes = append(a.scopes, &localScope{aliases: map[string]string{}}) }
func (a *analyzer) popScope()  { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *analyzer) validateDirective(d *ast.Directive) {
	if d.Name == "PREG" {
		if len(d.Args) != 2 || d.Args[0].Kind != ast.IdentifierArg || d.Args[1].Kind != ast.RegisterArg {
			a.diag.Error(d.Pos, ".PREG requires an alias name and a physical register")
			return
		}
		if len(a.scopes) == 0 {
			a.diag.Error(d.Pos, ".PREG used outside a .PROC/.SCOPE block")
			return
		}
		top := a.scopes[len(a.scopes)-1]
		top.aliases[d.Args[0].Name] = d.Args[1].Register
		a.record(d.Args[0].Pos, d.Args[0].Name, REGISTER_ALIAS, d.Pos.Module, true)
	}
}

func (a *analyzer) validateInstruction(inst *ast.Instruction) {
	def, ok := a.cat.Lookup(inst.Opcode)
	if !ok {
		a.diag.Error(inst.Pos, "unknown opcode %q", inst.Opcode)
		return
	}
	if len(inst.Args) != len(def.Args) {
		a.diag.Error(inst.Pos, "%s expects %d argument(s), got %d", inst.Opcode, len(def.Args), len(inst.Args))
	}
	for _, arg := range inst.Args {
		a.resolveArg(inst.Pos.Module, arg)
	}
	if inst.Opcode == "CALL" {
		a.validateCallBindings(inst)
	} else if len(inst.RefArgs) != 0 || len(inst.ValArgs) != 0 {
		a.diag.Error(inst.Pos, "%s does not take REF/VAL arguments", inst.Opcode)
	}
}

func (a *analyzer) validateCallBindings(inst *ast.Instruction) {
	for _, arg := range inst.RefArgs {
		a.resolveArg(inst.Pos.Module, arg)
	}
	for _, arg := range inst.ValArgs {
		a.resolveArg(inst.Pos.Module, arg)
	}
	if len(inst.Args) != 1 || inst.Args[0].Kind != ast.IdentifierArg {
		return
	}
	sym := a.resolveIdentifier(inst.Pos.Module, inst.Args[0].Name, inst.Args[0].Pos)
	if sym == nil || sym.Kind != PROCEDURE {
		return
	}
	wantRef, wantVal := len(sym.ProcRefParams), len(sym.ProcValParams)
	if len(sym.ProcParams) > 0 {
		wantVal = len(sym.ProcParams)
	}
	if len(inst.RefArgs) != wantRef {
		a.diag.Error(inst.Pos, "call to %s expects %d REF argument(s), got %d", sym.Name, wantRef, len(inst.RefArgs))
	}
	if len(inst.ValArgs) != wantVal {
		a.diag.Error(inst.Pos, "call to %s expects %d VAL argument(s), got %d", sym.Name, wantVal, len(inst.ValArgs))
	}
}

func (a *analyzer) resolveArg(module string, arg ast.Arg) {
	switch arg.Kind {
	case ast.RegisterArg:
		a.resolveRegister(module, arg.Register, arg.Pos)
	case ast.IdentifierArg:
		for i := len(a.scopes) - 1; i >= 0; i-- {
			if _, ok := a.scopes[i].aliases[arg.Name]; ok {
				a.record(arg.Pos, arg.Name, REGISTER_ALIAS, module, false)
				return
			}
		}
		a.resolveIdentifier(module, arg.Name, arg.Pos)
	}
}

// resolveRegister accepts a bare physical register name (DR0, PR1,
// FPR2, LR3) or a declared alias, checking local .PREG scopes from
// innermost outward, then global .REG aliases.
func (a *analyzer) resolveRegister(module, name string, pos token.Position) {
	if _, ok := organism.PhysicalRegisterIndex(name); ok {
		a.record(pos, name, VARIABLE, module, false)
		return
	}
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if phys, ok := a.scopes[i].aliases[name]; ok {
			a.record(pos, name, REGISTER_ALIAS, module, false)
			_ = phys
			return
		}
	}
	if sym, ok := a.symbols.Lookup(globalModule, name); ok && sym.Kind == REGISTER_ALIAS {
		a.record(pos, name, REGISTER_ALIAS, module, false)
		return
	}
	a.diag.Error(pos, "unknown register %q", name)
}

// resolveIdentifier resolves a constant/label/procedure reference,
// qualified (Alias.symbol) or not, per spec.md 4.5.4's visibility
// rules: qualified references only see the target module's exports;
// unqualified references check the current module, then the implicit
// global module.
func (a *analyzer) resolveIdentifier(module, name string, pos token.Position) *Symbol {
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		alias, symbolName := parts[0], parts[1]
		info := a.modules.Modules[module]
		if info == nil {
			a.diag.Error(pos, "%q referenced outside any module", name)
			return nil
		}
		canonical, ok := info.Imports[alias]
		if !ok {
			a.diag.Error(pos, "module alias %q is not imported", alias)
			return nil
		}
		targetInfo := a.modules.Modules[canonical]
		if targetInfo == nil || !targetInfo.Exports[symbolName] {
			a.diag.Error(pos, "%q is not exported by module %q", symbolName, canonical)
			return nil
		}
		sym, ok := a.symbols.Lookup(canonical, symbolName)
		if !ok {
			a.diag.Error(pos, "unresolved identifier %q", name)
			return nil
		}
		a.record(pos, name, sym.Kind, canonical, false)
		return sym
	}
	if sym, ok := a.symbols.Lookup(module, name); ok {
		a.record(pos, name, sym.Kind, module, false)
		return sym
	}
	if sym, ok := a.symbols.Lookup(globalModule, name); ok {
		a.record(pos, name, sym.Kind, globalModule, false)
		return sym
	}
	a.diag.Error(pos, "unresolved identifier %q", name)
	return nil
}
