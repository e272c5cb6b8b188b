// Package link turns the addresses layout computed for every CALL
// instruction into the caller-register-name binding lists organism
// CALL/RET handlers read at runtime through Program.CallBindingsAt.
// Grounded on core/program.go's two-pass label resolution finishing
// step (operand displacement -> absolute jump target), generalized
// from "resolve the jump" to "resolve the jump and record which
// caller registers feed the callee's formal parameters" per spec.md
// 4.5.7.
package link

import (
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/layout"
)

// Bindings maps a CALL instruction's own coordinate (env.Coord.String)
// to the binding list its RET counterpart restores from.
type Bindings map[string]isa.CallBinding

// Build converts every layout.CallSite into an isa.CallBinding, in
// REF-then-VAL order: REF actuals occupy the low %FPR indices so the
// CALL/RET handlers' shared fprName(i) indexing lines up for both
// binding kinds.
func Build(sites []layout.CallSite) Bindings {
	out := make(Bindings, len(sites))
	for _, s := range sites {
		b := isa.CallBinding{}
		for _, reg := range s.RefRegs {
			b.Actuals = append(b.Actuals, isa.BindingActual{RegisterName: reg, IsRef: true})
		}
		for _, reg := range s.ValRegs {
			b.Actuals = append(b.Actuals, isa.BindingActual{RegisterName: reg, IsRef: false})
		}
		out[s.Addr.String()] = b
	}
	return out
}

// Lookup resolves the binding recorded for a CALL at site, matching
// organism.Program.CallBindingsAt's signature so Bindings can back an
// artifact's implementation directly.
func (b Bindings) Lookup(site env.Coord) (isa.CallBinding, bool) {
	v, ok := b[site.String()]
	return v, ok
}
