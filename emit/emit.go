// Package emit assembles the layout, link, and symbol information
// computed by the earlier phases into the plain maps the artifact
// package freezes into a ProgramArtifact. Grounded on
// core/program.go's PrintProgram (the teacher's own "flatten the
// parsed tree into a printable/storable form" step), generalized from
// a debug-print routine into the compiler's actual output-assembly
// stage per spec.md 4.5.8.
package emit

import (
	"sort"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/layout"
	"github.com/evochora/evochora/link"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/semantics"
	"github.com/evochora/evochora/token"
)

// CellEntry is one occupied coordinate's contents, position-keyed so
// the artifact can serialize it as a flat list.
type CellEntry struct {
	Coord env.Coord
	Value molecule.Molecule
	Pos   token.Position
}

// Output is everything emit produces, consumed directly by
// artifact.New.
type Output struct {
	MachineCode         []CellEntry
	InitialWorldObjects []CellEntry
	LabelAddressToName  map[string]string
	RegisterAliasMap    map[string]string
	ProcNameToParams    map[string][]string
	CallSiteBindings    link.Bindings
}

// Build lifts l's two cell sets straight across: CodeCells (every
// opcode and operand cell the instruction walk wrote) becomes
// MachineCode, and WorldCells (every `.PLACE` value write) becomes
// InitialWorldObjects, per spec.md 4.5.8's "machineCodeLayout has
// type=CODE for opcodes, DATA for args" — the split is by which walk
// produced the cell, not by the cell's own molecule type.
func Build(l *layout.Layout, sym *semantics.SymbolTable) *Output {
	out := &Output{
		LabelAddressToName: map[string]string{},
		RegisterAliasMap:   map[string]string{},
		ProcNameToParams:   map[string][]string{},
		CallSiteBindings:   link.Build(l.CallSites),
	}
	for k, c := range l.CodeCoord {
		out.MachineCode = append(out.MachineCode, CellEntry{Coord: c, Value: l.CodeCells[k], Pos: l.CodePos[k]})
	}
	for k, c := range l.WorldCoord {
		out.InitialWorldObjects = append(out.InitialWorldObjects, CellEntry{Coord: c, Value: l.WorldCells[k], Pos: l.WorldPos[k]})
	}
	sortCells(out.MachineCode)
	sortCells(out.InitialWorldObjects)

	for key, addr := range l.Labels {
		name := splitLabelKey(key)
		out.LabelAddressToName[addr.String()] = name
	}
	for _, s := range sym.All() {
		switch s.Kind {
		case semantics.REGISTER_ALIAS:
			out.RegisterAliasMap[s.Name] = s.AliasTarget
		case semantics.PROCEDURE:
			params := s.ProcParams
			if len(s.ProcRefParams) > 0 || len(s.ProcValParams) > 0 {
				params = append(append([]string{}, s.ProcRefParams...), s.ProcValParams...)
			}
			out.ProcNameToParams[s.Name] = params
		}
	}
	return out
}

// sortCells orders entries lexicographically by coordinate, so a
// compiled artifact's machine-code listing is deterministic and, for
// the common default direction vector, matches execution order.
func sortCells(entries []CellEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Coord, entries[j].Coord
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// splitLabelKey strips the module prefix layout.labelKey joins on,
// keeping only the bare name for display purposes.
func splitLabelKey(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[i+1:]
		}
	}
	return key
}
