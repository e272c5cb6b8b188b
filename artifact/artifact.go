// Package artifact defines ProgramArtifact, the compiler's frozen
// output: everything an organism.Program and a bootstrap routine need
// to run a compiled source file. Grounded on core/program.go's Program
// struct (the teacher's own "parsed, ready-to-load" container),
// generalized from one core's flat []EntryBlock to Evochora's sparse
// N-dimensional cell map plus debug/linking side tables per spec.md
// 4.5.8.
package artifact

import (
	"encoding/json"

	"github.com/evochora/evochora/emit"
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/semantics"
)

// CellValue is the JSON-friendly encoding of one placed molecule: its
// absolute coordinate and its encoded int64 value.
type CellValue struct {
	Coord []int64 `json:"coord"`
	Value int64   `json:"value"`
}

// SourceMapEntry ties one placed cell back to the source position
// that produced it.
type SourceMapEntry struct {
	Coord []int64 `json:"coord"`
	File  string  `json:"file"`
	Line  int     `json:"line"`
	Column int    `json:"column"`
}

// TokenMapEntry mirrors semantics.TokenMapEntry in a JSON-friendly
// shape, for editor tooling consuming a compiled artifact.
type TokenMapEntry struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	Text         string `json:"text"`
	SymbolKind   string `json:"symbolKind"`
	Scope        string `json:"scope"`
	IsDefinition bool   `json:"isDefinition"`
}

// CallBindingEntry is one CALL site's actual-argument list, keyed by
// the site's coordinate in callSiteBindings.
type CallBindingEntry struct {
	RegisterName string `json:"registerName"`
	IsRef        bool   `json:"isRef"`
}

// ProgramArtifact is the compiler's complete, immutable output for one
// source program. It is frozen by New and never mutated afterward;
// every exported method is a read.
type ProgramArtifact struct {
	ProgramID string `json:"programId"`

	MachineCodeLayout   []CellValue `json:"machineCodeLayout"`
	InitialWorldObjects []CellValue `json:"initialWorldObjects"`

	LabelAddressToName map[string]string `json:"labelAddressToName"`
	RegisterAliasMap   map[string]string `json:"registerAliasMap"`
	ProcNameToParams   map[string][]string `json:"procNameToParamNames"`

	SourceMap []SourceMapEntry `json:"sourceMap"`
	TokenMap  []TokenMapEntry  `json:"tokenMap"`

	CallSiteBindings map[string][]CallBindingEntry `json:"callSiteBindings"`

	dims int

	cells        map[string]molecule.Molecule
	labelByName  map[string]env.Coord
}

// New freezes a ProgramArtifact from one compiler run's emit output,
// semantic token map, and declared environment dimensionality.
func New(programID string, out *emit.Output, tokens []semantics.TokenMapEntry, dims int) *ProgramArtifact {
	a := &ProgramArtifact{
		ProgramID:           programID,
		LabelAddressToName:  out.LabelAddressToName,
		RegisterAliasMap:    out.RegisterAliasMap,
		ProcNameToParams:    out.ProcNameToParams,
		CallSiteBindings:    map[string][]CallBindingEntry{},
		dims:                dims,
		cells:               map[string]molecule.Molecule{},
		labelByName:         map[string]env.Coord{},
	}
	for _, entry := range out.MachineCode {
		a.MachineCodeLayout = append(a.MachineCodeLayout, CellValue{Coord: []int64(entry.Coord), Value: entry.Value.Encode()})
		a.cells[entry.Coord.String()] = entry.Value
		a.SourceMap = append(a.SourceMap, SourceMapEntry{
			Coord: []int64(entry.Coord), File: entry.Pos.File, Line: entry.Pos.Line, Column: entry.Pos.Column,
		})
	}
	for _, entry := range out.InitialWorldObjects {
		a.InitialWorldObjects = append(a.InitialWorldObjects, CellValue{Coord: []int64(entry.Coord), Value: entry.Value.Encode()})
		a.cells[entry.Coord.String()] = entry.Value
	}
	for site, binding := range out.CallSiteBindings {
		for _, actual := range binding.Actuals {
			a.CallSiteBindings[site] = append(a.CallSiteBindings[site], CallBindingEntry{RegisterName: actual.RegisterName, IsRef: actual.IsRef})
		}
	}
	for addr, name := range out.LabelAddressToName {
		a.labelByName[name] = coordFromString(addr, dims)
	}
	for _, t := range tokens {
		a.TokenMap = append(a.TokenMap, TokenMapEntry{
			File: t.Pos.File, Line: t.Pos.Line, Column: t.Pos.Column,
			Text: t.Text, SymbolKind: t.SymbolKind.String(), Scope: t.Scope, IsDefinition: t.IsDefinition,
		})
	}
	return a
}

// CallBindingsAt implements organism.Program.
func (a *ProgramArtifact) CallBindingsAt(site env.Coord) (isa.CallBinding, bool) {
	entries, ok := a.CallSiteBindings[site.String()]
	if !ok {
		return isa.CallBinding{}, false
	}
	b := isa.CallBinding{}
	for _, e := range entries {
		b.Actuals = append(b.Actuals, isa.BindingActual{RegisterName: e.RegisterName, IsRef: e.IsRef})
	}
	return b, true
}

// ResolveLabel implements organism.Program.
func (a *ProgramArtifact) ResolveLabel(name string) (env.Coord, bool) {
	c, ok := a.labelByName[name]
	return c, ok
}

// Cell returns the molecule placed at c by this artifact, if any.
func (a *ProgramArtifact) Cell(c env.Coord) (molecule.Molecule, bool) {
	m, ok := a.cells[c.String()]
	return m, ok
}

// MarshalJSON serializes only ProgramArtifact's exported fields, so
// its unexported lookup indexes never reach disk; Load rebuilds them.
func (a *ProgramArtifact) MarshalJSON() ([]byte, error) {
	type alias ProgramArtifact
	return json.Marshal((*alias)(a))
}

// Load decodes a JSON-serialized artifact and rebuilds its lookup
// indexes.
func Load(data []byte, dims int) (*ProgramArtifact, error) {
	type alias ProgramArtifact
	a := &alias{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	pa := (*ProgramArtifact)(a)
	pa.dims = dims
	pa.cells = map[string]molecule.Molecule{}
	pa.labelByName = map[string]env.Coord{}
	for _, cv := range pa.MachineCodeLayout {
		c := env.Coord(cv.Coord)
		pa.cells[c.String()] = molecule.Decode(cv.Value)
	}
	for _, cv := range pa.InitialWorldObjects {
		c := env.Coord(cv.Coord)
		pa.cells[c.String()] = molecule.Decode(cv.Value)
	}
	for addr, name := range pa.LabelAddressToName {
		pa.labelByName[name] = coordFromString(addr, dims)
	}
	return pa, nil
}

func coordFromString(s string, dims int) env.Coord {
	c := make(env.Coord, 0, dims)
	cur := int64(0)
	neg := false
	has := false
	flush := func() {
		if has {
			if neg {
				cur = -cur
			}
			c = append(c, cur)
		}
		cur, neg, has = 0, false, false
	}
	for _, r := range s {
		switch {
		case r == '-':
			neg = true
		case r >= '0' && r <= '9':
			has = true
			cur = cur*10 + int64(r-'0')
		default:
			flush()
		}
	}
	flush()
	return c
}
