// Package compiler orchestrates the five compilation phases — lex,
// preprocess, parse, semantic analysis, and IR/layout/link/emit — over
// one source file, producing a frozen artifact.ProgramArtifact.
// Grounded on core/program.go's LoadProgramFileFromASM (the teacher's
// single load-and-parse entry point), generalized into a multi-phase
// pipeline that keeps running every phase even after errors so a
// single compile surfaces every diagnostic at once, per spec.md 4.5.
package compiler

import (
	"path/filepath"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/emit"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/layout"
	"github.com/evochora/evochora/lexer"
	"github.com/evochora/evochora/ir"
	"github.com/evochora/evochora/parser"
	"github.com/evochora/evochora/preprocess"
	"github.com/evochora/evochora/semantics"
)

// Result is one compile run's outcome: either a frozen artifact (when
// Diagnostics carries no errors) or nil, alongside every diagnostic
// from every phase that ran.
type Result struct {
	Artifact    *artifact.ProgramArtifact
	Diagnostics *diag.Diagnostics
}

// moduleResolverAdapter lets the preprocessor's ModuleRegistry satisfy
// ir.ModuleResolver without preprocess depending on ir.
type moduleResolverAdapter struct {
	reg *preprocess.ModuleRegistry
}

func (a moduleResolverAdapter) Lookup(module, alias string) (string, bool) {
	info := a.reg.Modules[module]
	if info == nil {
		return "", false
	}
	canonical, ok := info.Imports[alias]
	return canonical, ok
}

// Compile runs all five phases over the source file at path, laying
// out the result over an environment of the given shape. loader
// resolves `.INCLUDE`/`.REQUIRE` paths (preprocess.OSFileLoader in
// production). programID names the resulting artifact.
func Compile(path string, source string, shape []int64, loader preprocess.FileLoader, programID string) *Result {
	d := &diag.Diagnostics{}
	cat := isa.NewCatalog()

	lx := lexer.New(source, path, cat, d)
	tokens := lx.Lex()

	pre := preprocess.Process(tokens, path, filepath.Dir(path), loader, cat, d)

	p := parser.New(pre.Tokens, d)
	nodes := p.Parse()

	sem := semantics.Analyze(nodes, pre.Modules, cat, d)

	items := ir.Generate(nodes, sem.Symbols, moduleResolverAdapter{pre.Modules}, d)

	l := layout.Compute(items, shape, cat, d)

	out := emit.Build(l, sem.Symbols)

	if d.HasErrors() {
		return &Result{Diagnostics: d}
	}

	art := artifact.New(programID, out, sem.TokenMap, len(shape))
	return &Result{Artifact: art, Diagnostics: d}
}
