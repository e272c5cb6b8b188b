// Package preprocess resolves include/require, module/import/export,
// macro, and routine directives over a token stream, per spec.md
// 4.5.2. Grounded on core/program.go's LoadProgramFileFromYAML/
// LoadProgramFileFromASM file-loading pattern (os.ReadFile, panic on
// missing file) generalized into diagnostics instead of panics, plus
// de-duplication by canonical path and a module registry the teacher
// has no equivalent of (CGRA kernels are single-file).
package preprocess

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/lexer"
	"github.com/evochora/evochora/token"
)

// FileLoader resolves an include/require path to source text. The
// real implementation reads from disk; tests substitute a mock so
// file-system behavior never has to be exercised directly.
type FileLoader interface {
	Read(path string) (string, error)
}

// OSFileLoader reads files from the local filesystem.
type OSFileLoader struct{}

// Read implements FileLoader.
func (OSFileLoader) Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ModuleInfo is one `.MODULE` declaration's export/import tables.
type ModuleInfo struct {
	Name    string
	Exports map[string]bool
	Imports map[string]string // alias -> canonical module name
}

// ModuleRegistry collects every module declared across the included
// file set.
type ModuleRegistry struct {
	Modules map[string]*ModuleInfo
}

func newRegistry() *ModuleRegistry {
	return &ModuleRegistry{Modules: map[string]*ModuleInfo{}}
}

func (r *ModuleRegistry) get(name string) *ModuleInfo {
	m, ok := r.Modules[name]
	if !ok {
		m = &ModuleInfo{Name: name, Exports: map[string]bool{}, Imports: map[string]string{}}
		r.Modules[name] = m
	}
	return m
}

// Result is the flattened, fully-resolved token stream plus the
// module registry semantic analysis needs. Every remaining token's
// Pos.Module already names the module in effect when it appeared.
type Result struct {
	Tokens  []token.Token
	Modules *ModuleRegistry
}

type macroDef struct {
	params []string
	body   []token.Token
}

type routineDef struct {
	name string
	body []token.Token
}

// Process runs the full preprocessing pass starting from an
// already-lexed main file. dir is the directory includes resolve
// relative to.
func Process(mainTokens []token.Token, mainFile, dir string, loader FileLoader, cat *isa.Catalog, d *diag.Diagnostics) *Result {
	p := &preprocessor{
		loader:   loader,
		cat:      cat,
		diag:     d,
		seen:     map[string]bool{filepath.Clean(mainFile): true},
		macros:   map[string]macroDef{},
		registry: newRegistry(),
	}
	flat := p.expandIncludes(mainTokens, dir)
	flat = stripTrailingEOF(flat)
	flat = p.extractMacros(flat)
	flat = p.expandMacroCalls(flat, 0)
	flat, routines := p.extractRoutines(flat)
	flat = p.appendRoutines(flat, routines)
	tokens := p.resolveModules(flat)
	tokens = append(tokens, token.Token{Kind: token.EOF})
	return &Result{Tokens: tokens, Modules: p.registry}
}

// stripTrailingEOF removes a single trailing EOF token, if present, so
// later stages can append content after it without an EOF in the
// middle of the stream.
func stripTrailingEOF(tokens []token.Token) []token.Token {
	if n := len(tokens); n > 0 && tokens[n-1].Kind == token.EOF {
		return tokens[:n-1]
	}
	return tokens
}

type preprocessor struct {
	loader   FileLoader
	cat      *isa.Catalog
	diag     *diag.Diagnostics
	seen     map[string]bool
	macros   map[string]macroDef
	registry *ModuleRegistry
}

// expandIncludes walks tokens, splicing in the contents of every
// `.INCLUDE`/`.REQUIRE "path"` directive it finds (recursively),
// skipping any path already seen by canonical (cleaned, absolute-to-
// dir) form.
func (p *preprocessor) expandIncludes(tokens []token.Token, dir string) []token.Token {
	var out []token.Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == token.DIRECTIVE && (t.Text == ".INCLUDE" || t.Text == ".REQUIRE") {
			if i+1 < len(tokens) && tokens[i+1].Kind == token.STRING {
				name := tokens[i+1].Str
				i++
				canonical := filepath.Clean(filepath.Join(dir, name))
				if p.seen[canonical] {
					continue
				}
				p.seen[canonical] = true
				src, err := p.loader.Read(canonical)
				if err != nil {
					p.diag.Error(t.Pos, "cannot read included file %q: %v", name, err)
					continue
				}
				incLexer := lexer.New(src, canonical, p.cat, p.diag)
				incTokens := incLexer.Lex()
				incTokens = incTokens[:len(incTokens)-1] // drop nested EOF
				incTokens = p.expandIncludes(incTokens, filepath.Dir(canonical))
				out = append(out, incTokens...)
			} else {
				p.diag.Error(t.Pos, "%s requires a string path", t.Text)
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

// statementEnd returns the index just past the end of the statement
// starting at i (the index of the following NEWLINE, or len(tokens)).
func statementEnd(tokens []token.Token, i int) int {
	for i < len(tokens) && tokens[i].Kind != token.NEWLINE {
		i++
	}
	return i
}

// extractMacros removes every `.MACRO NAME p1 p2 ... .ENDM` block from
// the stream and records it in p.macros.
func (p *preprocessor) extractMacros(tokens []token.Token) []token.Token {
	var out []token.Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == token.DIRECTIVE && t.Text == ".MACRO" {
			headerEnd := statementEnd(tokens, i)
			header := tokens[i+1 : headerEnd]
			if len(header) == 0 {
				p.diag.Error(t.Pos, ".MACRO requires a name")
				i = headerEnd
				continue
			}
			name := header[0].Text
			params := make([]string, 0, len(header)-1)
			for _, h := range header[1:] {
				if h.Kind == token.IDENTIFIER {
					params = append(params, h.Text)
				}
			}
			bodyStart := headerEnd + 1
			end := bodyStart
			for end < len(tokens) && !(tokens[end].Kind == token.DIRECTIVE && tokens[end].Text == ".ENDM") {
				end++
			}
			if end >= len(tokens) {
				p.diag.Error(t.Pos, "unterminated .MACRO %s", name)
				i = end
				continue
			}
			p.macros[name] = macroDef{params: params, body: append([]token.Token{}, tokens[bodyStart:end]...)}
			i = end // consumes up through .ENDM's statement end below
			i = statementEnd(tokens, end)
			continue
		}
		out = append(out, t)
	}
	return out
}

// expandMacroCalls replaces every statement whose leading identifier
// names a macro with the macro's body, substituting actual arguments
// for formal parameters by token text. depth guards against runaway
// recursive expansion.
func (p *preprocessor) expandMacroCalls(tokens []token.Token, depth int) []token.Token {
	if depth > 32 {
		p.diag.Error(token.Position{}, "macro expansion exceeded maximum nesting depth")
		return tokens
	}
	var out []token.Token
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		if t.Kind == token.IDENTIFIER {
			if def, ok := p.macros[t.Text]; ok {
				end := statementEnd(tokens, i)
				actuals := splitArgs(tokens[i+1 : end])
				if len(actuals) != len(def.params) {
					p.diag.Error(t.Pos, "macro %s expects %d argument(s), got %d", t.Text, len(def.params), len(actuals))
					i = end + 1
					continue
				}
				substituted := substitute(def.body, def.params, actuals)
				expanded := p.expandMacroCalls(substituted, depth+1)
				out = append(out, expanded...)
				i = end + 1
				continue
			}
		}
		out = append(out, t)
		i++
	}
	return out
}

// splitArgs splits a comma-separated run of tokens into per-argument
// token runs.
func splitArgs(tokens []token.Token) [][]token.Token {
	if len(tokens) == 0 {
		return nil
	}
	var groups [][]token.Token
	var cur []token.Token
	for _, t := range tokens {
		if t.Kind == token.COMMA {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	groups = append(groups, cur)
	return groups
}

// substitute replaces every occurrence of a formal parameter name
// (matched as a whole IDENTIFIER token) in body with its actual
// argument's token run.
func substitute(body []token.Token, params []string, actuals [][]token.Token) []token.Token {
	index := make(map[string][]token.Token, len(params))
	for i, p := range params {
		if i < len(actuals) {
			index[p] = actuals[i]
		}
	}
	var out []token.Token
	for _, t := range body {
		if t.Kind == token.IDENTIFIER {
			if repl, ok := index[t.Text]; ok {
				out = append(out, repl...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// extractRoutines removes every `.ROUTINE name ... .ENDR` block,
// returning the remaining stream and the captured routine bodies in
// declaration order.
func (p *preprocessor) extractRoutines(tokens []token.Token) ([]token.Token, []routineDef) {
	var out []token.Token
	var routines []routineDef
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == token.DIRECTIVE && t.Text == ".ROUTINE" {
			headerEnd := statementEnd(tokens, i)
			header := tokens[i+1 : headerEnd]
			if len(header) == 0 {
				p.diag.Error(t.Pos, ".ROUTINE requires a name")
				i = headerEnd
				continue
			}
			name := header[0].Text
			bodyStart := headerEnd + 1
			end := bodyStart
			for end < len(tokens) && !(tokens[end].Kind == token.DIRECTIVE && tokens[end].Text == ".ENDR") {
				end++
			}
			if end >= len(tokens) {
				p.diag.Error(t.Pos, "unterminated .ROUTINE %s", name)
				i = end
				continue
			}
			routines = append(routines, routineDef{name: name, body: append([]token.Token{}, tokens[bodyStart:end]...)})
			i = statementEnd(tokens, end)
			continue
		}
		out = append(out, t)
	}
	return out, routines
}

// appendRoutines emits every captured routine's body once, at the end
// of the stream, preceded by a label definition matching its name so
// existing call sites (left as ordinary label references) resolve.
func (p *preprocessor) appendRoutines(tokens []token.Token, routines []routineDef) []token.Token {
	out := tokens
	for _, r := range routines {
		pos := token.Position{File: "<routine>", Line: 0, Column: 0}
		if len(r.body) > 0 {
			pos = r.body[0].Pos
		}
		out = append(out, token.Token{Kind: token.IDENTIFIER, Text: r.name, Pos: pos})
		out = append(out, token.Token{Kind: token.COLON, Text: ":", Pos: pos})
		out = append(out, token.Token{Kind: token.NEWLINE, Text: "\n", Pos: pos})
		out = append(out, r.body...)
	}
	return out
}

// resolveModules strips `.MODULE`/`.IMPORT`/`.EXPORT` directives from
// the stream, populating the module registry and stamping every
// remaining token's Pos.Module with the module in effect when it
// appeared.
func (p *preprocessor) resolveModules(tokens []token.Token) []token.Token {
	var out []token.Token
	current := ""

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind != token.DIRECTIVE {
			t.Pos.Module = current
			out = append(out, t)
			continue
		}
		switch t.Text {
		case ".MODULE":
			end := statementEnd(tokens, i)
			header := tokens[i+1 : end]
			if len(header) == 0 {
				p.diag.Error(t.Pos, ".MODULE requires a name")
			} else {
				current = header[0].Text
				p.registry.get(current)
			}
			i = end
		case ".IMPORT":
			end := statementEnd(tokens, i)
			header := tokens[i+1 : end]
			mod := p.registry.get(current)
			if len(header) >= 3 && header[1].Kind == token.IDENTIFIER && strings.EqualFold(header[1].Text, "AS") {
				mod.Imports[header[2].Text] = header[0].Text
			} else if len(header) >= 1 {
				mod.Imports[header[0].Text] = header[0].Text
			} else {
				p.diag.Error(t.Pos, ".IMPORT requires a canonical module name")
			}
			i = end
		case ".EXPORT":
			end := statementEnd(tokens, i)
			header := tokens[i+1 : end]
			mod := p.registry.get(current)
			for _, h := range header {
				if h.Kind == token.IDENTIFIER {
					mod.Exports[h.Text] = true
				}
			}
			i = end
		default:
			t.Pos.Module = current
			out = append(out, t)
		}
	}
	return out
}
