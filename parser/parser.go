// Package parser builds an ast.Node tree from a preprocessed token
// stream, per spec.md 4.5.3. Grounded on core/program.go's
// parseASMInstruction (opcode/operand splitting) and
// parseASMOperand (per-operand dispatch), generalized from a
// single-instruction-per-line regex scanner into a recursive-descent
// parser over the full statement and directive grammar.
package parser

import (
	"strings"

	"github.com/evochora/evochora/ast"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/token"
)

var typeNames = map[string]bool{"CODE": true, "DATA": true, "ENERGY": true, "STRUCTURE": true}

// Parser builds the AST for one preprocessed token stream.
type Parser struct {
	tokens []token.Token
	pos    int
	diag   *diag.Diagnostics
}

// New creates a Parser over tokens (as produced by preprocess.Process).
func New(tokens []token.Token, d *diag.Diagnostics) *Parser {
	return &Parser{tokens: tokens, diag: d}
}

func (p *Parser) cur() token.Token  { return p.tokens[p.pos] }
func (p *Parser) atEOF() bool       { return p.cur().Kind == token.EOF }
func (p *Parser) advance() token.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for !p.atEOF() && p.cur().Kind == token.NEWLINE {
		p.advance()
	}
}

func (p *Parser) skipToNewline() {
	for !p.atEOF() && p.cur().Kind != token.NEWLINE {
		p.advance()
	}
}

// Parse consumes the whole token stream and returns its top-level
// statements.
func (p *Parser) Parse() []ast.Node {
	var out []ast.Node
	p.skipNewlines()
	for !p.atEOF() {
		n := p.parseStatement()
		if n != nil {
			out = append(out, n)
		}
		p.skipNewlines()
	}
	return out
}

func (p *Parser) parseStatement() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.DIRECTIVE:
		return p.parseDirectiveStatement()
	case token.IDENTIFIER:
		if p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Kind == token.COLON {
			p.advance() // name
			p.advance() // colon
			return &ast.Label{Pos: t.Pos, Name: t.Text}
		}
		p.diag.Error(t.Pos, "unexpected identifier %q: not a label or known directive", t.Text)
		p.skipToNewline()
		return nil
	case token.OPCODE:
		return p.parseInstruction()
	default:
		p.diag.Error(t.Pos, "unexpected token %s", t.Kind)
		p.skipToNewline()
		return nil
	}
}

func (p *Parser) parseInstruction() ast.Node {
	t := p.advance()
	inst := &ast.Instruction{Pos: t.Pos, Opcode: t.Text}

	for !p.atEOF() && p.cur().Kind != token.NEWLINE {
		if p.cur().Kind == token.IDENTIFIER && (p.cur().Text == "REF" || p.cur().Text == "VAL") {
			kind := p.advance().Text
			args := p.parseArgList()
			if kind == "REF" {
				inst.RefArgs = append(inst.RefArgs, args...)
			} else {
				inst.ValArgs = append(inst.ValArgs, args...)
			}
			continue
		}
		inst.Args = append(inst.Args, p.parseArg())
		if p.cur().Kind == token.COMMA {
			p.advance()
		}
	}
	return inst
}

// parseArgList parses a run of args, optionally comma-separated, until
// NEWLINE or a REF/VAL keyword.
func (p *Parser) parseArgList() []ast.Arg {
	var out []ast.Arg
	for !p.atEOF() && p.cur().Kind != token.NEWLINE {
		if p.cur().Kind == token.IDENTIFIER && (p.cur().Text == "REF" || p.cur().Text == "VAL") {
			break
		}
		out = append(out, p.parseArg())
		if p.cur().Kind == token.COMMA {
			p.advance()
		}
	}
	return out
}

func (p *Parser) parseArg() ast.Arg {
	t := p.cur()
	switch t.Kind {
	case token.REGISTER:
		p.advance()
		return ast.Arg{Kind: ast.RegisterArg, Pos: t.Pos, Register: strings.TrimPrefix(t.Text, "%")}
	case token.NUMBER:
		p.advance()
		if p.cur().Kind == token.PIPE {
			return p.parseVectorLiteral(t)
		}
		return ast.Arg{Kind: ast.NumberLit, Pos: t.Pos, Number: t.Int}
	case token.IDENTIFIER:
		if typeNames[t.Text] && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Kind == token.COLON {
			p.advance() // type name
			p.advance() // colon
			num := p.advance()
			return ast.Arg{Kind: ast.TypedLit, Pos: t.Pos, TypedType: t.Text, TypedValue: num.Int}
		}
		p.advance()
		return ast.Arg{Kind: ast.IdentifierArg, Pos: t.Pos, Name: t.Text}
	default:
		p.diag.Error(t.Pos, "expected an argument, found %s", t.Kind)
		p.advance()
		return ast.Arg{Kind: ast.NumberLit, Pos: t.Pos}
	}
}

func (p *Parser) parseVectorLiteral(first token.Token) ast.Arg {
	vec := []int64{first.Int}
	for p.cur().Kind == token.PIPE {
		p.advance()
		n := p.advance()
		vec = append(vec, n.Int)
	}
	return ast.Arg{Kind: ast.VectorLit, Pos: first.Pos, Vector: vec}
}

func (p *Parser) parseDirectiveStatement() ast.Node {
	t := p.advance()
	name := strings.TrimPrefix(t.Text, ".")
	switch name {
	case "PROC":
		return p.parseProcedure(t)
	case "SCOPE":
		return p.parseScope(t)
	case "PLACE":
		return p.parsePlace(t)
	default:
		args := p.parseArgList()
		return &ast.Directive{Pos: t.Pos, Name: name, Args: args}
	}
}

func (p *Parser) parseProcedure(t token.Token) ast.Node {
	proc := &ast.Procedure{Pos: t.Pos}
	if p.cur().Kind == token.IDENTIFIER {
		proc.Name = p.advance().Text
	}
	for !p.atEOF() && p.cur().Kind != token.NEWLINE {
		if p.cur().Kind != token.IDENTIFIER {
			break
		}
		switch p.cur().Text {
		case "WITH":
			p.advance()
			proc.Params = append(proc.Params, p.parseNameList()...)
		case "REF":
			p.advance()
			proc.RefParams = append(proc.RefParams, p.parseNameList()...)
		case "VAL":
			p.advance()
			proc.ValParams = append(proc.ValParams, p.parseNameList()...)
		default:
			p.advance()
		}
	}
	p.skipNewlines()
	for !p.atEOF() && !(p.cur().Kind == token.DIRECTIVE && p.cur().Text == ".ENDP") {
		n := p.parseStatement()
		if n != nil {
			proc.Body = append(proc.Body, n)
		}
		p.skipNewlines()
	}
	if p.atEOF() {
		p.diag.Error(t.Pos, "unterminated .PROC %s", proc.Name)
	} else {
		p.advance() // .ENDP
	}
	return proc
}

func (p *Parser) parseScope(t token.Token) ast.Node {
	scope := &ast.Scope{Pos: t.Pos}
	if p.cur().Kind == token.IDENTIFIER {
		scope.Name = p.advance().Text
	}
	p.skipToNewline()
	p.skipNewlines()
	for !p.atEOF() && !(p.cur().Kind == token.DIRECTIVE && p.cur().Text == ".ENDS") {
		n := p.parseStatement()
		if n != nil {
			scope.Body = append(scope.Body, n)
		}
		p.skipNewlines()
	}
	if p.atEOF() {
		p.diag.Error(t.Pos, "unterminated .SCOPE %s", scope.Name)
	} else {
		p.advance() // .ENDS
	}
	return scope
}

func (p *Parser) parseNameList() []string {
	var out []string
	for p.cur().Kind == token.IDENTIFIER {
		out = append(out, p.advance().Text)
		if p.cur().Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return out
}

// parsePlace parses `.PLACE value group1, group2, ...`: a leading
// value expression (number or typed literal) placed at every
// coordinate in the cartesian product of the placement groups that
// follow, each group a pipe-separated per-axis expression: a single
// value, a closed range `a..b`, a stepped range `a:s:b`, or a wildcard
// `*`.
func (p *Parser) parsePlace(t token.Token) ast.Node {
	d := &ast.Directive{Pos: t.Pos, Name: "PLACE"}
	if !p.atEOF() && p.cur().Kind != token.NEWLINE {
		d.Args = append(d.Args, p.parseArg())
	}
	for !p.atEOF() && p.cur().Kind != token.NEWLINE {
		group := p.parsePlacementGroup()
		d.Placements = append(d.Placements, group)
		if p.cur().Kind == token.COMMA {
			p.advance()
			continue
		}
		break
	}
	return d
}

func (p *Parser) parsePlacementGroup() []ast.PlacementAxis {
	var axes []ast.PlacementAxis
	for {
		axes = append(axes, p.parsePlacementAxis())
		if p.cur().Kind == token.PIPE {
			p.advance()
			continue
		}
		break
	}
	return axes
}

func (p *Parser) parsePlacementAxis() ast.PlacementAxis {
	if p.cur().Kind == token.STAR {
		p.advance()
		return ast.PlacementAxis{Kind: ast.PlacementWildcard}
	}
	first := p.advance().Int
	switch p.cur().Kind {
	case token.DOT_DOT:
		p.advance()
		last := p.advance().Int
		return ast.PlacementAxis{Kind: ast.PlacementRange, From: first, To: last}
	case token.COLON:
		p.advance()
		step := p.advance().Int
		if p.cur().Kind == token.COLON {
			p.advance()
		}
		last := p.advance().Int
		return ast.PlacementAxis{Kind: ast.PlacementStepped, From: first, Step: step, To: last}
	default:
		return ast.PlacementAxis{Kind: ast.PlacementValue, Value: first}
	}
}
