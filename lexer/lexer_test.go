package lexer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/lexer"
	"github.com/evochora/evochora/token"
)

func lex(src string) ([]token.Token, *diag.Diagnostics) {
	d := &diag.Diagnostics{}
	cat := isa.NewCatalog()
	toks := lexer.New(src, "test.evo", cat, d).Lex()
	return toks, d
}

var _ = Describe("Lex", func() {
	It("classifies a catalog mnemonic as an OPCODE regardless of case", func() {
		toks, d := lex("nop\n")
		Expect(d.HasErrors()).To(BeFalse())
		Expect(toks[0].Kind).To(Equal(token.OPCODE))
		Expect(toks[0].Text).To(Equal("NOP"))
	})

	It("tokenizes a register, a pipe-separated vector, and a typed literal", func() {
		toks, d := lex("%DR0 1|2|3 DATA:5\n")
		Expect(d.HasErrors()).To(BeFalse())
		Expect(toks[0].Kind).To(Equal(token.REGISTER))
		Expect(toks[0].Text).To(Equal("%DR0"))
		Expect(toks[1].Kind).To(Equal(token.NUMBER))
		Expect(toks[1].Int).To(Equal(int64(1)))
		Expect(toks[2].Kind).To(Equal(token.PIPE))
		Expect(toks[4].Kind).To(Equal(token.PIPE))
		Expect(toks[6].Kind).To(Equal(token.IDENTIFIER))
		Expect(toks[6].Text).To(Equal("DATA"))
		Expect(toks[7].Kind).To(Equal(token.COLON))
		Expect(toks[8].Kind).To(Equal(token.NUMBER))
		Expect(toks[8].Int).To(Equal(int64(5)))
	})

	It("reads a negative number as a single NUMBER token", func() {
		toks, d := lex("-7\n")
		Expect(d.HasErrors()).To(BeFalse())
		Expect(toks[0].Kind).To(Equal(token.NUMBER))
		Expect(toks[0].Int).To(Equal(int64(-7)))
	})

	It("distinguishes a range operator from a module-qualified identifier", func() {
		toks, _ := lex("0..4\n")
		Expect(toks[0].Kind).To(Equal(token.NUMBER))
		Expect(toks[1].Kind).To(Equal(token.DOT_DOT))
		Expect(toks[2].Kind).To(Equal(token.NUMBER))

		toks2, _ := lex("mod.sym\n")
		Expect(toks2[0].Kind).To(Equal(token.IDENTIFIER))
		Expect(toks2[0].Text).To(Equal("mod.sym"))
	})

	It("skips a comment to end of line", func() {
		toks, d := lex("NOP # trailing comment\nNOP\n")
		Expect(d.HasErrors()).To(BeFalse())
		Expect(toks[0].Kind).To(Equal(token.OPCODE))
		Expect(toks[1].Kind).To(Equal(token.NEWLINE))
		Expect(toks[2].Kind).To(Equal(token.OPCODE))
	})

	It("unescapes a quoted string literal", func() {
		toks, d := lex(`"a\nb"` + "\n")
		Expect(d.HasErrors()).To(BeFalse())
		Expect(toks[0].Kind).To(Equal(token.STRING))
		Expect(toks[0].Str).To(Equal("a\nb"))
	})

	It("reports an unterminated string literal", func() {
		_, d := lex(`"unterminated`)
		Expect(d.HasErrors()).To(BeTrue())
	})

	It("always terminates the stream with a single EOF token", func() {
		toks, _ := lex("NOP\n")
		Expect(toks[len(toks)-1].Kind).To(Equal(token.EOF))
	})
})
