package preprocess_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/lexer"
	"github.com/evochora/evochora/preprocess"
	"github.com/evochora/evochora/token"
)

type mockLoader map[string]string

func (m mockLoader) Read(path string) (string, error) {
	if src, ok := m[path]; ok {
		return src, nil
	}
	return "", &pathNotFoundError{path}
}

type pathNotFoundError struct{ path string }

func (e *pathNotFoundError) Error() string { return "not found: " + e.path }

func process(src string, loader preprocess.FileLoader) (*preprocess.Result, *diag.Diagnostics) {
	d := &diag.Diagnostics{}
	cat := isa.NewCatalog()
	mainTokens := lexer.New(src, "main.evo", cat, d).Lex()
	res := preprocess.Process(mainTokens, "main.evo", ".", loader, cat, d)
	return res, d
}

func opcodeTexts(tokens []token.Token) []string {
	var out []string
	for _, t := range tokens {
		if t.Kind == token.OPCODE {
			out = append(out, t.Text)
		}
	}
	return out
}

var _ = Describe("Process", func() {
	It("splices an .INCLUDE target's tokens into the stream", func() {
		loader := mockLoader{"inc.evo": "RET\n"}
		res, d := process(".INCLUDE \"inc.evo\"\nNOP\n", loader)
		Expect(d.HasErrors()).To(BeFalse())
		Expect(opcodeTexts(res.Tokens)).To(Equal([]string{"RET", "NOP"}))
	})

	It("includes a .REQUIRE target only once even if required twice", func() {
		loader := mockLoader{"inc.evo": "RET\n"}
		res, d := process(".REQUIRE \"inc.evo\"\n.REQUIRE \"inc.evo\"\nNOP\n", loader)
		Expect(d.HasErrors()).To(BeFalse())
		Expect(opcodeTexts(res.Tokens)).To(Equal([]string{"RET", "NOP"}))
	})

	It("reports an error for an unreadable include path", func() {
		_, d := process(".INCLUDE \"missing.evo\"\n", mockLoader{})
		Expect(d.HasErrors()).To(BeTrue())
	})

	It("expands a macro invocation substituting actual arguments for formals", func() {
		res, d := process(".MACRO DOUBLE reg\nADDR reg, reg, reg\n.ENDM\nDOUBLE %DR0\n", mockLoader{})
		Expect(d.HasErrors()).To(BeFalse())
		Expect(opcodeTexts(res.Tokens)).To(Equal([]string{"ADDR"}))
		var regTexts []string
		for _, t := range res.Tokens {
			if t.Kind == token.REGISTER {
				regTexts = append(regTexts, t.Text)
			}
		}
		Expect(regTexts).To(Equal([]string{"%DR0", "%DR0", "%DR0"}))
	})

	It("reports a mismatched macro argument count", func() {
		_, d := process(".MACRO ONE p\nNOP\n.ENDM\nONE %DR0, %DR1\n", mockLoader{})
		Expect(d.HasErrors()).To(BeTrue())
	})

	It("appends a .ROUTINE body once at the end, labeled by name", func() {
		res, d := process(".ROUTINE helper\nRET\n.ENDR\nNOP\n", mockLoader{})
		Expect(d.HasErrors()).To(BeFalse())
		Expect(opcodeTexts(res.Tokens)).To(Equal([]string{"NOP", "RET"}))
		foundLabel := false
		for i, t := range res.Tokens {
			if t.Kind == token.IDENTIFIER && t.Text == "helper" && i+1 < len(res.Tokens) && res.Tokens[i+1].Kind == token.COLON {
				foundLabel = true
			}
		}
		Expect(foundLabel).To(BeTrue())
	})

	It("registers a module's imports and exports and stamps tokens with the active module", func() {
		res, d := process(".MODULE mymod\n.IMPORT other\n.EXPORT helper\nNOP\n", mockLoader{})
		Expect(d.HasErrors()).To(BeFalse())
		mod, ok := res.Modules.Modules["mymod"]
		Expect(ok).To(BeTrue())
		Expect(mod.Imports["other"]).To(Equal("other"))
		Expect(mod.Exports["helper"]).To(BeTrue())

		found := false
		for _, t := range res.Tokens {
			if t.Kind == token.OPCODE && t.Text == "NOP" {
				Expect(t.Pos.Module).To(Equal("mymod"))
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("registers an aliased import under its AS name", func() {
		res, d := process(".MODULE mymod\n.IMPORT other AS o\nNOP\n", mockLoader{})
		Expect(d.HasErrors()).To(BeFalse())
		mod := res.Modules.Modules["mymod"]
		Expect(mod.Imports["o"]).To(Equal("other"))
	})

	It("terminates the resolved stream with exactly one EOF token", func() {
		res, d := process("NOP\n", mockLoader{})
		Expect(d.HasErrors()).To(BeFalse())
		Expect(res.Tokens[len(res.Tokens)-1].Kind).To(Equal(token.EOF))
		count := 0
		for _, t := range res.Tokens {
			if t.Kind == token.EOF {
				count++
			}
		}
		Expect(count).To(Equal(1))
	})
})
