package layout_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/ast"
	"github.com/evochora/evochora/diag"
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/ir"
	"github.com/evochora/evochora/isa"
	"github.com/evochora/evochora/layout"
	"github.com/evochora/evochora/molecule"
)

var _ = Describe("Compute", func() {
	var cat *isa.Catalog
	var d *diag.Diagnostics

	BeforeEach(func() {
		cat = isa.NewCatalog()
		d = &diag.Diagnostics{}
	})

	It("resolves a forward label reference to a site-relative displacement", func() {
		items := []ir.Item{
			{Kind: ir.ItemInstruction, Opcode: "JMPI", Operands: []ir.Operand{
				{Kind: ir.OpLabelRef, LabelName: "L"},
			}},
			{Kind: ir.ItemInstruction, Opcode: "NOP"},
			{Kind: ir.ItemLabel, LabelName: "L"},
			{Kind: ir.ItemInstruction, Opcode: "NOP"},
		}
		l := layout.Compute(items, []int64{10}, cat, d)
		Expect(d.HasErrors()).To(BeFalse())

		// JMPI is 2 cells wide (opcode + 1-axis vector), so it occupies
		// {0} and {1}; the following NOP lands at {2}; label L binds to
		// {3}: a displacement of 3 from the JMPI's own site at {0}.
		vecCell, ok := l.CodeCells["1"]
		Expect(ok).To(BeTrue())
		Expect(vecCell.Scalar).To(Equal(int64(3)))
	})

	It("writes a .PLACE value directly into world cells, leaving the instruction walk untouched", func() {
		items := []ir.Item{
			{Kind: ir.ItemDirective, DirName: "PLACE",
				Value: ir.Operand{Kind: ir.OpTypedImm, TypedName: "DATA", Scalar: 5},
				Placements: [][]ast.PlacementAxis{
					{{Kind: ast.PlacementValue, Value: 3}},
				},
			},
			{Kind: ir.ItemDirective, DirName: "PLACE",
				Value: ir.Operand{Kind: ir.OpTypedImm, TypedName: "STRUCTURE", Scalar: 9},
				Placements: [][]ast.PlacementAxis{
					{{Kind: ast.PlacementValue, Value: 10}},
				},
			},
			{Kind: ir.ItemInstruction, Opcode: "NOP"},
		}
		l := layout.Compute(items, []int64{20}, cat, d)
		Expect(d.HasErrors()).To(BeFalse())

		// the NOP is unaffected by either .PLACE and lands at {0}.
		Expect(l.CodeCoord).To(HaveLen(1))
		_, nopAtOrigin := l.CodeCells["0"]
		Expect(nopAtOrigin).To(BeTrue())

		Expect(l.WorldCells).To(HaveLen(2))
		v3, ok := l.WorldCells["3"]
		Expect(ok).To(BeTrue())
		Expect(v3.Scalar).To(Equal(int64(5)))
		Expect(v3.Type).To(Equal(molecule.Data))

		v10, ok := l.WorldCells["10"]
		Expect(ok).To(BeTrue())
		Expect(v10.Scalar).To(Equal(int64(9)))
	})

	It("records a CALL site's REF/VAL actual register names", func() {
		items := []ir.Item{
			{Kind: ir.ItemInstruction, Opcode: "CALL",
				Operands:    []ir.Operand{{Kind: ir.OpLabelRef, LabelName: "P"}},
				RefOperands: []ir.Operand{{Kind: ir.OpReg, RegisterName: "%DR0"}},
				ValOperands: []ir.Operand{{Kind: ir.OpReg, RegisterName: "%DR1"}},
			},
			{Kind: ir.ItemLabel, LabelName: "P"},
			{Kind: ir.ItemInstruction, Opcode: "RET"},
		}
		l := layout.Compute(items, []int64{10}, cat, d)
		Expect(d.HasErrors()).To(BeFalse())
		Expect(l.CallSites).To(HaveLen(1))
		Expect(l.CallSites[0].RefRegs).To(Equal([]string{"%DR0"}))
		Expect(l.CallSites[0].ValRegs).To(Equal([]string{"%DR1"}))
	})

	It("expands a stepped and wildcard .PLACE group into the cartesian product of coordinates", func() {
		items := []ir.Item{
			{Kind: ir.ItemDirective, DirName: "PLACE",
				Value: ir.Operand{Kind: ir.OpImmScalar, Scalar: 1},
				Placements: [][]ast.PlacementAxis{
					{
						{Kind: ast.PlacementStepped, From: 0, To: 4, Step: 2},
						{Kind: ast.PlacementWildcard},
					},
				},
			},
		}
		l := layout.Compute(items, []int64{6, 3}, cat, d)
		Expect(d.HasErrors()).To(BeFalse())
		// stepped axis yields {0,2,4}, wildcard axis yields {0,1,2}: 9 coordinates.
		Expect(l.WorldCells).To(HaveLen(9))
	})

	It("binds a label preceding the sequential walk at its normal address, unaffected by .PLACE", func() {
		items := []ir.Item{
			{Kind: ir.ItemLabel, LabelName: "L"},
			{Kind: ir.ItemDirective, DirName: "PLACE",
				Value:      ir.Operand{Kind: ir.OpImmScalar, Scalar: 7},
				Placements: [][]ast.PlacementAxis{{{Kind: ast.PlacementValue, Value: 5}}},
			},
			{Kind: ir.ItemInstruction, Opcode: "NOP"},
		}
		l := layout.Compute(items, []int64{10}, cat, d)
		Expect(d.HasErrors()).To(BeFalse())
		Expect(l.Labels["\x00L"]).To(Equal(env.Coord{0}))
	})

	It("reports an error for an unresolved label", func() {
		items := []ir.Item{
			{Kind: ir.ItemInstruction, Opcode: "JMPI", Operands: []ir.Operand{
				{Kind: ir.OpLabelRef, LabelName: "missing"},
			}},
		}
		layout.Compute(items, []int64{10}, cat, d)
		Expect(d.HasErrors()).To(BeTrue())
	})
})
