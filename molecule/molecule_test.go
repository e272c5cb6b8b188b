package molecule_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/molecule"
)

var _ = Describe("Molecule", func() {
	It("round-trips encode/decode for positive and negative scalars", func() {
		for _, m := range []molecule.Molecule{
			molecule.New(molecule.Code, 0),
			molecule.New(molecule.Data, 123),
			molecule.New(molecule.Energy, -1),
			molecule.New(molecule.Structure, -987654321),
		} {
			Expect(molecule.Decode(m.Encode())).To(Equal(m))
		}
	})

	It("treats Data:0 as empty", func() {
		Expect(molecule.Empty.IsEmpty()).To(BeTrue())
		Expect(molecule.New(molecule.Data, 0).IsEmpty()).To(BeTrue())
		Expect(molecule.New(molecule.Data, 1).IsEmpty()).To(BeFalse())
	})

	It("parses type names from typed literals", func() {
		ty, ok := molecule.ParseType("ENERGY")
		Expect(ok).To(BeTrue())
		Expect(ty).To(Equal(molecule.Energy))

		_, ok = molecule.ParseType("BOGUS")
		Expect(ok).To(BeFalse())
	})

	Describe("Vector", func() {
		It("recognizes unity vectors", func() {
			Expect(molecule.Vector{1, 0, 0}.IsUnit()).To(BeTrue())
			Expect(molecule.Vector{0, -1}.IsUnit()).To(BeTrue())
			Expect(molecule.Vector{1, 1}.IsUnit()).To(BeFalse())
			Expect(molecule.Vector{0, 0}.IsUnit()).To(BeFalse())
			Expect(molecule.Vector{2, 0}.IsUnit()).To(BeFalse())
		})

		It("adds component-wise", func() {
			Expect(molecule.Vector{1, 2}.Add(molecule.Vector{3, 4})).To(Equal(molecule.Vector{4, 6}))
		})
	})
})
