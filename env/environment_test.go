package env_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/molecule"
)

var _ = Describe("Environment", func() {
	Context("toroidal grid", func() {
		var e *env.Environment

		BeforeEach(func() {
			e = env.New([]int64{4, 4}, true)
		})

		It("wraps out-of-range coordinates", func() {
			e.Set(env.Coord{0, 0}, molecule.New(molecule.Data, 7))
			Expect(e.Get(env.Coord{4, 0})).To(Equal(molecule.New(molecule.Data, 7)))
			Expect(e.Get(env.Coord{-4, 0})).To(Equal(molecule.New(molecule.Data, 7)))
		})

		It("round-trips get(set(c, m)) = m", func() {
			m := molecule.New(molecule.Structure, -9)
			e.Set(env.Coord{2, 3}, m)
			Expect(e.Get(env.Coord{2, 3})).To(Equal(m))
		})

		It("advances positions with wraparound", func() {
			next := e.NextPosition(env.Coord{3, 0}, molecule.Vector{1, 0})
			Expect(next).To(Equal(env.Coord{0, 0}))
		})

		It("tracks ownership in parallel to molecule storage", func() {
			e.SetOwner(env.Coord{1, 1}, 42)
			Expect(e.OwnerOf(env.Coord{1, 1})).To(Equal(int64(42)))
			Expect(e.OwnerOf(env.Coord{1, 2})).To(Equal(int64(0)))
		})

		It("converts between flat index and coordinate losslessly", func() {
			c := env.Coord{2, 3}
			idx := e.CoordToFlatIndex(c)
			Expect(e.FlatIndexToCoord(idx)).To(Equal(c))
		})
	})

	Context("bounded grid", func() {
		var e *env.Environment

		BeforeEach(func() {
			e = env.New([]int64{2, 2}, false)
		})

		It("returns the empty molecule for out-of-range reads", func() {
			Expect(e.Get(env.Coord{5, 5})).To(Equal(molecule.Empty))
		})

		It("silently drops out-of-range writes", func() {
			e.Set(env.Coord{5, 5}, molecule.New(molecule.Energy, 1))
			Expect(e.Get(env.Coord{5, 5})).To(Equal(molecule.Empty))
		})
	})
})
