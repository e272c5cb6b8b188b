// Package env implements the shared n-dimensional toroidal (or
// bounded) grid that organisms live and act on. Generalizes the
// teacher's fixed 2-D tile mesh (core/core.go, cgra/cgra.go) to an
// arbitrary number of axes with a single flat backing store.
package env

import (
	"fmt"

	"github.com/evochora/evochora/molecule"
)

// Coord is an n-tuple of signed integer axis positions.
type Coord []int64

// Clone returns an independent copy of c.
func (c Coord) Clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

// Add returns the component-wise sum of c and a vector delta.
func (c Coord) Add(delta molecule.Vector) Coord {
	if len(c) != len(delta) {
		panic(fmt.Sprintf("env: coord/vector dimensionality mismatch %d vs %d", len(c), len(delta)))
	}
	out := make(Coord, len(c))
	for i := range c {
		out[i] = c[i] + delta[i]
	}
	return out
}

func (c Coord) String() string {
	s := ""
	for i, v := range c {
		if i > 0 {
			s += "|"
		}
		s += fmt.Sprintf("%d", v)
	}
	return s
}

// Environment is a shared n-dimensional grid of molecules with a
// parallel owner-id array. Owner id 0 means unowned.
type Environment struct {
	shape    []int64
	toroidal bool
	cells    []int64 // encoded molecules, row-major, least-significant axis fastest
	owners   []int64
}

// New creates an Environment with the given per-axis shape. All cells
// start empty and unowned.
func New(shape []int64, toroidal bool) *Environment {
	size := int64(1)
	for _, s := range shape {
		if s <= 0 {
			panic("env: shape components must be positive")
		}
		size *= s
	}
	shapeCopy := make([]int64, len(shape))
	copy(shapeCopy, shape)
	return &Environment{
		shape:    shapeCopy,
		toroidal: toroidal,
		cells:    make([]int64, size),
		owners:   make([]int64, size),
	}
}

// Shape returns the grid's per-axis extents. The returned slice is a
// copy; mutating it does not affect the Environment.
func (e *Environment) Shape() []int64 {
	out := make([]int64, len(e.shape))
	copy(out, e.shape)
	return out
}

// Dimensions reports the number of axes.
func (e *Environment) Dimensions() int { return len(e.shape) }

// Toroidal reports whether out-of-range coordinates wrap.
func (e *Environment) Toroidal() bool { return e.toroidal }

// normalize maps c into range, or reports false if c is out of range
// in bounded mode.
func (e *Environment) normalize(c Coord) (Coord, bool) {
	if len(c) != len(e.shape) {
		panic(fmt.Sprintf("env: coord dimensionality mismatch %d vs %d", len(c), len(e.shape)))
	}
	out := make(Coord, len(c))
	for i, v := range c {
		s := e.shape[i]
		if e.toroidal {
			m := v % s
			if m < 0 {
				m += s
			}
			out[i] = m
		} else {
			if v < 0 || v >= s {
				return nil, false
			}
			out[i] = v
		}
	}
	return out, true
}

// CoordToFlatIndex converts a normalized coordinate into a flat index,
// least-significant axis varying fastest (row-major).
func (e *Environment) CoordToFlatIndex(c Coord) int64 {
	idx := int64(0)
	stride := int64(1)
	for i := 0; i < len(c); i++ {
		idx += c[i] * stride
		stride *= e.shape[i]
	}
	return idx
}

// FlatIndexToCoord is the inverse of CoordToFlatIndex.
func (e *Environment) FlatIndexToCoord(idx int64) Coord {
	out := make(Coord, len(e.shape))
	for i := 0; i < len(e.shape); i++ {
		out[i] = idx % e.shape[i]
		idx /= e.shape[i]
	}
	return out
}

// Get reads the molecule at coord, normalizing first. Out-of-range
// reads in bounded mode return the empty molecule; Get never errors.
func (e *Environment) Get(coord Coord) molecule.Molecule {
	nc, ok := e.normalize(coord)
	if !ok {
		return molecule.Empty
	}
	return molecule.Decode(e.cells[e.CoordToFlatIndex(nc)])
}

// Set writes m at coord, normalizing first. Out-of-range writes in
// bounded mode are silent no-ops.
func (e *Environment) Set(coord Coord, m molecule.Molecule) {
	nc, ok := e.normalize(coord)
	if !ok {
		return
	}
	e.cells[e.CoordToFlatIndex(nc)] = m.Encode()
}

// OwnerOf returns the owner id recorded at coord, or 0 if out of range
// or unowned.
func (e *Environment) OwnerOf(coord Coord) int64 {
	nc, ok := e.normalize(coord)
	if !ok {
		return 0
	}
	return e.owners[e.CoordToFlatIndex(nc)]
}

// SetOwner records ownerID as the owner of coord. A silent no-op when
// coord is out of range in bounded mode.
func (e *Environment) SetOwner(coord Coord, ownerID int64) {
	nc, ok := e.normalize(coord)
	if !ok {
		return
	}
	e.owners[e.CoordToFlatIndex(nc)] = ownerID
}

// NextPosition returns pos advanced by one step along dv, normalized.
// When pos+dv is out of range in bounded mode the unnormalized sum is
// returned so that callers can still detect the condition downstream.
func (e *Environment) NextPosition(pos Coord, dv molecule.Vector) Coord {
	next := pos.Add(dv)
	if nc, ok := e.normalize(next); ok {
		return nc
	}
	return next
}

// Normalize exposes the normalization step for callers (e.g. the
// scheduler) that must test range membership without performing a
// read or write.
func (e *Environment) Normalize(c Coord) (Coord, bool) {
	return e.normalize(c)
}
