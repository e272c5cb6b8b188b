package isa

import (
	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/molecule"
)

// registerEnvironment wires the environment-interaction family: PEEK,
// SCAN, DEL, POKE, PPK, OVWR, SEEK. Each mnemonic is generated as
// BASE+ValueSourceLetter+VectorSourceLetter (or BASE+VectorSourceLetter
// for the vector-only members), per spec.md 4.2's combinatorial
// argument-source requirement. Because decode (organism/tick.go)
// already resolves R/I/S sources into ResolvedArg.Scalar/Vector before
// a Handler runs, every variant of a given mnemonic shares one handler
// function; only the registered ArgSpec sources differ. Grounded on
// cgra/cgra.go's per-cell occupancy checks and core/core.go's
// load/store dispatch, generalized from a fixed 2D grid to Environment.
func registerEnvironment(b *builder) {
	valueSources := []struct {
		letter string
		source ArgSource
	}{
		{"R", SrcRegister},
		{"I", SrcImmediate},
		{"S", SrcStack},
	}
	destSources := []struct {
		letter string
		source ArgSource
	}{
		{"R", SrcRegister},
		{"S", SrcStack},
	}
	vectorSources := []struct {
		letter string
		source ArgSource
	}{
		{"R", SrcRegister},
		{"I", SrcImmediate},
		{"S", SrcStack},
	}

	for _, dest := range destSources {
		for _, vec := range vectorSources {
			b.register("PEEK"+dest.letter+vec.letter, 1, 2, peekHandler(true),
				ArgSpec{Kind: KindScalar, Source: dest.source, IsOutput: true},
				ArgSpec{Kind: KindVector, Source: vec.source})

			b.register("SCAN"+dest.letter+vec.letter, 1, 2, peekHandler(false),
				ArgSpec{Kind: KindScalar, Source: dest.source, IsOutput: true},
				ArgSpec{Kind: KindVector, Source: vec.source})
		}
	}

	for _, vec := range vectorSources {
		b.register("DEL"+vec.letter, 0, 2, delHandler,
			ArgSpec{Kind: KindVector, Source: vec.source})

		b.register("SEEK"+vec.letter, 0, 1, seekHandler,
			ArgSpec{Kind: KindVector, Source: vec.source})
	}

	for _, val := range valueSources {
		for _, vec := range vectorSources {
			b.register("POKE"+val.letter+vec.letter, 1, 3, pokeHandler,
				ArgSpec{Kind: KindScalar, Source: val.source},
				ArgSpec{Kind: KindVector, Source: vec.source})

			b.register("PPK"+val.letter+vec.letter, 1, 3, ppkHandler,
				ArgSpec{Kind: KindScalar, Source: val.source},
				ArgSpec{Kind: KindVector, Source: vec.source})

			b.register("OVWR"+val.letter+vec.letter, 1, 3, ovwrHandler,
				ArgSpec{Kind: KindScalar, Source: val.source},
				ArgSpec{Kind: KindVector, Source: vec.source})
		}
	}
}

// writeCostAt prices a proposed write to target: the value-proportional
// write cost plus a surcharge if target is owned by neither the actor
// nor its parent (spec.md 4.2's cost model).
func writeCostAt(m Machine, target env.Coord, value molecule.Molecule) int64 {
	parentID, hasParent := m.ParentID()
	surcharge := m.Cost().OwnerSurcharge(m.ID(), parentID, hasParent, m.OwnerAtCell(target))
	return WriteCost(value.Scalar) + surcharge
}

// peekHandler reads the scalar at DP+delta into args[0]'s destination,
// failing if the cell is empty. When consume is true it also proposes
// clearing the cell (PEEK); when false the cell is left untouched
// (SCAN).
func peekHandler(consume bool) Handler {
	return func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		target := m.Displace(m.ActiveDataPointer(), args[1].Vector)
		value := m.ReadCell(target)
		if value.IsEmpty() {
			return Effects{}, &Failure{Reason: "cell is empty"}
		}
		WriteScalarResult(m, args[0], value)
		if !consume {
			return Effects{}, nil
		}
		return Effects{WorldWrites: []WorldWrite{
			{Target: target, Value: molecule.Empty, Cost: writeCostAt(m, target, molecule.Empty)},
		}}, nil
	}
}

// delHandler clears the cell at DP+delta without reading it first.
func delHandler(m Machine, args []ResolvedArg) (Effects, *Failure) {
	target := m.Displace(m.ActiveDataPointer(), args[0].Vector)
	return Effects{WorldWrites: []WorldWrite{
		{Target: target, Value: molecule.Empty, Cost: writeCostAt(m, target, molecule.Empty)},
	}}, nil
}

// pokeHandler writes args[0]'s value to DP+delta, failing if the cell
// is already occupied.
func pokeHandler(m Machine, args []ResolvedArg) (Effects, *Failure) {
	target := m.Displace(m.ActiveDataPointer(), args[1].Vector)
	if !m.ReadCell(target).IsEmpty() {
		return Effects{}, &Failure{Reason: "cell is occupied"}
	}
	return Effects{WorldWrites: []WorldWrite{
		{Target: target, Value: args[0].Scalar, SetOwner: true, OwnerID: m.ID(), Cost: writeCostAt(m, target, args[0].Scalar)},
	}}, nil
}

// ppkHandler atomically reads the current cell value at DP+delta onto
// the data stack, then writes args[0]'s value in its place,
// unconditionally.
func ppkHandler(m Machine, args []ResolvedArg) (Effects, *Failure) {
	target := m.Displace(m.ActiveDataPointer(), args[1].Vector)
	old := m.ReadCell(target)
	if !m.PushData(old) {
		return Effects{}, &Failure{Reason: "stack overflow"}
	}
	return Effects{WorldWrites: []WorldWrite{
		{Target: target, Value: args[0].Scalar, SetOwner: true, OwnerID: m.ID(), Cost: writeCostAt(m, target, args[0].Scalar)},
	}}, nil
}

// ovwrHandler writes args[0]'s value to DP+delta unconditionally,
// regardless of the cell's current occupancy.
func ovwrHandler(m Machine, args []ResolvedArg) (Effects, *Failure) {
	target := m.Displace(m.ActiveDataPointer(), args[1].Vector)
	return Effects{WorldWrites: []WorldWrite{
		{Target: target, Value: args[0].Scalar, SetOwner: true, OwnerID: m.ID(), Cost: writeCostAt(m, target, args[0].Scalar)},
	}}, nil
}

// seekHandler moves the organism's active data pointer by delta; it
// touches no environment cell and so proposes no world write.
func seekHandler(m Machine, args []ResolvedArg) (Effects, *Failure) {
	m.SeekDataPointer(args[0].Vector)
	return Effects{}, nil
}
