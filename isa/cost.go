package isa

// CostModel holds the energy constants from spec.md 4.2's cost model
// that are not opcode-specific: the surcharge for touching a cell
// owned by a different (non-parent) organism, and the penalty charged
// on instruction failure. Per-opcode base costs live on OpcodeDef.
//
// There is no teacher equivalent (CGRA tiles never meter energy); this
// mirrors the teacher's own style of an explicit, named constant table
// (see instr/isa.go's registration table) rather than scattering magic
// numbers through the handlers.
type CostModel struct {
	ForeignOwnerSurcharge int64
	FailurePenalty        int64
}

// DefaultCostModel matches the values exercised by the package's tests
// and the end-to-end scenarios in spec.md 8.
var DefaultCostModel = CostModel{
	ForeignOwnerSurcharge: 5,
	FailurePenalty:        10,
}

// WriteCost computes the extra, value-proportional cost of writing m
// to a cell, per spec.md 4.2: "Environment writes cost additional
// energy proportional to the written scalar value (when positive);
// reads are base-cost only."
func WriteCost(scalar int64) int64 {
	if scalar > 0 {
		return scalar
	}
	return 0
}

// OwnerSurcharge returns the extra cost of touching a cell owned by
// someone other than the organism itself or its parent.
func (c CostModel) OwnerSurcharge(actorID int64, actorParentID int64, hasParent bool, cellOwner int64) int64 {
	if cellOwner == 0 || cellOwner == actorID {
		return 0
	}
	if hasParent && cellOwner == actorParentID {
		return 0
	}
	return c.ForeignOwnerSurcharge
}
