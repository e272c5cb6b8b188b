package isa

import "github.com/evochora/evochora/molecule"

// registerControl wires NOP, the jump/call/return family, and the
// conditional-skip family. Grounded on core/emu.go's instruction
// dispatch for branch/flow-control opcodes (SetUpInstructionGroup /
// RunInstructionGroup advancing PCInBlock), generalized from a
// block-index program counter to an absolute grid coordinate.
func registerControl(b *builder) {
	b.register("NOP", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		return Effects{}, nil
	})

	b.register("JMPI", -1, 2, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		m.SetIP(m.Displace(m.IP(), args[0].Vector))
		m.SetSkipIPAdvance()
		return Effects{}, nil
	}, ArgSpec{Kind: KindVector, Source: SrcImmediate})

	b.register("JMPR", -1, 2, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		m.SetIP(m.Displace(m.IP(), args[0].Vector))
		m.SetSkipIPAdvance()
		return Effects{}, nil
	}, ArgSpec{Kind: KindVector, Source: SrcRegister})

	b.register("CALL", -1, 3, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		callSite := m.IP()
		target := m.Displace(callSite, args[0].Vector)

		binding, _ := m.CallBindingsAt(callSite)

		retAddr := m.Advance(callSite, m.DV(), 1+len(args[0].Vector)) // past opcode + one cell per vector component

		savedPR := []molecule.Molecule{}
		for _, name := range []string{"%PR0", "%PR1"} {
			v, _ := m.ReadRegister(name)
			savedPR = append(savedPR, v)
		}
		if !m.PushCall(retAddr, savedPR, binding) {
			return Effects{}, &Failure{Reason: "call-stack overflow"}
		}

		for i, actual := range binding.Actuals {
			v, _ := m.ReadRegister(actual.RegisterName)
			m.WriteRegister(fprName(i), v)
		}

		m.SetIP(target)
		m.SetSkipIPAdvance()
		return Effects{}, nil
	}, ArgSpec{Kind: KindVector, Source: SrcImmediate})

	b.register("RET", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		retAddr, savedPR, binding, ok := m.PopCall()
		if !ok {
			return Effects{}, &Failure{Reason: "call-stack underflow"}
		}
		for i, actual := range binding.Actuals {
			if !actual.IsRef {
				continue
			}
			v, _ := m.ReadRegister(fprName(i))
			m.WriteRegister(actual.RegisterName, v)
		}
		for i, name := range []string{"%PR0", "%PR1"} {
			if i < len(savedPR) {
				m.WriteRegister(name, savedPR[i])
			}
		}
		m.SetIP(retAddr)
		m.SetSkipIPAdvance()
		return Effects{}, nil
	})

	b.register("IFI", -1, 1, condHandler(func(m Machine, args []ResolvedArg) bool {
		return args[0].Scalar.Scalar > args[1].Scalar.Scalar
	}), ArgSpec{Kind: KindScalar, Source: SrcRegister}, ArgSpec{Kind: KindScalar, Source: SrcImmediate})

	b.register("IFR", -1, 1, condHandler(func(m Machine, args []ResolvedArg) bool {
		return args[0].Scalar.Scalar > args[1].Scalar.Scalar
	}), ArgSpec{Kind: KindScalar, Source: SrcRegister}, ArgSpec{Kind: KindScalar, Source: SrcRegister})

	b.register("IFTR", -1, 1, condHandler(func(m Machine, args []ResolvedArg) bool {
		return args[0].Scalar.Scalar != 0
	}), ArgSpec{Kind: KindScalar, Source: SrcRegister})
}

// condHandler adapts a boolean test into an IF*-family Handler: on
// true, mark the following instruction to be skipped entirely.
func condHandler(test func(m Machine, args []ResolvedArg) bool) Handler {
	return func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		if test(m, args) {
			m.SkipNextInstruction()
		}
		return Effects{}, nil
	}
}

func fprName(i int) string {
	const names = "01234567"
	if i < 0 || i >= len(names) {
		return "%FPR0"
	}
	return "%FPR" + string(names[i])
}

// registerArithmetic wires ADD/SUB (register, immediate, and stack
// sourced variants) and the GT comparison producers. Grounded on
// instr/isa.go's instADD and core/emu_unit_test.go's MUL_CONST-style
// register arithmetic, generalized to the R/I/S source suffix scheme.
func registerArithmetic(b *builder) {
	addSub := func(op func(a, b int64) int64) Handler {
		return func(m Machine, args []ResolvedArg) (Effects, *Failure) {
			result := op(args[1].Scalar.Scalar, args[2].Scalar.Scalar)
			WriteScalarResult(m, args[0], molecule.New(args[1].Scalar.Type, result))
			return Effects{}, nil
		}
	}
	add := func(a, b int64) int64 { return a + b }
	sub := func(a, b int64) int64 { return a - b }

	reg := ArgSpec{Kind: KindScalar, Source: SrcRegister}
	dst := ArgSpec{Kind: KindScalar, Source: SrcRegister, IsOutput: true}
	imm := ArgSpec{Kind: KindScalar, Source: SrcImmediate}

	b.register("ADDR", -1, 2, addSub(add), dst, reg, reg)
	b.register("ADDI", -1, 2, addSub(add), dst, reg, imm)
	b.register("ADDS", -1, 2, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		y, ok1 := m.PopData()
		x, ok2 := m.PopData()
		if !ok1 || !ok2 {
			return Effects{}, &Failure{Reason: "stack underflow"}
		}
		m.PushData(molecule.New(x.Type, x.Scalar+y.Scalar))
		return Effects{}, nil
	})

	b.register("SUBR", -1, 2, addSub(sub), dst, reg, reg)
	b.register("SUBI", -1, 2, addSub(sub), dst, reg, imm)
	b.register("SUBS", -1, 2, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		y, ok1 := m.PopData()
		x, ok2 := m.PopData()
		if !ok1 || !ok2 {
			return Effects{}, &Failure{Reason: "stack underflow"}
		}
		m.PushData(molecule.New(x.Type, x.Scalar-y.Scalar))
		return Effects{}, nil
	})

	gt := func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		result := int64(0)
		if args[1].Scalar.Scalar > args[2].Scalar.Scalar {
			result = 1
		}
		WriteScalarResult(m, args[0], molecule.New(molecule.Data, result))
		return Effects{}, nil
	}
	b.register("GTI", -1, 2, gt, dst, reg, imm)
	b.register("GTR", -1, 2, gt, dst, reg, reg)
}

// registerDataMovement wires SETI/SETR/SETV, PUSH/POP, POS, and TURN.
// Grounded on core/core.go's writeOperand/readOperand register-vs-
// immediate dispatch.
func registerDataMovement(b *builder) {
	dst := ArgSpec{Kind: KindScalar, Source: SrcRegister, IsOutput: true}
	reg := ArgSpec{Kind: KindScalar, Source: SrcRegister}
	imm := ArgSpec{Kind: KindScalar, Source: SrcImmediate}
	vdst := ArgSpec{Kind: KindVector, Source: SrcRegister, IsOutput: true}
	vimm := ArgSpec{Kind: KindVector, Source: SrcImmediate}

	b.register("SETI", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		WriteScalarResult(m, args[0], args[1].Scalar)
		return Effects{}, nil
	}, dst, imm)

	b.register("SETR", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		WriteScalarResult(m, args[0], args[1].Scalar)
		return Effects{}, nil
	}, dst, reg)

	b.register("SETV", 1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		m.WriteVectorRegister(args[0].OutputRegister, args[1].Vector)
		return Effects{}, nil
	}, vdst, vimm)

	b.register("PUSH", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		if !m.PushData(args[0].Scalar) {
			return Effects{}, &Failure{Reason: "stack overflow"}
		}
		return Effects{}, nil
	}, reg)

	b.register("POP", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		v, ok := m.PopData()
		if !ok {
			return Effects{}, &Failure{Reason: "stack underflow"}
		}
		WriteScalarResult(m, args[0], v)
		return Effects{}, nil
	}, dst)

	b.register("POS", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		ip := m.IP()
		vec := make(molecule.Vector, len(ip))
		for i, c := range ip {
			vec[i] = c
		}
		m.WriteVectorRegister(args[0].OutputRegister, vec)
		return Effects{}, nil
	}, vdst)

	b.register("TURN", 0, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		m.SetDV(args[0].Vector)
		return Effects{}, nil
	}, ArgSpec{Kind: KindVector, Source: SrcRegister})
}

// registerIntrospection wires own-energy/own-id/parent-id reads.
// Grounded on spec.md 4.2's introspection family; no teacher
// equivalent (CGRA tiles have no energy or lineage), built fresh.
func registerIntrospection(b *builder) {
	dst := ArgSpec{Kind: KindScalar, Source: SrcRegister, IsOutput: true}

	b.register("NRG", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		WriteScalarResult(m, args[0], molecule.New(molecule.Energy, m.Energy()))
		return Effects{}, nil
	}, dst)

	b.register("ID", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		WriteScalarResult(m, args[0], molecule.New(molecule.Data, m.ID()))
		return Effects{}, nil
	}, dst)

	b.register("PID", -1, 1, func(m Machine, args []ResolvedArg) (Effects, *Failure) {
		parent, ok := m.ParentID()
		if !ok {
			parent = -1
		}
		WriteScalarResult(m, args[0], molecule.New(molecule.Data, parent))
		return Effects{}, nil
	}, dst)
}
