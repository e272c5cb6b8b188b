package organism

import (
	"strconv"
	"strings"
)

// PhysicalRegisterIndex is the inverse of PhysicalRegisterName: it maps
// a canonical register name (with or without the leading '%') to its
// flat physical index. Used by the compiler's IR lowering to encode
// a register operand as the index molecule the decoder in tick.go
// expects.
func PhysicalRegisterIndex(name string) (int, bool) {
	name = strings.TrimPrefix(name, "%")
	parse := func(prefix string, base, count int) (int, bool) {
		if !strings.HasPrefix(name, prefix) {
			return 0, false
		}
		n, err := strconv.Atoi(name[len(prefix):])
		if err != nil || n < 0 || n >= count {
			return 0, false
		}
		return base + n, true
	}
	if i, ok := parse("DR", 0, numDR); ok {
		return i, true
	}
	if i, ok := parse("PR", numDR, numPR); ok {
		return i, true
	}
	if i, ok := parse("FPR", numDR+numPR, numFPR); ok {
		return i, true
	}
	if i, ok := parse("LR", numDR+numPR+numFPR, numLR); ok {
		return i, true
	}
	return 0, false
}
