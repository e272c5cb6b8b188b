package organism

import "fmt"

// The organism's registers live in a flat physical index space, the
// form instruction operands actually encode: 0..7 are %DR0-7, 8..9 are
// %PR0-1, 10..17 are %FPR0-7, and 18..21 are %LR0-3. isa knows only
// ArgSpec.Kind/Source; it is this package, not isa, that turns a
// decoded register-index molecule into the canonical name a Machine
// method expects, since only the VM owns the register layout.
const (
	numDR  = 8
	numPR  = 2
	numFPR = 8
	numLR  = 4
)

// RegisterCount is the size of the flat physical register index space.
const RegisterCount = numDR + numPR + numFPR + numLR

// PhysicalRegisterName maps a flat physical index to its canonical
// register name, reporting whether that register holds a vector (an
// %LR) rather than a scalar.
func PhysicalRegisterName(index int) (name string, isVector bool, ok bool) {
	switch {
	case index < 0:
		return "", false, false
	case index < numDR:
		return fmt.Sprintf("%%DR%d", index), false, true
	case index < numDR+numPR:
		return fmt.Sprintf("%%PR%d", index-numDR), false, true
	case index < numDR+numPR+numFPR:
		return fmt.Sprintf("%%FPR%d", index-numDR-numPR), false, true
	case index < RegisterCount:
		return fmt.Sprintf("%%LR%d", index-numDR-numPR-numFPR), true, true
	default:
		return "", false, false
	}
}
