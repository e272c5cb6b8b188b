package isa

import (
	"fmt"
	"strings"

	"github.com/evochora/evochora/env"
	"github.com/evochora/evochora/molecule"
)

// DisassembledInstruction is one decoded instruction: its address,
// mnemonic, and rendered operand text.
type DisassembledInstruction struct {
	Addr     env.Coord
	Mnemonic string
	Operands []string
}

func (d DisassembledInstruction) String() string {
	if len(d.Operands) == 0 {
		return fmt.Sprintf("%s: %s", d.Addr, d.Mnemonic)
	}
	return fmt.Sprintf("%s: %s %s", d.Addr, d.Mnemonic, strings.Join(d.Operands, ", "))
}

// Disassemble renders every Code-typed cell in addrs (assumed sorted
// in the default +axis0 direction-vector walk order layout uses absent
// a `.DIR` override) back into mnemonic text, resolving label
// displacements and register aliases where name tables are given.
// cellAt need only answer for coordinates Disassemble asks about; it
// is typically backed by an artifact.ProgramArtifact.Cell.
func Disassemble(addrs []env.Coord, cellAt func(env.Coord) (molecule.Molecule, bool), cat *Catalog, dims int, labelAddressToName, registerAliasMap map[string]string) []DisassembledInstruction {
	aliasOf := invertAliases(registerAliasMap)
	var out []DisassembledInstruction
	i := 0
	for i < len(addrs) {
		addr := addrs[i]
		m, ok := cellAt(addr)
		if !ok || m.Type != molecule.Code {
			i++
			continue
		}
		def, ok := cat.LookupID(int(m.Scalar))
		if !ok {
			i++
			continue
		}
		inst := DisassembledInstruction{Addr: addr, Mnemonic: def.Mnemonic}
		pos := i + 1
		for _, spec := range def.Args {
			width := spec.Width(dims)
			if width == 0 {
				continue
			}
			if spec.Kind == KindVector {
				vec := make([]int64, 0, dims)
				for w := 0; w < width && pos < len(addrs); w, pos = w+1, pos+1 {
					c, _ := cellAt(addrs[pos])
					vec = append(vec, c.Scalar)
				}
				inst.Operands = append(inst.Operands, renderVector(addr, vec, labelAddressToName))
				continue
			}
			if pos >= len(addrs) {
				break
			}
			c, _ := cellAt(addrs[pos])
			pos++
			if spec.Source == SrcRegister {
				inst.Operands = append(inst.Operands, renderRegister(int(c.Scalar), aliasOf))
			} else {
				inst.Operands = append(inst.Operands, fmt.Sprintf("%s:%d", c.Type, c.Scalar))
			}
		}
		out = append(out, inst)
		i = pos
	}
	return out
}

func renderVector(site env.Coord, disp []int64, labelAddressToName map[string]string) string {
	target := make(env.Coord, len(disp))
	for i, v := range disp {
		if i < len(site) {
			target[i] = site[i] + v
		} else {
			target[i] = v
		}
	}
	if labelAddressToName != nil {
		if name, ok := labelAddressToName[target.String()]; ok {
			return name
		}
	}
	parts := make([]string, len(disp))
	for i, v := range disp {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, "|")
}

func renderRegister(index int, aliasOf map[int]string) string {
	if name, ok := aliasOf[index]; ok {
		return "%" + name
	}
	return fmt.Sprintf("%%R%d", index)
}

func invertAliases(m map[string]string) map[int]string {
	out := map[int]string{}
	for alias, phys := range m {
		if idx, ok := physicalIndexHeuristic(phys); ok {
			out[idx] = alias
		}
	}
	return out
}

// physicalIndexHeuristic is a minimal DR/PR/FPR/LR name parser used
// only for disassembly's alias-name rendering, kept independent of
// package organism to avoid a dependency cycle (organism already
// depends on isa).
func physicalIndexHeuristic(name string) (int, bool) {
	name = strings.TrimPrefix(name, "%")
	bases := []struct {
		prefix string
		base   int
		count  int
	}{
		{"DR", 0, 8},
		{"PR", 8, 2},
		{"FPR", 10, 8},
		{"LR", 18, 4},
	}
	for _, b := range bases {
		if strings.HasPrefix(name, b.prefix) {
			var n int
			if _, err := fmt.Sscanf(name[len(b.prefix):], "%d", &n); err == nil && n >= 0 && n < b.count {
				return b.base + n, true
			}
		}
	}
	return 0, false
}
