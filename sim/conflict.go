package sim

import (
	"sort"

	"github.com/evochora/evochora/isa"
)

// conflictResult is the outcome of resolving one tick's proposed world
// writes: which writes actually land on the environment, and how much
// of each organism's proposed write cost survives with them.
type conflictResult struct {
	writes         []isa.WorldWrite
	survived       map[int64]bool
	costByOrganism map[int64]int64
}

// resolveConflicts implements spec.md 4.4 step 3: group proposed world
// writes by target coordinate; for any coordinate with more than one
// contributor, the lowest organism id wins and every other contributor's
// write to that coordinate is discarded. A loser's writes to other,
// uncontended coordinates still proceed.
func resolveConflicts(writesByOrganism map[int64][]isa.WorldWrite) conflictResult {
	type contender struct {
		organismID int64
		write      isa.WorldWrite
	}

	byTarget := map[string][]contender{}
	targets := make([]string, 0)

	ids := make([]int64, 0, len(writesByOrganism))
	for id := range writesByOrganism {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for _, w := range writesByOrganism[id] {
			key := w.Target.String()
			if _, seen := byTarget[key]; !seen {
				targets = append(targets, key)
			}
			byTarget[key] = append(byTarget[key], contender{organismID: id, write: w})
		}
	}
	sort.Strings(targets)

	result := conflictResult{
		survived:       make(map[int64]bool, len(ids)),
		costByOrganism: make(map[int64]int64, len(ids)),
	}
	for _, key := range targets {
		cs := byTarget[key]
		winner := cs[0]
		for _, c := range cs[1:] {
			if c.organismID < winner.organismID {
				winner = c
			}
		}
		result.writes = append(result.writes, winner.write)
		result.survived[winner.organismID] = true
		result.costByOrganism[winner.organismID] += winner.write.Cost
	}
	return result
}
