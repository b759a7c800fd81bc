// Package resolver implements the deterministic conflict resolution pass:
// for each grid coordinate claimed by more than one planned instruction,
// the lowest organism id wins.
package resolver

import (
	"sort"

	"github.com/evochora/evochora-sub009/internal/vm"
)

// Resolve assigns a ConflictStatus to every instruction in instrs.
// Non-environment-modifying instructions, and environment-modifying
// instructions with no resolved target, are always marked NA (executable).
// For every contested coordinate, the claimant with the lowest
// organism.ID wins (WON); every other claimant of that coordinate is
// marked LOST, regardless of whether it also won some other coordinate it
// claims — losing even one claimed coordinate means the whole instruction
// must not execute.
func Resolve(instrs []*vm.Instruction) {
	claimants := make(map[int32][]*vm.Instruction)
	for _, in := range instrs {
		if !in.IsEnvironmentModifying() {
			in.ConflictStatus = vm.NA
			continue
		}
		if len(in.TargetCoordinates) == 0 {
			in.ConflictStatus = vm.NA
			continue
		}
		for _, coord := range in.TargetCoordinates {
			claimants[coord] = append(claimants[coord], in)
		}
	}

	lost := make(map[*vm.Instruction]bool)
	for _, coord := range sortedKeys(claimants) {
		group := claimants[coord]
		winner := group[0]
		for _, c := range group[1:] {
			if c.Organism.ID < winner.Organism.ID {
				winner = c
			}
		}
		for _, c := range group {
			if c != winner {
				lost[c] = true
			}
		}
	}

	for _, in := range instrs {
		if !in.IsEnvironmentModifying() || len(in.TargetCoordinates) == 0 {
			continue
		}
		if lost[in] {
			in.ConflictStatus = vm.LOST
			in.ExecutedInTick = false
		} else {
			in.ConflictStatus = vm.WON
		}
	}
}

func sortedKeys(m map[int32][]*vm.Instruction) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
