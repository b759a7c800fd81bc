package vm

import "github.com/evochora/evochora-sub009/internal/organism"

// ConflictStatus records the Resolver's verdict for an environment-
// modifying instruction.
type ConflictStatus uint8

const (
	// NA applies to instructions that never claimed any coordinate (either
	// not environment-modifying, or environment-modifying with no valid
	// targets): they are always executable.
	NA ConflictStatus = iota
	WON
	LOST
)

// Instruction is the planned, not-yet-executed (or already executed)
// result of one organism's turn this tick. It is created by Plan, consumed
// within the same tick, and never retained across ticks.
type Instruction struct {
	Organism *organism.Organism
	Opcode   Opcode

	// Operands are the resolved operand values cached at plan time:
	// immediates and relative vector offsets, in decode order.
	Operands []int32

	// TargetCoordinates holds the resolved absolute flat grid indices this
	// instruction would write, if it is environment-modifying and
	// resolution produced valid targets. Empty for non-environment-
	// modifying instructions or a resolution failure.
	TargetCoordinates []int32

	// InstructionLength is the number of grid cells (opcode + operands)
	// this instruction occupies, used to advance IP after planning.
	InstructionLength int32

	ExecutedInTick bool
	ConflictStatus ConflictStatus

	// PlanFailed records an operand-resolution failure: the instruction is
	// still marked executable (NA) per the resolver's contract, but
	// Execute must fail deterministically rather than apply any effect.
	PlanFailed bool
}

// IsEnvironmentModifying reports whether this instruction's opcode writes
// grid cells.
func (in *Instruction) IsEnvironmentModifying() bool {
	return IsEnvironmentModifying(in.Opcode)
}

// IsParallelExecuteSafe reports whether this instruction's opcode only
// touches organism-local state.
func (in *Instruction) IsParallelExecuteSafe() bool {
	return IsParallelExecuteSafe(in.Opcode)
}
