// Package vm implements instruction planning (decode + operand resolution)
// and execution (state mutation, energy/entropy accounting) for the
// organism instruction set.
package vm

// Opcode identifies one instruction kind. Values are also the molecule
// value stored in the CODE cell the opcode is decoded from.
type Opcode int32

const (
	NOP Opcode = iota
	PUSH
	POP
	ADD
	JMP
	JMPIF
	WRITE
	CONSUME
	MOVE
	TURN
	FORK
	DIE
	SCAN
)

// info describes one opcode's fixed shape: how many operand cells follow
// the opcode cell, whether execute only touches organism-local state
// (parallel-execute-safe), and whether execute claims grid coordinates
// (environment-modifying).
type info struct {
	operandCells         int // excludes the opcode cell itself
	parallelExecuteSafe  bool
	environmentModifying bool
}

// opcodeInfo is indexed by Opcode and describes every known instruction.
// Vector-operand opcodes (JMP, JMPIF, WRITE, CONSUME, TURN, FORK, SCAN)
// need dims extra operand cells for the grid's dimensionality; Len below
// accounts for that.
var opcodeInfo = map[Opcode]info{
	NOP:     {operandCells: 0, parallelExecuteSafe: true, environmentModifying: false},
	PUSH:    {operandCells: 1, parallelExecuteSafe: true, environmentModifying: false},
	POP:     {operandCells: 0, parallelExecuteSafe: true, environmentModifying: false},
	ADD:     {operandCells: 0, parallelExecuteSafe: true, environmentModifying: false},
	JMP:     {operandCells: -1, parallelExecuteSafe: true, environmentModifying: false},
	JMPIF:   {operandCells: -1, parallelExecuteSafe: true, environmentModifying: false},
	WRITE:   {operandCells: -1, parallelExecuteSafe: false, environmentModifying: true},
	CONSUME: {operandCells: -1, parallelExecuteSafe: false, environmentModifying: true},
	MOVE:    {operandCells: 0, parallelExecuteSafe: true, environmentModifying: false},
	TURN:    {operandCells: -1, parallelExecuteSafe: true, environmentModifying: false},
	FORK:    {operandCells: -1, parallelExecuteSafe: false, environmentModifying: true},
	DIE:     {operandCells: 0, parallelExecuteSafe: true, environmentModifying: false},
	SCAN:    {operandCells: -1, parallelExecuteSafe: true, environmentModifying: false},
}

// operandCellCount returns how many operand cells follow the opcode cell
// for opcode, given the grid's dimensionality dims. WRITE and FORK
// additionally carry one leading immediate (the value to write, or the
// energy gift) before their dims-size vector offset.
func operandCellCount(op Opcode, dims int) int {
	in, ok := opcodeInfo[op]
	if !ok {
		return 0
	}
	if in.operandCells >= 0 {
		return in.operandCells
	}
	switch op {
	case WRITE, FORK:
		return 1 + dims
	default:
		return dims
	}
}

// IsParallelExecuteSafe reports whether execute(op) only touches
// organism-local state.
func IsParallelExecuteSafe(op Opcode) bool {
	return opcodeInfo[op].parallelExecuteSafe
}

// IsEnvironmentModifying reports whether execute(op) writes grid cells and
// must therefore go through conflict resolution.
func IsEnvironmentModifying(op Opcode) bool {
	return opcodeInfo[op].environmentModifying
}

// Known reports whether op is a recognized opcode.
func Known(op Opcode) bool {
	_, ok := opcodeInfo[op]
	return ok
}
