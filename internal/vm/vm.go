package vm

import (
	"fmt"

	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/thermo"
)

// ExecContext carries the per-tick collaborators Execute needs for
// instructions with effects beyond the executing organism: allocating a
// fresh id for a newborn, and collecting newborns for the scheduler's
// post-tick birth finalization.
type ExecContext struct {
	Tick      uint64
	AllocID   func() int32
	Newborns  *[]*organism.Organism
}

// VM plans and executes instructions against a shared grid under a
// thermodynamic policy.
type VM struct {
	Grid             *grid.Grid
	Policy           thermo.Policy
	ErrorPenaltyCost int64
	MaxInstantSkip   int32
}

// New constructs a VM. maxInstantSkip bounds the post-execute skip-run so a
// grid of nothing but filler can't stall the tick loop forever; exceeding
// it marks the organism's instruction failed.
func New(g *grid.Grid, policy thermo.Policy, errorPenaltyCost int64, maxInstantSkip int32) *VM {
	return &VM{Grid: g, Policy: policy, ErrorPenaltyCost: errorPenaltyCost, MaxInstantSkip: maxInstantSkip}
}

// Plan decodes the opcode at o.IP and resolves its operands, without
// modifying the grid.
func (vm *VM) Plan(o *organism.Organism) (*Instruction, error) {
	dims := len(vm.Grid.Shape())
	opFlat, err := vm.Grid.CoordToFlat(o.IP)
	if err != nil {
		return nil, fmt.Errorf("vm: plan: organism %d has out-of-grid IP: %w", o.ID, err)
	}
	opMol, _, err := vm.Grid.Get(opFlat)
	if err != nil {
		return nil, fmt.Errorf("vm: plan: %w", err)
	}

	in := &Instruction{Organism: o, ConflictStatus: NA}

	if opMol.Type() != molecule.CODE {
		// Not sitting on an opcode at all: treat as a failed 1-cell no-op
		// so the tick still makes forward progress.
		in.Opcode = NOP
		in.InstructionLength = 1
		in.PlanFailed = true
		return in, nil
	}

	op := Opcode(opMol.Value())
	if !Known(op) {
		in.Opcode = NOP
		in.InstructionLength = 1
		in.PlanFailed = true
		return in, nil
	}
	in.Opcode = op

	operandCount := operandCellCount(op, dims)
	operands := make([]int32, 0, operandCount)
	for i := 1; i <= operandCount; i++ {
		coord, ok := advanceAlong(o.IP, o.DV, i, vm.Grid)
		if !ok {
			in.PlanFailed = true
			in.InstructionLength = int32(1 + i)
			return in, nil
		}
		flat, err := vm.Grid.CoordToFlat(coord)
		if err != nil {
			in.PlanFailed = true
			in.InstructionLength = int32(1 + i)
			return in, nil
		}
		m, _, err := vm.Grid.Get(flat)
		if err != nil {
			in.PlanFailed = true
			in.InstructionLength = int32(1 + i)
			return in, nil
		}
		operands = append(operands, m.Value())
	}
	in.Operands = operands
	in.InstructionLength = int32(1 + operandCount)

	if IsEnvironmentModifying(op) {
		target, ok := vm.resolveTarget(o, op, operands, dims)
		if ok {
			in.TargetCoordinates = []int32{target}
		}
		// No valid target: resolution produced nothing, but per spec.md
		// §4.3 this instruction is still marked executable (NA) so its
		// execute step runs and fails deterministically.
	}
	return in, nil
}

// resolveTarget computes the absolute flat target coordinate for an
// environment-modifying opcode, relative to the organism's active data
// pointer. ok is false if the offset lands outside a bounded grid.
func (vm *VM) resolveTarget(o *organism.Organism, op Opcode, operands []int32, dims int) (int32, bool) {
	var offset []int32
	switch op {
	case WRITE, FORK:
		offset = operands[1:]
	default: // CONSUME
		offset = operands
	}
	base := o.ActiveDP()
	if base == nil {
		return 0, false
	}
	coord := addOffset(base, offset, vm.Grid)
	if coord == nil {
		return 0, false
	}
	flat, err := vm.Grid.CoordToFlat(coord)
	if err != nil {
		return 0, false
	}
	return flat, true
}

// addOffset adds offset to base element-wise, wrapping on a toroidal grid
// and returning nil if the result falls outside a bounded grid.
func addOffset(base, offset []int32, g *grid.Grid) []int {
	shape := g.Shape()
	coord := make([]int, len(shape))
	for i := range shape {
		v := int(base[i]) + int(offset[i])
		if g.Toroidal() {
			v = ((v % shape[i]) + shape[i]) % shape[i]
		} else if v < 0 || v >= shape[i] {
			return nil
		}
		coord[i] = v
	}
	return coord
}

// advanceAlong returns the coordinate reached by stepping steps times along
// dv from ip, wrapping on a toroidal grid. ok is false on a bounded grid if
// the result falls out of range.
func advanceAlong(ip, dv []int32, steps int, g *grid.Grid) ([]int, bool) {
	off := make([]int32, len(dv))
	for i := range dv {
		off[i] = dv[i] * int32(steps)
	}
	c := addOffset(ip, off, g)
	return c, c != nil
}

// Execute applies in's effects: register/stack mutation, energy/entropy
// accounting, and — for a WON environment-modifying instruction — the
// grid write at its target coordinate.
func (vm *VM) Execute(in *Instruction, ctx *ExecContext) {
	o := in.Organism
	if in.ConflictStatus == LOST {
		// Losing a contested coordinate is not an instruction failure: the
		// organism simply doesn't act this tick, and is not penalized.
		o.InstructionFailed = false
		in.ExecutedInTick = false
		return
	}

	failed := in.PlanFailed
	if !failed {
		failed = vm.apply(in, ctx)
	}

	if failed {
		o.InstructionFailed = true
		in.ExecutedInTick = false
		return
	}

	o.InstructionFailed = false
	in.ExecutedInTick = true
	energyCost, entropyDelta := vm.Policy.Cost(thermo.Context{
		Opcode:     uint8(in.Opcode),
		OrganismID: o.ID,
	})
	o.Energy -= energyCost
	o.Entropy += entropyDelta

	vm.instantSkip(o)
}

// apply performs the opcode's state mutation; it returns true if execution
// failed at runtime (distinct from a plan-time resolution failure).
func (vm *VM) apply(in *Instruction, ctx *ExecContext) bool {
	o := in.Organism
	dims := len(vm.Grid.Shape())

	switch in.Opcode {
	case NOP:
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case PUSH:
		o.PushData(organism.RegisterValue{Scalar: int64(in.Operands[0])})
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case POP:
		if _, ok := o.PopData(); !ok {
			return true
		}
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case ADD:
		a, ok1 := o.PopData()
		b, ok2 := o.PopData()
		if !ok1 || !ok2 {
			return true
		}
		o.PushData(organism.RegisterValue{Scalar: a.Scalar + b.Scalar})
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case JMP:
		target := addOffset(o.IP, in.Operands[:dims], vm.Grid)
		if target == nil {
			return true
		}
		o.IP = toInt32s(target)
		return false

	case JMPIF:
		v, ok := o.PopData()
		if !ok {
			return true
		}
		if v.Scalar != 0 {
			target := addOffset(o.IP, in.Operands[:dims], vm.Grid)
			if target == nil {
				return true
			}
			o.IP = toInt32s(target)
			return false
		}
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case WRITE:
		if in.ConflictStatus != WON && in.ConflictStatus != NA {
			return true
		}
		if len(in.TargetCoordinates) == 0 {
			return true
		}
		if err := vm.Grid.SetByIndex(in.TargetCoordinates[0], molecule.New(molecule.DATA, in.Operands[0]), o.ID); err != nil {
			return true
		}
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case CONSUME:
		if len(in.TargetCoordinates) == 0 {
			return true
		}
		m, _, err := vm.Grid.Get(in.TargetCoordinates[0])
		if err != nil || m.Type() != molecule.ENERGY {
			return true
		}
		o.Energy += int64(m.Value())
		if err := vm.Grid.SetByIndex(in.TargetCoordinates[0], molecule.Empty, 0); err != nil {
			return true
		}
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case MOVE:
		dp := o.ActiveDP()
		if dp == nil {
			return true
		}
		next := addOffset(dp, o.DV, vm.Grid)
		if next == nil {
			return true
		}
		o.DPs[o.ActiveDPIndex] = toInt32s(next)
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case TURN:
		if len(in.Operands) < dims {
			return true
		}
		o.DV = append([]int32(nil), in.Operands[:dims]...)
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case DIE:
		o.IsDead = true
		o.LastFailureReason = "DIE instruction"
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case SCAN:
		target := addOffset(o.ActiveDP(), in.Operands[:dims], vm.Grid)
		if target == nil {
			return true
		}
		flat, err := vm.Grid.CoordToFlat(target)
		if err != nil {
			return true
		}
		m, _, err := vm.Grid.Get(flat)
		if err != nil {
			return true
		}
		if len(o.DataRegisters) == 0 {
			return true
		}
		o.DataRegisters[0] = organism.RegisterValue{Scalar: int64(m.Value())}
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	case FORK:
		if in.ConflictStatus != WON && in.ConflictStatus != NA {
			return true
		}
		if len(in.TargetCoordinates) == 0 || ctx == nil || ctx.AllocID == nil || ctx.Newborns == nil {
			return true
		}
		gift := int64(in.Operands[0])
		if gift <= 0 || gift > o.Energy {
			return true
		}
		childID := ctx.AllocID()
		childIP := append([]int32(nil), o.IP...)
		childDV := append([]int32(nil), o.DV...)
		coord, err := vm.Grid.FlatToCoord(in.TargetCoordinates[0])
		if err != nil {
			return true
		}
		childPos := toInt32s(coord)
		child := organism.New(childID, ctx.Tick, o.ProgramID, childIP, childDV, len(o.DPs), childPos,
			len(o.DataRegisters), len(o.ProcRegisters), len(o.FormalParamRegisters), len(o.LocationRegisters))
		child.WithParent(o.ID)
		child.Energy = gift
		if err := vm.Grid.SetByIndex(in.TargetCoordinates[0], molecule.New(molecule.STRUCTURE, int32(childID)), childID); err != nil {
			return true
		}
		o.Energy -= gift
		*ctx.Newborns = append(*ctx.Newborns, child)
		o.IP = stepIP(o.IP, o.DV, in.InstructionLength, vm.Grid)
		return false

	default:
		return true
	}
}

func toInt32s(xs []int) []int32 {
	out := make([]int32, len(xs))
	for i, x := range xs {
		out[i] = int32(x)
	}
	return out
}

func stepIP(ip, dv []int32, steps int32, g *grid.Grid) []int32 {
	off := make([]int32, len(dv))
	for i := range dv {
		off[i] = dv[i] * steps
	}
	c := addOffset(ip, off, g)
	if c == nil {
		return ip
	}
	return toInt32s(c)
}

// instantSkip advances IP past any run of NOP, LABEL, or empty-CODE cells
// following execute, up to MaxInstantSkip steps. Exceeding the bound marks
// the organism's instruction failed (skip overflow).
func (vm *VM) instantSkip(o *organism.Organism) {
	var i int32
	for ; i < vm.MaxInstantSkip; i++ {
		flat, err := vm.Grid.CoordToFlat(o.IP)
		if err != nil {
			return
		}
		m, _, err := vm.Grid.Get(flat)
		if err != nil {
			return
		}
		if !isSkippable(m) {
			return
		}
		o.IP = stepIP(o.IP, o.DV, 1, vm.Grid)
	}
	o.InstructionFailed = true
}

func isSkippable(m molecule.Molecule) bool {
	if m.Type() == molecule.LABEL {
		return true
	}
	if m.Type() == molecule.CODE && (m.IsEmpty() || Opcode(m.Value()) == NOP) {
		return true
	}
	return false
}
