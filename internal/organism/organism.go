// Package organism holds per-organism simulation state: identity,
// kinematics, register files, stacks, and liveness.
package organism

// RegisterValue is a tagged scalar-or-vector register slot.
type RegisterValue struct {
	IsVector bool
	Scalar   int64
	Vector   []int32
}

// Clone returns an independent copy of v (vectors are deep-copied).
func (v RegisterValue) Clone() RegisterValue {
	if !v.IsVector {
		return v
	}
	out := v
	out.Vector = append([]int32(nil), v.Vector...)
	return out
}

// CallFrame is one entry of the call stack: the return IP, the saved
// proc/formal-param register snapshots, and the binding from formal
// parameter slot to the caller's actual proc register slot.
type CallFrame struct {
	ReturnIP    []int32
	SavedPRs    []RegisterValue
	SavedFPRs   []RegisterValue
	FPRBindings map[int]int
}

// Organism is the mutable state of one embodied virtual organism.
type Organism struct {
	// Identity — immutable after construction.
	ID        int32
	BirthTick uint64
	HasParent bool
	ParentID  int32
	ProgramID string

	// Kinematics.
	IP            []int32
	DV            []int32
	DPs           [][]int32
	ActiveDPIndex int

	// Register files.
	DataRegisters        []RegisterValue
	ProcRegisters        []RegisterValue
	FormalParamRegisters []RegisterValue
	LocationRegisters    []RegisterValue

	// Stacks.
	DataStack     []RegisterValue
	LocationStack [][]int32
	CallStack     []CallFrame

	// Thermodynamics.
	Energy  int64
	Entropy int64
	Marker  int64

	InitialPosition []int32

	IsDead             bool
	HasDeathTick       bool
	DeathTick          uint64
	LastFailureReason  string
	InstructionFailed  bool

	GenomeHash uint64
}

// New constructs a freshly-born organism at birthTick, with all register
// and stack slots pre-sized and empty.
func New(id int32, birthTick uint64, programID string, ip, dv []int32, dpCount int, initialPosition []int32, numDataRegs, numProcRegs, numFPRegs, numLocRegs int) *Organism {
	dps := make([][]int32, dpCount)
	for i := range dps {
		dps[i] = append([]int32(nil), ip...)
	}
	return &Organism{
		ID:                   id,
		BirthTick:            birthTick,
		ProgramID:            programID,
		IP:                   append([]int32(nil), ip...),
		DV:                   append([]int32(nil), dv...),
		DPs:                  dps,
		ActiveDPIndex:        0,
		DataRegisters:        make([]RegisterValue, numDataRegs),
		ProcRegisters:        make([]RegisterValue, numProcRegs),
		FormalParamRegisters: make([]RegisterValue, numFPRegs),
		LocationRegisters:    make([]RegisterValue, numLocRegs),
		InitialPosition:      append([]int32(nil), initialPosition...),
	}
}

// WithParent records parentage; call right after New for a FORK-spawned
// newborn.
func (o *Organism) WithParent(parentID int32) *Organism {
	o.HasParent = true
	o.ParentID = parentID
	return o
}

// Kill marks the organism dead at tick with reason, if it isn't already.
func (o *Organism) Kill(tick uint64, reason string) {
	if o.IsDead {
		return
	}
	o.IsDead = true
	o.HasDeathTick = true
	o.DeathTick = tick
	o.LastFailureReason = reason
}

// PushCallFrame pushes a new call frame.
func (o *Organism) PushCallFrame(f CallFrame) {
	o.CallStack = append(o.CallStack, f)
}

// PopCallFrame pops and returns the top call frame; ok is false on an
// empty stack.
func (o *Organism) PopCallFrame() (CallFrame, bool) {
	if len(o.CallStack) == 0 {
		return CallFrame{}, false
	}
	f := o.CallStack[len(o.CallStack)-1]
	o.CallStack = o.CallStack[:len(o.CallStack)-1]
	return f, true
}

// PushData pushes a value onto the data stack.
func (o *Organism) PushData(v RegisterValue) {
	o.DataStack = append(o.DataStack, v)
}

// PopData pops the top of the data stack; ok is false if empty.
func (o *Organism) PopData() (RegisterValue, bool) {
	if len(o.DataStack) == 0 {
		return RegisterValue{}, false
	}
	v := o.DataStack[len(o.DataStack)-1]
	o.DataStack = o.DataStack[:len(o.DataStack)-1]
	return v, true
}

// ActiveDP returns the currently active data pointer.
func (o *Organism) ActiveDP() []int32 {
	if o.ActiveDPIndex < 0 || o.ActiveDPIndex >= len(o.DPs) {
		return nil
	}
	return o.DPs[o.ActiveDPIndex]
}
