package wire

// CellDataColumns is the sparse cell representation shared by snapshots and
// deltas: three equal-length arrays, entries correspond by index.
type CellDataColumns struct {
	FlatIndices  []int32
	MoleculeData []int32
	OwnerIDs     []int32
}

// RegisterValue is one tagged scalar-or-vector register slot on the wire.
type RegisterValue struct {
	IsVector bool
	Scalar   int64
	Vector   []int32
}

// CallFrame is one call-stack entry on the wire.
type CallFrame struct {
	ReturnIP  []int32
	SavedPRs  []RegisterValue
	SavedFPRs []RegisterValue
	// FPRBindings is encoded as parallel key/value slices since protowire
	// has no native map primitive at this hand-rolled level.
	FPRBindKeys []int32
	FPRBindVals []int32
}

// OrganismState is the full wire representation of one organism.
type OrganismState struct {
	ID                int32
	ProgramID         string
	BirthTick         uint64
	IP                []int32
	DV                []int32
	DPs               [][]int32
	ActiveDPIndex     int32
	DataRegisters     []RegisterValue
	ProcRegisters     []RegisterValue
	FormalParamRegs   []RegisterValue
	LocationRegisters []RegisterValue
	DataStack         []RegisterValue
	LocationStack     [][]int32
	CallStack         []CallFrame
	Energy            int64
	Entropy           int64
	Marker            int64
	GenomeHash        uint64
	InitialPosition   []int32
	IsDead            bool
	InstructionFailed bool
	HasParent         bool
	ParentID          int32
	HasDeathTick      bool
	DeathTick         uint64
	FailureReason     string
}

// PluginState is one serialized plugin instance's state blob.
type PluginState struct {
	PluginClass string
	StateBlob   []byte
}

// TickData is a full state snapshot at one tick.
type TickData struct {
	RunID                   string
	TickNumber              uint64
	CaptureTimeMs           uint64
	CellColumns             CellDataColumns
	Organisms               []OrganismState
	TotalOrganismsCreated   uint64
	RNGState                []byte
	PluginStates            []PluginState
	AllGenomeHashesEverSeen []uint64
}

// TickDelta is a change record: INCREMENTAL relative to the previous
// sample, ACCUMULATED relative to the chunk's snapshot.
type TickDelta struct {
	TickNumber              uint64
	CaptureTimeMs           uint64
	DeltaType               DeltaType
	ChangedCells            CellDataColumns
	RunID                   string
	TotalOrganismsCreated   uint64
	RNGState                []byte
	PluginStates            []PluginState
	AllGenomeHashesEverSeen []uint64
}

// TickDataChunk is one complete chunk: a snapshot followed by zero or more
// strictly-increasing-tick deltas.
type TickDataChunk struct {
	RunID     string
	FirstTick uint64
	LastTick  uint64
	TickCount uint32
	Snapshot  TickData
	Deltas    []TickDelta
}

// SimulationMetadata is the per-run metadata blob.
type SimulationMetadata struct {
	RunID              string
	InitialSeed        int64
	StartTimeMs        int64
	ResolvedConfigJSON string
	// ProgramsJSON carries the compiler output program artifacts as an
	// opaque JSON array; spec.md does not fix a field-level schema for
	// ProgramArtifact so it is round-tripped verbatim rather than
	// partially modeled here.
	ProgramsJSON string
	Shape        []int32
	Toroidal     bool
}
