// Package wire hand-encodes and decodes the chunk/metadata schema of
// SPEC_FULL.md §6.1 using the low-level varint/bytes primitives of
// google.golang.org/protobuf/encoding/protowire — no codegen, no .proto
// file, but the same wire semantics (tag = field<<3|wireType, unknown
// fields skippable), matching the teacher's direct dependency on the
// protobuf module. Field numbers are fixed here and must never be reused
// for a different meaning.
package wire

// Field numbers for TickDataChunk.
const (
	fnChunkRunID     = 1
	fnChunkFirstTick = 2
	fnChunkLastTick  = 3
	fnChunkTickCount = 4
	fnChunkSnapshot  = 5
	fnChunkDeltas    = 6
)

// Field numbers for TickData.
const (
	fnTickRunID          = 1
	fnTickNumber         = 2
	fnTickCaptureTimeMs  = 3
	fnTickCellColumns    = 4
	fnTickOrganisms      = 5
	fnTickTotalCreated   = 6
	fnTickRNGState       = 7
	fnTickPluginStates   = 8
	fnTickAllGenomeHashes = 9
)

// Field numbers for TickDelta.
const (
	fnDeltaTickNumber        = 1
	fnDeltaCaptureTimeMs     = 2
	fnDeltaType              = 3
	fnDeltaChangedCells      = 4
	fnDeltaRunID             = 5
	fnDeltaTotalCreated      = 6
	fnDeltaRNGState          = 7
	fnDeltaPluginStates      = 8
	fnDeltaAllGenomeHashes   = 9
)

// Field numbers for CellDataColumns.
const (
	fnCellFlatIndices  = 1
	fnCellMoleculeData = 2
	fnCellOwnerIds     = 3
)

// Field numbers for OrganismState.
const (
	fnOrgID                = 1
	fnOrgProgramID         = 2
	fnOrgIP                = 3
	fnOrgDV                = 4
	fnOrgDPs               = 5
	fnOrgActiveDPIndex     = 6
	fnOrgDataRegisters     = 7
	fnOrgProcRegisters     = 8
	fnOrgFormalParamRegs   = 9
	fnOrgLocationRegisters = 10
	fnOrgDataStack         = 11
	fnOrgLocationStack     = 12
	fnOrgCallStack         = 13
	fnOrgEnergy            = 14
	fnOrgEntropy           = 15
	fnOrgMarker            = 16
	fnOrgGenomeHash        = 17
	fnOrgInitialPosition   = 18
	fnOrgIsDead            = 19
	fnOrgInstructionFailed = 20
	fnOrgHasParent         = 21
	fnOrgParentID          = 22
	fnOrgHasDeathTick      = 23
	fnOrgDeathTick         = 24
	fnOrgFailureReason     = 25
	fnOrgBirthTick         = 26
)

// Field numbers for RegisterValue.
const (
	fnRegIsVector = 1
	fnRegScalar   = 2
	fnRegVector   = 3
)

// Field numbers for CallFrame.
const (
	fnFrameReturnIP    = 1
	fnFrameSavedPRs    = 2
	fnFrameSavedFPRs   = 3
	fnFrameFPRBindKeys = 4
	fnFrameFPRBindVals = 5
)

// Field numbers for IntVector (one element of a repeated []int32).
const fnVecItems = 1

// Field numbers for PluginState.
const (
	fnPluginClass     = 1
	fnPluginStateBlob = 2
)

// Field numbers for SimulationMetadata.
const (
	fnMetaRunID              = 1
	fnMetaInitialSeed        = 2
	fnMetaStartTimeMs        = 3
	fnMetaResolvedConfigJSON = 4
	fnMetaProgramsJSON       = 5
	fnMetaShape              = 6
	fnMetaToroidal           = 7
)

// DeltaType mirrors the spec's enum{INCREMENTAL, ACCUMULATED}.
type DeltaType int32

const (
	Incremental DeltaType = 0
	Accumulated DeltaType = 1
)
