package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrganism() OrganismState {
	return OrganismState{
		ID:                3,
		ProgramID:         "prog-a",
		BirthTick:         7,
		IP:                []int32{1, 2},
		DV:                []int32{1, 0},
		DPs:               [][]int32{{1, 2}, {3, 4}},
		ActiveDPIndex:     1,
		DataRegisters:     []RegisterValue{{IsVector: false, Scalar: 5}, {IsVector: true, Vector: []int32{1, 2, 3}}},
		ProcRegisters:     []RegisterValue{{Scalar: -9}},
		FormalParamRegs:   nil,
		LocationRegisters: nil,
		DataStack:         []RegisterValue{{Scalar: 11}},
		LocationStack:     [][]int32{{0, 0}},
		CallStack: []CallFrame{
			{ReturnIP: []int32{9, 9}, SavedPRs: []RegisterValue{{Scalar: 1}}, FPRBindKeys: []int32{0, 1}, FPRBindVals: []int32{2, 3}},
		},
		Energy:            -42,
		Entropy:           100,
		Marker:            0,
		GenomeHash:        123456789,
		InitialPosition:   []int32{1, 2},
		IsDead:            false,
		InstructionFailed: true,
		HasParent:         true,
		ParentID:          1,
		HasDeathTick:      false,
		FailureReason:     "",
	}
}

func TestOrganismStateRoundTrip(t *testing.T) {
	o := sampleOrganism()
	b := encodeOrganismState(o)
	decoded, err := decodeOrganismState(b)
	require.NoError(t, err)
	assert.Equal(t, o, decoded)
}

func TestCellColumnsRoundTrip(t *testing.T) {
	c := CellDataColumns{
		FlatIndices:  []int32{1, 2, 3},
		MoleculeData: []int32{-1, 0, 99},
		OwnerIDs:     []int32{0, 1, 2},
	}
	b := encodeCellColumns(c)
	decoded, err := decodeCellColumns(b)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestTickDataRoundTrip(t *testing.T) {
	td := TickData{
		RunID:                 "run-1",
		TickNumber:            42,
		CaptureTimeMs:         1000,
		CellColumns:           CellDataColumns{FlatIndices: []int32{5}, MoleculeData: []int32{9}, OwnerIDs: []int32{1}},
		Organisms:             []OrganismState{sampleOrganism()},
		TotalOrganismsCreated: 1,
		RNGState:              []byte{1, 2, 3, 4},
		PluginStates:          []PluginState{{PluginClass: "foo", StateBlob: []byte{9, 9}}},
		AllGenomeHashesEverSeen: []uint64{1, 2, 3},
	}
	b := EncodeTickData(td)
	decoded, err := DecodeTickData(b)
	require.NoError(t, err)
	assert.Equal(t, td, decoded)
}

func TestChunkRoundTrip(t *testing.T) {
	chunk := TickDataChunk{
		RunID:     "run-1",
		FirstTick: 0,
		LastTick:  2,
		TickCount: 3,
		Snapshot: TickData{
			RunID:      "run-1",
			TickNumber: 0,
			CellColumns: CellDataColumns{
				FlatIndices: []int32{1}, MoleculeData: []int32{2}, OwnerIDs: []int32{3},
			},
		},
		Deltas: []TickDelta{
			{
				TickNumber: 1,
				DeltaType:  Incremental,
				ChangedCells: CellDataColumns{
					FlatIndices: []int32{7}, MoleculeData: []int32{0}, OwnerIDs: []int32{0},
				},
			},
			{
				TickNumber: 2,
				DeltaType:  Accumulated,
				ChangedCells: CellDataColumns{
					FlatIndices: []int32{7, 8}, MoleculeData: []int32{1, 2}, OwnerIDs: []int32{1, 1},
				},
			},
		},
	}
	b := EncodeChunk(chunk)
	decoded, err := DecodeChunk(b)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMetadataRoundTrip(t *testing.T) {
	m := SimulationMetadata{
		RunID:              "run-1",
		InitialSeed:        -99,
		StartTimeMs:        123456,
		ResolvedConfigJSON: `{"k":"v"}`,
		ProgramsJSON:       `[]`,
		Shape:              []int32{10, 10},
		Toroidal:           true,
	}
	b := EncodeMetadata(m)
	decoded, err := DecodeMetadata(b)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestUnknownFieldIsSkipped(t *testing.T) {
	c := CellDataColumns{FlatIndices: []int32{1}, MoleculeData: []int32{2}, OwnerIDs: []int32{3}}
	b := encodeCellColumns(c)
	// Append a field number not used by any schema here (field 99), varint.
	b = appendVarint(b, 99, 7)

	decoded, err := decodeCellColumns(b)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	chunk := TickDataChunk{RunID: "run-1", FirstTick: 0, LastTick: 0, TickCount: 1}
	raw := EncodeChunk(chunk)

	compressed, err := Compress(raw)
	require.NoError(t, err)
	restored, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, restored)
}
