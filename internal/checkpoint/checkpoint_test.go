package checkpoint

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evochora/evochora-sub009/internal/engineerr"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/rng"
	"github.com/evochora/evochora-sub009/internal/wire"
)

// fakeStore is a minimal in-memory storage.Store test double: a single
// metadata blob keyed by runId, and an ordered list of batch files, each
// holding one or more chunks.
type fakeStore struct {
	metaPath string
	meta     wire.SimulationMetadata
	hasMeta  bool

	batchPath string
	batches   []wire.TickDataChunk
	hasBatch  bool
}

func (s *fakeStore) FindMetadataPath(runID string) (string, error) {
	if !s.hasMeta {
		return "", fmt.Errorf("no metadata for %q", runID)
	}
	return s.metaPath, nil
}

func (s *fakeStore) ReadMetadata(path string) (wire.SimulationMetadata, error) {
	if path != s.metaPath {
		return wire.SimulationMetadata{}, fmt.Errorf("unknown path %q", path)
	}
	return s.meta, nil
}

func (s *fakeStore) FindLastBatchFile(prefix string) (string, error) {
	if !s.hasBatch {
		return "", fmt.Errorf("no batch under %q", prefix)
	}
	return s.batchPath, nil
}

func (s *fakeStore) ReadChunkBatch(path string) ([]wire.TickDataChunk, error) {
	if path != s.batchPath {
		return nil, fmt.Errorf("unknown path %q", path)
	}
	return s.batches, nil
}

func (s *fakeStore) WriteChunkBatch(chunks []wire.TickDataChunk, firstTick, lastTick uint64) (string, error) {
	s.batches = chunks
	s.batchPath = fmt.Sprintf("run/raw/batch_%d_%d.pb", firstTick, lastTick)
	s.hasBatch = true
	return s.batchPath, nil
}

func sampleChunk(runID string, tick uint64) wire.TickDataChunk {
	return wire.TickDataChunk{
		RunID: runID, FirstTick: tick, LastTick: tick, TickCount: 1,
		Snapshot: wire.TickData{
			RunID: runID, TickNumber: tick,
			CellColumns: wire.CellDataColumns{
				FlatIndices:  []int32{0, 3},
				MoleculeData: []int32{molecule.New(molecule.DATA, 5).Packed(), molecule.New(molecule.CODE, 1).Packed()},
				OwnerIDs:     []int32{1, 2},
			},
			TotalOrganismsCreated: 2,
		},
	}
}

func TestLoadLatestFailsWhenMetadataMissing(t *testing.T) {
	store := &fakeStore{}
	_, err := LoadLatest(store, "run-1")
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindResume))
}

func TestLoadLatestFailsOnRunIDMismatch(t *testing.T) {
	store := &fakeStore{
		metaPath: "meta", hasMeta: true,
		meta: wire.SimulationMetadata{RunID: "other-run"},
	}
	_, err := LoadLatest(store, "run-1")
	require.Error(t, err)
	require.True(t, engineerr.Is(err, engineerr.KindResume))
	assert.Contains(t, err.Error(), "runId")
}

func TestLoadLatestFailsWhenNoBatchFile(t *testing.T) {
	store := &fakeStore{metaPath: "meta", hasMeta: true, meta: wire.SimulationMetadata{RunID: "run-1"}}
	_, err := LoadLatest(store, "run-1")
	require.Error(t, err)
}

func TestLoadLatestFailsWhenBatchEmpty(t *testing.T) {
	store := &fakeStore{
		metaPath: "meta", hasMeta: true, meta: wire.SimulationMetadata{RunID: "run-1"},
		batchPath: "batch", hasBatch: true, batches: nil,
	}
	_, err := LoadLatest(store, "run-1")
	require.Error(t, err)
}

func TestLoadLatestReturnsLastChunkSnapshot(t *testing.T) {
	store := &fakeStore{
		metaPath: "meta", hasMeta: true,
		meta: wire.SimulationMetadata{
			RunID: "run-1", InitialSeed: 42, Shape: []int32{4, 4}, Toroidal: false,
			ResolvedConfigJSON: `{"labelMatchPolicy":"exact"}`,
		},
		batchPath: "batch", hasBatch: true,
		batches: []wire.TickDataChunk{sampleChunk("run-1", 3), sampleChunk("run-1", 7)},
	}
	ckpt, err := LoadLatest(store, "run-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), ckpt.Snapshot.TickNumber)
	assert.Equal(t, uint64(8), ckpt.ResumeFromTick)
}

func noopFactories() map[string]PluginFactory { return map[string]PluginFactory{} }

func TestRestoreRebuildsGridOrganismsAndCensus(t *testing.T) {
	ckpt := &ResumeCheckpoint{
		RunID: "run-1",
		Metadata: wire.SimulationMetadata{
			RunID: "run-1", InitialSeed: 7, Shape: []int32{4, 4}, Toroidal: true,
			ResolvedConfigJSON: `{"labelMatchPolicy":"exact"}`,
		},
		Snapshot: wire.TickData{
			RunID: "run-1", TickNumber: 5,
			CellColumns: wire.CellDataColumns{
				FlatIndices:  []int32{0},
				MoleculeData: []int32{molecule.New(molecule.DATA, 3).Packed()},
				OwnerIDs:     []int32{1},
			},
			Organisms:             []wire.OrganismState{{ID: 1, InitialPosition: []int32{0, 0}}},
			TotalOrganismsCreated: 1,
		},
		ResumeFromTick: 6,
	}

	res, err := Restore(ckpt, noopFactories())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, res.Grid.Shape())
	assert.True(t, res.Grid.Toroidal())
	require.Len(t, res.Organisms, 1)
	assert.Equal(t, int32(1), res.Organisms[0].ID)
	assert.Equal(t, uint64(6), res.ResumeFromTick)
	assert.Equal(t, 1, res.Census.Count())
}

func TestRestoreUsesSavedCensusWhenPresent(t *testing.T) {
	ckpt := &ResumeCheckpoint{
		RunID:    "run-1",
		Metadata: wire.SimulationMetadata{RunID: "run-1", Shape: []int32{2, 2}},
		Snapshot: wire.TickData{
			RunID:                   "run-1",
			AllGenomeHashesEverSeen: []uint64{11, 22, 33},
		},
	}
	res, err := Restore(ckpt, noopFactories())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Census.Count())
}

func TestRestoreFailsOnUnknownPluginClass(t *testing.T) {
	ckpt := &ResumeCheckpoint{
		RunID:    "run-1",
		Metadata: wire.SimulationMetadata{RunID: "run-1", Shape: []int32{2, 2}},
		Snapshot: wire.TickData{
			PluginStates: []wire.PluginState{{PluginClass: "unknown-plugin"}},
		},
	}
	_, err := Restore(ckpt, noopFactories())
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindResume))
}

type statefulStub struct{ loaded []byte }

func (s *statefulStub) SaveState() ([]byte, error) { return s.loaded, nil }
func (s *statefulStub) LoadState(b []byte) error   { s.loaded = b; return nil }

func TestRestoreLoadsPluginStateThroughFactory(t *testing.T) {
	ckpt := &ResumeCheckpoint{
		RunID:    "run-1",
		Metadata: wire.SimulationMetadata{RunID: "run-1", Shape: []int32{2, 2}},
		Snapshot: wire.TickData{
			PluginStates: []wire.PluginState{{PluginClass: "stub", StateBlob: []byte("hello")}},
		},
	}
	var built *statefulStub
	factories := map[string]PluginFactory{
		"stub": func(_ *rng.Provider) (any, error) {
			built = &statefulStub{}
			return built, nil
		},
	}
	res, err := Restore(ckpt, factories)
	require.NoError(t, err)
	require.NotNil(t, built)
	assert.Equal(t, []byte("hello"), built.loaded)
	require.NotNil(t, res.Plugins)
}
