// Package checkpoint implements the Checkpoint Loader and Simulation
// Restorer (spec.md §4.10/§4.11): finding the last complete chunk of a run
// and rebuilding grid, organisms, RNG, census, and plugins from it.
package checkpoint

import (
	"errors"
	"fmt"

	"github.com/evochora/evochora-sub009/internal/storage"
	"github.com/evochora/evochora-sub009/internal/wire"
)

// ResumeCheckpoint is the result of loadLatest: the run's metadata and the
// snapshot of the last complete chunk in its last batch file, never an
// interior tick.
type ResumeCheckpoint struct {
	RunID          string
	Metadata       wire.SimulationMetadata
	Snapshot       wire.TickData
	ResumeFromTick uint64
}

// LoadLatest locates the last batch file for runID, reads its chunks, and
// returns a checkpoint built from the last chunk's snapshot. Resuming from
// a chunk boundary means there is never a partial chunk to reconcile.
func LoadLatest(store storage.Store, runID string) (*ResumeCheckpoint, error) {
	metaPath, err := store.FindMetadataPath(runID)
	if err != nil {
		return nil, resumeErr("find metadata", err)
	}
	meta, err := store.ReadMetadata(metaPath)
	if err != nil {
		return nil, resumeErr("read metadata", err)
	}
	if meta.RunID != runID {
		return nil, resumeErr("validate runId", fmt.Errorf("metadata carries runId %q, requested %q", meta.RunID, runID))
	}

	batchPath, err := store.FindLastBatchFile(runID + "/raw/")
	if err != nil {
		return nil, resumeErr("find last batch file", err)
	}
	chunks, err := store.ReadChunkBatch(batchPath)
	if err != nil {
		return nil, resumeErr("read chunk batch", err)
	}
	if len(chunks) == 0 {
		return nil, resumeErr("read chunk batch", errors.New("batch file is empty"))
	}

	last := chunks[len(chunks)-1]
	return &ResumeCheckpoint{
		RunID:          runID,
		Metadata:       meta,
		Snapshot:       last.Snapshot,
		ResumeFromTick: last.Snapshot.TickNumber + 1,
	}, nil
}
