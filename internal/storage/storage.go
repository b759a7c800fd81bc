// Package storage declares the abstract storage capability the core
// consumes (spec.md §6.2). The core never owns transport, compression, or
// retry: it is handed a Store implementation by its caller and only ever
// calls through this interface.
package storage

import "github.com/evochora/evochora-sub009/internal/wire"

// Store is the storage collaborator contract. Implementations live outside
// this module (object storage, local filesystem, a test double); the core
// depends only on this interface.
type Store interface {
	// FindMetadataPath locates the metadata blob for runId, or returns an
	// error if none exists.
	FindMetadataPath(runID string) (string, error)

	// ReadMetadata reads and decodes the metadata blob at path.
	ReadMetadata(path string) (wire.SimulationMetadata, error)

	// FindLastBatchFile returns the path of the last (highest-firstTick)
	// batch file under the given prefix, or an error if none exists.
	FindLastBatchFile(prefix string) (string, error)

	// ReadChunkBatch reads every chunk stored in the batch file at path,
	// in on-disk order.
	ReadChunkBatch(path string) ([]wire.TickDataChunk, error)

	// WriteChunkBatch persists one or more chunks spanning
	// [firstTick,lastTick] and returns the path written.
	WriteChunkBatch(chunks []wire.TickDataChunk, firstTick, lastTick uint64) (string, error)
}
