package codec

import (
	"fmt"

	"github.com/evochora/evochora-sub009/internal/wire"
)

// MutableCellState is the decoder's dense working copy of the grid: an
// array of molecule data and an array of owner ids. Occupancy is not
// stored; it is derived from the two arrays on every read.
type MutableCellState struct {
	totalCells int32
	molecule   []int32
	owner      []int32
}

// NewMutableCellState allocates a fully-empty cell state of totalCells
// cells.
func NewMutableCellState(totalCells int32) *MutableCellState {
	return &MutableCellState{
		totalCells: totalCells,
		molecule:   make([]int32, totalCells),
		owner:      make([]int32, totalCells),
	}
}

// IsOccupied reports whether cell i currently carries molecule data or an
// owner.
func (s *MutableCellState) IsOccupied(i int32) bool {
	if i < 0 || i >= s.totalCells {
		return false
	}
	return s.molecule[i] != 0 || s.owner[i] != 0
}

// Get returns the molecule data and owner at flat index i.
func (s *MutableCellState) Get(i int32) (int32, int32) {
	if i < 0 || i >= s.totalCells {
		return 0, 0
	}
	return s.molecule[i], s.owner[i]
}

func (s *MutableCellState) clear() {
	for i := range s.molecule {
		s.molecule[i] = 0
		s.owner[i] = 0
	}
}

func (s *MutableCellState) write(cols wire.CellDataColumns) {
	n := len(cols.FlatIndices)
	for i := 0; i < n; i++ {
		flat := cols.FlatIndices[i]
		if flat < 0 || flat >= s.totalCells {
			continue
		}
		s.molecule[flat] = cols.MoleculeData[i]
		s.owner[flat] = cols.OwnerIDs[i]
	}
}

// ApplySnapshot clears all cells, then writes every (flat, molecule, owner)
// triple from cols.
func (s *MutableCellState) ApplySnapshot(cols wire.CellDataColumns) {
	s.clear()
	s.write(cols)
}

// ApplyDelta writes every (flat, molecule, owner) triple from cols.
// Out-of-range flat indices are ignored silently; occupancy is recomputed
// lazily from the combined criterion on read.
func (s *MutableCellState) ApplyDelta(cols wire.CellDataColumns) {
	s.write(cols)
}

// ToCellColumns exports every currently-occupied cell, in ascending
// flat-index order.
func (s *MutableCellState) ToCellColumns() wire.CellDataColumns {
	var cols wire.CellDataColumns
	for i := int32(0); i < s.totalCells; i++ {
		if s.IsOccupied(i) {
			cols.FlatIndices = append(cols.FlatIndices, i)
			cols.MoleculeData = append(cols.MoleculeData, s.molecule[i])
			cols.OwnerIDs = append(cols.OwnerIDs, s.owner[i])
		}
	}
	return cols
}

// ErrChunkCorrupted is returned when a requested tick cannot be located
// within a chunk's recorded range.
type ErrChunkCorrupted struct {
	RunID string
	Tick  uint64
}

func (e *ErrChunkCorrupted) Error() string {
	return fmt.Sprintf("codec: tick %d not present in chunk for run %q", e.Tick, e.RunID)
}

// DecompressChunk replays an entire chunk into a sequence of full TickData
// snapshots, one per recorded tick (snapshot, then every delta applied in
// order).
func DecompressChunk(totalCells int32, chunk wire.TickDataChunk) []wire.TickData {
	state := NewMutableCellState(totalCells)
	state.ApplySnapshot(chunk.Snapshot.CellColumns)

	out := make([]wire.TickData, 0, 1+len(chunk.Deltas))
	out = append(out, tickDataAt(chunk.Snapshot, state))

	for _, d := range chunk.Deltas {
		state.ApplyDelta(d.ChangedCells)
		out = append(out, tickDataFromDelta(d, state))
	}
	return out
}

func tickDataAt(base wire.TickData, state *MutableCellState) wire.TickData {
	out := base
	out.CellColumns = state.ToCellColumns()
	return out
}

func tickDataFromDelta(d wire.TickDelta, state *MutableCellState) wire.TickData {
	return wire.TickData{
		RunID:                   d.RunID,
		TickNumber:              d.TickNumber,
		CaptureTimeMs:           d.CaptureTimeMs,
		CellColumns:             state.ToCellColumns(),
		TotalOrganismsCreated:   d.TotalOrganismsCreated,
		RNGState:                d.RNGState,
		PluginStates:            d.PluginStates,
		AllGenomeHashesEverSeen: d.AllGenomeHashesEverSeen,
	}
}

// DecompressTick replays only as much of chunk as needed to reconstruct
// the full state at tick: the snapshot if tick equals its tickNumber;
// otherwise the snapshot, the latest ACCUMULATED delta at or before tick
// (if any), and every INCREMENTAL delta strictly after that accumulated
// delta up to and including tick.
func DecompressTick(totalCells int32, chunk wire.TickDataChunk, tick uint64) (wire.TickData, error) {
	if tick < chunk.FirstTick || tick > chunk.LastTick {
		return wire.TickData{}, &ErrChunkCorrupted{RunID: chunk.RunID, Tick: tick}
	}

	state := NewMutableCellState(totalCells)
	state.ApplySnapshot(chunk.Snapshot.CellColumns)
	if tick == chunk.Snapshot.TickNumber {
		return tickDataAt(chunk.Snapshot, state), nil
	}

	found := false
	for _, d := range chunk.Deltas {
		if d.TickNumber > tick {
			break
		}
		if d.TickNumber == tick {
			found = true
		}
	}
	if !found {
		return wire.TickData{}, &ErrChunkCorrupted{RunID: chunk.RunID, Tick: tick}
	}

	lastAccumIdx := -1
	for i, d := range chunk.Deltas {
		if d.TickNumber > tick {
			break
		}
		if d.DeltaType == wire.Accumulated {
			lastAccumIdx = i
		}
	}

	var last wire.TickDelta
	haveLast := false
	for i, d := range chunk.Deltas {
		if d.TickNumber > tick {
			break
		}
		if i < lastAccumIdx {
			continue // superseded by a later accumulated delta at/before tick
		}
		state.ApplyDelta(d.ChangedCells)
		last = d
		haveLast = true
	}
	if !haveLast {
		// tick must equal the snapshot's own tick number; handled above,
		// but guard defensively.
		return tickDataAt(chunk.Snapshot, state), nil
	}
	return tickDataFromDelta(last, state), nil
}
