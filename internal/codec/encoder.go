package codec

import (
	"sort"
	"time"

	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/wire"
)

type cellVal struct {
	mol   int32
	owner int32
}

// Encoder samples grid and organism state on a schedule of snapshot and
// delta ticks, assembling them into sealed chunks (spec.md §4.8). A single
// Encoder instance is not safe for concurrent use.
type Encoder struct {
	runID      string
	totalCells int32

	// a, s, c are the encoder's config triple. The snapshot period is a*s
	// samples; within that period, role is determined by the sample's
	// position per the schedule in CaptureTick (mirroring the testable
	// property: snapshot iff i mod (a*s) == 0, else accumulated iff
	// (i mod (a*s)) mod a == 0, else incremental — except that within an
	// already-open chunk a recurring "snapshot" position degrades to
	// accumulated, since a chunk holds only one true snapshot).
	// samplesPerChunk is the derived a*s*c (spec.md §3): a chunk seals
	// once it has accumulated that many samples, not merely c of them.
	a, s, c         int
	samplesPerChunk int

	samplesSinceStart  int64
	sampleCountInChunk int

	chunkFirstTick uint64
	snapshot       wire.TickData
	deltas         []wire.TickDelta

	baseline             map[int32]cellVal
	touchedSinceSnapshot map[int32]struct{}
}

// NewEncoder constructs an Encoder from the config triple (A, S, C):
// A is the accumulated-delta interval, S the number of A-periods between
// snapshots, and C the number of snapshot periods per sealed chunk (a
// chunk seals after A·S·C samples).
func NewEncoder(runID string, totalCells int32, a, s, c int) *Encoder {
	if a < 1 {
		a = 1
	}
	if s < 1 {
		s = 1
	}
	if c < 1 {
		c = 1
	}
	return &Encoder{
		runID:                runID,
		totalCells:           totalCells,
		a:                    a,
		s:                    s,
		c:                    c,
		samplesPerChunk:      a * s * c,
		touchedSinceSnapshot: make(map[int32]struct{}),
	}
}

func columnsFromFlats(g *grid.Grid, flats []int32) wire.CellDataColumns {
	cols := wire.CellDataColumns{
		FlatIndices:  make([]int32, len(flats)),
		MoleculeData: make([]int32, len(flats)),
		OwnerIDs:     make([]int32, len(flats)),
	}
	for i, f := range flats {
		m, owner, _ := g.Get(f)
		cols.FlatIndices[i] = f
		cols.MoleculeData[i] = m.Packed()
		cols.OwnerIDs[i] = owner
	}
	return cols
}

func sortedInt32Keys(m map[int32]struct{}) []int32 {
	out := make([]int32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func accumulatedColumns(g *grid.Grid, baseline map[int32]cellVal, touched map[int32]struct{}) wire.CellDataColumns {
	var cols wire.CellDataColumns
	for _, flat := range sortedInt32Keys(touched) {
		m, owner, err := g.Get(flat)
		if err != nil {
			continue
		}
		base := baseline[flat] // zero value if absent: unoccupied before
		if m.Packed() == base.mol && owner == base.owner {
			continue
		}
		cols.FlatIndices = append(cols.FlatIndices, flat)
		cols.MoleculeData = append(cols.MoleculeData, m.Packed())
		cols.OwnerIDs = append(cols.OwnerIDs, owner)
	}
	return cols
}

// CaptureTick samples the current tick's state. genomeHashes is the full
// set of hashes ever observed so far (census.All()), embedded verbatim in
// every snapshot and delta per the §6.1 TickData/TickDelta schema. It
// returns the sealed chunk and true once the chunk reaches
// samplesPerChunk = A·S·C samples; otherwise (nil, false).
func (e *Encoder) CaptureTick(tick uint64, g *grid.Grid, organisms []*organism.Organism, totalOrganismsCreated uint64, rngState []byte, pluginStates []wire.PluginState, genomeHashes []uint64) (*wire.TickDataChunk, bool) {
	period := int64(e.a) * int64(e.s)
	posInPeriod := e.samplesSinceStart % period
	roleSnapshot := posInPeriod == 0
	roleAccumulated := !roleSnapshot && posInPeriod%int64(e.a) == 0

	// A chunk holds exactly one snapshot (spec.md §3). samplesPerChunk is
	// C whole snapshot periods, so the role schedule recurs to "snapshot"
	// again inside an already-open chunk whenever C > 1; only the sample
	// that opens a fresh chunk is ever captured as the chunk's one true
	// TickData. A later recurrence degrades to an ACCUMULATED delta
	// instead — which already means "everything since the chunk's
	// baseline" and is informationally equivalent to re-snapshotting.
	captureSnapshot := roleSnapshot && e.sampleCountInChunk == 0
	captureAccumulated := roleAccumulated || (roleSnapshot && !captureSnapshot)

	var cols wire.CellDataColumns
	if captureSnapshot {
		occ := g.AllOccupied()
		cols = columnsFromFlats(g, occ)
		base := make(map[int32]cellVal, len(occ))
		for i, f := range occ {
			base[f] = cellVal{mol: cols.MoleculeData[i], owner: cols.OwnerIDs[i]}
		}
		e.baseline = base
		e.touchedSinceSnapshot = make(map[int32]struct{})
	} else {
		changed := g.ChangedIndices()
		for _, f := range changed {
			e.touchedSinceSnapshot[f] = struct{}{}
		}
		if captureAccumulated {
			cols = accumulatedColumns(g, e.baseline, e.touchedSinceSnapshot)
		} else {
			cols = columnsFromFlats(g, changed)
		}
	}
	g.ResetChangeTracking()

	orgStates := make([]wire.OrganismState, len(organisms))
	for i, o := range organisms {
		orgStates[i] = ToWireOrganism(o)
	}
	now := uint64(time.Now().UnixMilli())

	if captureSnapshot {
		e.snapshot = wire.TickData{
			RunID: e.runID, TickNumber: tick, CaptureTimeMs: now,
			CellColumns: cols, Organisms: orgStates,
			TotalOrganismsCreated: totalOrganismsCreated, RNGState: rngState,
			PluginStates: pluginStates, AllGenomeHashesEverSeen: genomeHashes,
		}
		e.chunkFirstTick = tick
		e.sampleCountInChunk = 1
	} else {
		deltaType := wire.Incremental
		if captureAccumulated {
			deltaType = wire.Accumulated
		}
		e.deltas = append(e.deltas, wire.TickDelta{
			TickNumber: tick, CaptureTimeMs: now, DeltaType: deltaType,
			ChangedCells: cols, RunID: e.runID,
			TotalOrganismsCreated: totalOrganismsCreated, RNGState: rngState,
			PluginStates: pluginStates, AllGenomeHashesEverSeen: genomeHashes,
		})
		e.sampleCountInChunk++
	}
	e.samplesSinceStart++

	if e.sampleCountInChunk >= e.samplesPerChunk {
		return e.seal(tick), true
	}
	return nil, false
}

// FlushPartialChunk seals whatever has been built so far, regardless of
// fullness, and resets the in-progress chunk builder. Returns nil if no
// sample has been captured since the last seal.
func (e *Encoder) FlushPartialChunk() *wire.TickDataChunk {
	if e.sampleCountInChunk == 0 {
		return nil
	}
	lastTick := e.chunkFirstTick
	if len(e.deltas) > 0 {
		lastTick = e.deltas[len(e.deltas)-1].TickNumber
	}
	// Restart the role schedule so the next sample opens the next chunk
	// with its own snapshot.
	e.samplesSinceStart = 0
	return e.seal(lastTick)
}

func (e *Encoder) seal(lastTick uint64) *wire.TickDataChunk {
	chunk := &wire.TickDataChunk{
		RunID:     e.runID,
		FirstTick: e.chunkFirstTick,
		LastTick:  lastTick,
		TickCount: uint32(e.sampleCountInChunk),
		Snapshot:  e.snapshot,
		Deltas:    e.deltas,
	}
	e.deltas = nil
	e.sampleCountInChunk = 0
	return chunk
}
