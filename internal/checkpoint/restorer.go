package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/evochora/evochora-sub009/internal/codec"
	"github.com/evochora/evochora-sub009/internal/genome"
	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/plugin"
	"github.com/evochora/evochora-sub009/internal/rng"
	"github.com/evochora/evochora-sub009/internal/xlog"
)

// PluginFactory constructs a fresh plugin instance of a given class, wired
// to the restored RNG provider. The caller (the engine) supplies one
// factory per plugin class it knows how to instantiate; an unknown class
// in the snapshot's plugin states is a ResumeError.
type PluginFactory func(rng *rng.Provider) (any, error)

// Result is everything the engine needs to resume a run.
type Result struct {
	RunID                 string
	Grid                  *grid.Grid
	Organisms             []*organism.Organism
	RNG                   *rng.Provider
	Census                *genome.Census
	Plugins               *plugin.Registry
	ProgramsJSON          string
	TotalOrganismsCreated uint64
	ResumeFromTick        uint64
	StartTimeMs           int64
	Seed                  int64
}

type environmentConfig struct {
	LabelMatchPolicy string `json:"labelMatchPolicy"`
}

func labelPolicyFromConfig(resolvedConfigJSON string) grid.LabelMatchPolicy {
	var cfg environmentConfig
	// Unrecognized or missing policy defaults to ExactValue: resolvedConfigJson
	// is the authoritative *engine* config and spec.md does not name this as
	// a ResumeError case, so a parse miss here is not fatal.
	if err := json.Unmarshal([]byte(resolvedConfigJSON), &cfg); err != nil {
		return grid.ExactValue
	}
	if cfg.LabelMatchPolicy == "nearest" {
		return grid.NearestMatch
	}
	return grid.ExactValue
}

func int32ToInt(s []int32) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}

func rebuildGrid(meta environmentSource) (*grid.Grid, error) {
	shape := int32ToInt(meta.shape())
	g, err := grid.New(shape, meta.toroidal(), labelPolicyFromConfig(meta.resolvedConfigJSON()))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: rebuilding grid: %w", err)
	}
	return g, nil
}

// environmentSource is the narrow slice of SimulationMetadata the grid
// rebuild needs; kept as an interface so tests can supply fixtures without
// constructing a full wire.SimulationMetadata.
type environmentSource interface {
	shape() []int32
	toroidal() bool
	resolvedConfigJSON() string
}

type metadataEnv struct{ m *environmentHolder }

type environmentHolder struct {
	Shape              []int32
	Toroidal           bool
	ResolvedConfigJSON string
}

func (e metadataEnv) shape() []int32            { return e.m.Shape }
func (e metadataEnv) toroidal() bool            { return e.m.Toroidal }
func (e metadataEnv) resolvedConfigJSON() string { return e.m.ResolvedConfigJSON }

// Restore rebuilds grid, organisms, RNG, census, and plugins from a loaded
// checkpoint, per spec.md §4.11. factories must contain an entry for every
// distinct PluginClass present in the snapshot's plugin states.
func Restore(ckpt *ResumeCheckpoint, factories map[string]PluginFactory) (*Result, error) {
	env := metadataEnv{&environmentHolder{
		Shape:              ckpt.Metadata.Shape,
		Toroidal:           ckpt.Metadata.Toroidal,
		ResolvedConfigJSON: ckpt.Metadata.ResolvedConfigJSON,
	}}
	g, err := rebuildGrid(env)
	if err != nil {
		return nil, err
	}

	snap := ckpt.Snapshot
	cols := snap.CellColumns
	for i, flat := range cols.FlatIndices {
		m := molecule.FromPacked(cols.MoleculeData[i])
		if err := g.SetByIndex(flat, m, cols.OwnerIDs[i]); err != nil {
			return nil, fmt.Errorf("checkpoint: restoring cell %d: %w", flat, err)
		}
	}
	g.ResetChangeTracking()

	organisms := make([]*organism.Organism, len(snap.Organisms))
	for i, ws := range snap.Organisms {
		organisms[i] = codec.FromWireOrganism(ws)
	}

	provider := rng.New(uint64(ckpt.Metadata.InitialSeed))
	if len(snap.RNGState) > 0 {
		if err := provider.LoadState(snap.RNGState); err != nil {
			return nil, resumeErr("load rng state", err)
		}
	}

	var census *genome.Census
	if len(snap.AllGenomeHashesEverSeen) > 0 {
		census = genome.RestoreFrom(snap.AllGenomeHashesEverSeen)
	} else {
		census = genome.NewCensus()
		// Backwards compatibility: no saved census list. Reconstruct from
		// the genome hashes of currently-alive organisms only; extinct
		// genomes are unrecoverable and must not be invented.
		for _, o := range organisms {
			if o.IsDead {
				continue
			}
			initFlat, ferr := g.CoordToFlat(int32ToInt(o.InitialPosition))
			if ferr != nil {
				continue
			}
			census.Register(genome.Hash(g, o.ID, initFlat))
		}
	}

	registry := plugin.NewRegistry(xlog.New("checkpoint"))
	for _, ps := range snap.PluginStates {
		factory, ok := factories[ps.PluginClass]
		if !ok {
			return nil, resumeErr("instantiate plugin", fmt.Errorf("plugin class %q not loadable", ps.PluginClass))
		}
		instance, err := factory(provider)
		if err != nil {
			return nil, resumeErr("instantiate plugin", fmt.Errorf("plugin class %q: %w", ps.PluginClass, err))
		}
		if stateful, ok := instance.(plugin.Stateful); ok && len(ps.StateBlob) > 0 {
			if err := stateful.LoadState(ps.StateBlob); err != nil {
				return nil, resumeErr("load plugin state", fmt.Errorf("plugin class %q: %w", ps.PluginClass, err))
			}
		}
		registry.Register(ps.PluginClass, instance)
	}

	return &Result{
		RunID:                 ckpt.RunID,
		Grid:                  g,
		Organisms:             organisms,
		RNG:                   provider,
		Census:                census,
		Plugins:               registry,
		ProgramsJSON:          ckpt.Metadata.ProgramsJSON,
		TotalOrganismsCreated: snap.TotalOrganismsCreated,
		ResumeFromTick:        ckpt.ResumeFromTick,
		StartTimeMs:           ckpt.Metadata.StartTimeMs,
		Seed:                  ckpt.Metadata.InitialSeed,
	}, nil
}
