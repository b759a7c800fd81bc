// Package engine implements the Tick Scheduler: the deterministic
// Plan/Resolve/Execute loop that advances every organism by one tick, with
// optional parallel planning/wave-1 execution, birth and death handling,
// plugin dispatch, and periodic capture to the delta codec (spec.md §4.4).
package engine

import (
	"log/slog"

	"github.com/evochora/evochora-sub009/internal/codec"
	"github.com/evochora/evochora-sub009/internal/genome"
	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/plugin"
	"github.com/evochora/evochora-sub009/internal/pool"
	"github.com/evochora/evochora-sub009/internal/rng"
	"github.com/evochora/evochora-sub009/internal/thermo"
	"github.com/evochora/evochora-sub009/internal/vm"
	"github.com/evochora/evochora-sub009/internal/xlog"
)

// Engine is the tick scheduler. A single instance drives one simulation
// run; Tick is not safe to call concurrently with itself or with the other
// control-surface methods — the scheduling model is a single logical loop
// on the calling goroutine (spec.md §5).
type Engine struct {
	runID  string
	g      *grid.Grid
	vm     *vm.VM
	errorPenaltyCost int64

	pool    *pool.Pool
	scaling ParallelismScaling
	orgCfg  OrganismConfig

	plugins     *plugin.Registry
	rngProvider *rng.Provider
	census      *genome.Census
	encoder     *codec.Encoder

	organisms             []*organism.Organism
	currentTick           uint64
	nextOrganismID        int32
	totalOrganismsCreated uint64
	programsJSON          string

	log           *slog.Logger
	interceptCtxs []*plugin.InterceptionContext
}

// New constructs a fresh Engine over an empty organism roster.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = xlog.New("engine")
	}
	return &Engine{
		runID:                 cfg.RunID,
		g:                     cfg.Grid,
		vm:                    vm.New(cfg.Grid, cfg.Policy, cfg.ErrorPenaltyCost, cfg.MaxInstantSkip),
		errorPenaltyCost:      cfg.ErrorPenaltyCost,
		pool:                  pool.New(cfg.PoolSize),
		scaling:               cfg.Scaling,
		orgCfg:                cfg.Organism,
		plugins:               plugin.NewRegistry(log),
		rngProvider:           rng.New(cfg.Seed),
		census:                genome.NewCensus(),
		encoder:               codec.NewEncoder(cfg.RunID, cfg.Grid.Total(), cfg.EncoderA, cfg.EncoderS, cfg.EncoderC),
		nextOrganismID:        1,
		log:                   log,
		interceptCtxs:         makeInterceptContexts(cfg.PoolSize),
	}, nil
}

// ResumeConfig carries the construction details spec.md's forResume factory
// doesn't name directly (pool sizing, codec intervals, logging) — the
// caller is expected to source these from the same resolvedConfigJson the
// Restorer already parsed.
type ResumeConfig struct {
	RunID            string
	ErrorPenaltyCost int64
	MaxInstantSkip   int32
	PoolSize         int
	EncoderA, EncoderS, EncoderC int
	Log              *slog.Logger
}

// ForResume builds an Engine already positioned at currentTick, with
// totalOrganismsCreated and census carried over from the checkpoint. The
// caller still must wire the restored RNG provider (SetRandomProvider),
// organisms (AddOrganism, once per restored organism), and plugins
// (RegisterTickPlugin/Interceptor/DeathHandler/BirthHandler, once per
// restored instance) — exactly the handle spec.md §4.11 describes the
// Restorer returning for the caller to apply via the normal control
// surface, rather than this factory reaching into the Restorer itself.
func ForResume(g *grid.Grid, currentTick uint64, totalOrganismsCreated uint64, census *genome.Census, policy thermo.Policy, orgCfg OrganismConfig, parallelism ParallelismScaling, resumeCfg ResumeConfig) (*Engine, error) {
	if err := orgCfg.validate(); err != nil {
		return nil, err
	}
	if err := parallelism.validate(); err != nil {
		return nil, err
	}
	cfg := Config{
		RunID: resumeCfg.RunID, Grid: g, Policy: policy,
		ErrorPenaltyCost: resumeCfg.ErrorPenaltyCost, MaxInstantSkip: resumeCfg.MaxInstantSkip,
		PoolSize: resumeCfg.PoolSize, Scaling: parallelism, Organism: orgCfg,
		EncoderA: resumeCfg.EncoderA, EncoderS: resumeCfg.EncoderS, EncoderC: resumeCfg.EncoderC,
		Log: resumeCfg.Log,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	e.currentTick = currentTick
	e.totalOrganismsCreated = totalOrganismsCreated
	e.nextOrganismID = int32(totalOrganismsCreated) + 1
	e.census = census
	return e, nil
}

func makeInterceptContexts(n int) []*plugin.InterceptionContext {
	out := make([]*plugin.InterceptionContext, n)
	for i := range out {
		out[i] = &plugin.InterceptionContext{ThreadIndex: i}
	}
	return out
}

// Shutdown stops the worker pool. Idempotent; must not be called while a
// tick is in flight.
func (e *Engine) Shutdown() { e.pool.Shutdown() }

// RegisterTickPlugin registers p under name against the tick-plugin hook
// (and any other SPI interface p also implements).
func (e *Engine) RegisterTickPlugin(name string, p plugin.TickPlugin) { e.plugins.Register(name, p) }

// RegisterInterceptor registers p under name against the interceptor hook.
func (e *Engine) RegisterInterceptor(name string, p plugin.Interceptor) { e.plugins.Register(name, p) }

// RegisterDeathHandler registers p under name against the death-handler hook.
func (e *Engine) RegisterDeathHandler(name string, p plugin.DeathHandler) { e.plugins.Register(name, p) }

// RegisterBirthHandler registers p under name against the birth-handler hook.
func (e *Engine) RegisterBirthHandler(name string, p plugin.BirthHandler) { e.plugins.Register(name, p) }

// SetProgramArtifacts stores the compiler's program artifacts, opaque to
// the engine, for inclusion in the next persisted metadata blob.
func (e *Engine) SetProgramArtifacts(programsJSON string) { e.programsJSON = programsJSON }

// ProgramArtifacts returns the currently stored program artifacts blob.
func (e *Engine) ProgramArtifacts() string { return e.programsJSON }

// SetRandomProvider replaces the engine's RNG provider wholesale (used by
// resume to install the provider rebuilt from saved state).
func (e *Engine) SetRandomProvider(p *rng.Provider) { e.rngProvider = p }

// RandomProvider returns the engine's current RNG provider.
func (e *Engine) RandomProvider() *rng.Provider { return e.rngProvider }

// SetParallelismScaling replaces the active/max-thread scaling table.
func (e *Engine) SetParallelismScaling(organismThresholds, maxThreads []int) error {
	s := ParallelismScaling{Thresholds: organismThresholds, MaxThreads: maxThreads}
	if err := s.validate(); err != nil {
		return err
	}
	e.scaling = s
	return nil
}

// AddOrganism appends an already-constructed organism to the roster
// without running birth handlers or genome hashing — for seeding an
// initial population or restoring organisms from a checkpoint, both of
// which carry their own already-finalized state.
func (e *Engine) AddOrganism(o *organism.Organism) {
	e.organisms = append(e.organisms, o)
	if o.ID >= e.nextOrganismID {
		e.nextOrganismID = o.ID + 1
	}
}

// AddNewOrganism allocates a fresh id, constructs an organism with the
// engine's configured register/stack shape, and runs it through the same
// birth finalization (handlers, genome hash, census registration) as a
// FORK-spawned newborn, before appending it to the roster.
func (e *Engine) AddNewOrganism(programID string, ip, dv []int32, initialPosition []int32) *organism.Organism {
	id := e.allocID()
	o := organism.New(id, e.currentTick, programID, ip, dv, e.orgCfg.DPCount, initialPosition,
		e.orgCfg.DataRegs, e.orgCfg.ProcRegs, e.orgCfg.FPRegs, e.orgCfg.LocRegs)
	e.finalizeBirth(o)
	e.organisms = append(e.organisms, o)
	return o
}

func (e *Engine) allocID() int32 {
	id := e.nextOrganismID
	e.nextOrganismID++
	e.totalOrganismsCreated++
	return id
}

// PruneDeadOrganisms drops every dead organism from the roster. Callers
// invoke this only after a dead organism has been captured at least once,
// per spec.md's "kept until the next pipeline serialization boundary".
func (e *Engine) PruneDeadOrganisms() {
	alive := e.organisms[:0]
	for _, o := range e.organisms {
		if !o.IsDead {
			alive = append(alive, o)
		}
	}
	e.organisms = alive
}

// CurrentTick returns the tick number about to execute (or, mid-call,
// already executing). Implements plugin.EngineView.
func (e *Engine) CurrentTick() uint64 { return e.currentTick }

// Organisms returns the live roster, including not-yet-pruned dead
// organisms. Implements plugin.EngineView.
func (e *Engine) Organisms() []*organism.Organism { return e.organisms }

// Grid returns the engine's grid. Implements plugin.EngineView.
func (e *Engine) Grid() *grid.Grid { return e.g }

// TotalOrganismsCreatedCount returns the all-time count of allocated ids.
func (e *Engine) TotalOrganismsCreatedCount() uint64 { return e.totalOrganismsCreated }

// TotalUniqueGenomesCount returns the genome census size.
func (e *Engine) TotalUniqueGenomesCount() int { return e.census.Count() }

// AllGenomesEverSeen returns every nonzero genome hash ever registered.
func (e *Engine) AllGenomesEverSeen() []uint64 { return e.census.All() }

func (e *Engine) finalizeBirth(o *organism.Organism) {
	handlers := e.plugins.BirthHandlers()
	names := e.plugins.BirthHandlerNames()
	for i, h := range handlers {
		e.plugins.RunBirth(names[i], h, o, e.g, e.currentTick)
	}
	initFlat, err := e.g.CoordToFlat(int32ToInt(o.InitialPosition))
	if err != nil {
		return
	}
	hash := genome.Hash(e.g, o.ID, initFlat)
	o.GenomeHash = hash
	e.census.Register(hash)
}

func int32ToInt(s []int32) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}
