// Package plugin defines the extension SPI — tick plugins, instruction
// interceptors, death handlers, and birth handlers — and the registry that
// dispatches to them with per-call failure containment, in the teacher's
// supervised-child style (see DESIGN.md).
package plugin

import (
	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/vm"
)

// Stateful is implemented by every plugin instance: its state must be
// serializable so a checkpoint/resume cycle can reconstruct it exactly.
type Stateful interface {
	SaveState() ([]byte, error)
	LoadState([]byte) error
}

// EngineView is the subset of scheduler state a tick plugin may observe.
// It is intentionally narrow; plugins never get unrestricted engine access.
type EngineView interface {
	CurrentTick() uint64
	Organisms() []*organism.Organism
	Grid() *grid.Grid
}

// TickPlugin runs sequentially at the start of every tick.
type TickPlugin interface {
	Stateful
	Execute(engine EngineView) error
}

// InterceptionContext is the thread-local scratch an interceptor call
// receives; it exposes the planned instruction for inspection and possible
// substitution.
type InterceptionContext struct {
	ThreadIndex int
	Organism    *organism.Organism
	Instruction *vm.Instruction
}

// Interceptor may replace the planned instruction and/or mutate its cached
// operands. Interceptors run on worker threads; implementations sharing an
// instance across threads must be internally thread-safe.
type Interceptor interface {
	Stateful
	Intercept(ctx *InterceptionContext) error
}

// DeathContext exposes only the dying organism's owned cells: iteration and
// read/write of the current cell, nothing else.
type DeathContext struct {
	Organism     *organism.Organism
	CurrentCell  int32
	currentGrid  *grid.Grid
	ownedIndices []int32
}

// NewDeathContext builds a DeathContext over o's currently-owned cells.
func NewDeathContext(o *organism.Organism, g *grid.Grid) *DeathContext {
	return &DeathContext{Organism: o, currentGrid: g, ownedIndices: g.CellsOwnedBy(o.ID)}
}

// OwnedIndices returns the flat indices owned by the dying organism, in
// ascending order.
func (c *DeathContext) OwnedIndices() []int32 { return c.ownedIndices }

// ReadCurrent returns the molecule at the context's current cell.
func (c *DeathContext) ReadCurrent() (int32, error) {
	m, _, err := c.currentGrid.Get(c.CurrentCell)
	if err != nil {
		return 0, err
	}
	return m.Packed(), nil
}

// WriteCurrent overwrites the context's current cell, preserving ownership
// bookkeeping via the grid's normal set path.
func (c *DeathContext) WriteCurrent(packed int32, owner int32) error {
	return c.currentGrid.SetByIndex(c.CurrentCell, molecule.FromPacked(packed), owner)
}

// DeathHandler runs once per dying organism's owned cell, after death and
// before ownership clear.
type DeathHandler interface {
	Stateful
	OnDeath(ctx *DeathContext) error
}

// BirthHandler runs once per newborn in the sequential post-execute phase,
// with full grid access, before genome hashing.
type BirthHandler interface {
	Stateful
	OnBirth(child *organism.Organism, g *grid.Grid) error
}
