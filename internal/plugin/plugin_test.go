package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/xlog"
)

type stubEngine struct {
	tick uint64
	orgs []*organism.Organism
	g    *grid.Grid
}

func (s *stubEngine) CurrentTick() uint64             { return s.tick }
func (s *stubEngine) Organisms() []*organism.Organism { return s.orgs }
func (s *stubEngine) Grid() *grid.Grid                { return s.g }

type countingTickPlugin struct {
	calls int
	fail  bool
	panic bool
}

func (p *countingTickPlugin) SaveState() ([]byte, error) { return nil, nil }
func (p *countingTickPlugin) LoadState([]byte) error     { return nil }
func (p *countingTickPlugin) Execute(EngineView) error {
	p.calls++
	if p.panic {
		panic("boom")
	}
	if p.fail {
		return errors.New("boom")
	}
	return nil
}

func TestRegisterClassifiesByInterface(t *testing.T) {
	r := NewRegistry(xlog.Nop())
	p := &countingTickPlugin{}
	r.Register("counter", p)
	assert.Len(t, r.TickPlugins(), 1)
	assert.Len(t, r.Interceptors(), 0)
}

func TestRunTickSwallowsFailureAndContinues(t *testing.T) {
	r := NewRegistry(xlog.Nop())
	p := &countingTickPlugin{fail: true}
	r.Register("faulty", p)

	eng := &stubEngine{}
	assert.NotPanics(t, func() { r.RunTick("faulty", eng, p) })
	assert.Equal(t, 1, p.calls)
}

func TestRunTickRecoversPanicAndContinues(t *testing.T) {
	r := NewRegistry(xlog.Nop())
	p := &countingTickPlugin{panic: true}
	r.Register("panicky", p)

	eng := &stubEngine{tick: 7}
	assert.NotPanics(t, func() { r.RunTick("panicky", eng, p) })
	assert.Equal(t, 1, p.calls)
}

func TestRunTickOpensCircuitAfterRepeatedFailures(t *testing.T) {
	r := NewRegistry(xlog.Nop())
	p := &countingTickPlugin{fail: true}
	r.Register("faulty", p)
	eng := &stubEngine{}

	for i := 0; i < 10; i++ {
		r.RunTick("faulty", eng, p)
	}
	// Breaker trips after 5 consecutive failures; further calls should be
	// skipped rather than re-invoking the plugin every tick.
	assert.Less(t, p.calls, 10)
}

// capturingHandler records the attrs of every Warn-level record, so a test
// can assert the containment log line carries plugin class, tick, and
// organism id rather than just the bare error.
type capturingHandler struct {
	records []slog.Record
}

func (h *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}
func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingHandler) WithGroup(string) slog.Handler      { return h }

func (h *capturingHandler) attrMap(i int) map[string]any {
	out := make(map[string]any)
	h.records[i].Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	return out
}

type panickyDeathHandler struct{}

func (panickyDeathHandler) SaveState() ([]byte, error) { return nil, nil }
func (panickyDeathHandler) LoadState([]byte) error     { return nil }
func (panickyDeathHandler) OnDeath(*DeathContext) error {
	panic("boom")
}

func TestRunDeathRecoversPanicAndLogsOrganismAndTick(t *testing.T) {
	h := &capturingHandler{}
	r := NewRegistry(slog.New(h))
	handler := panickyDeathHandler{}
	r.Register("killer", handler)

	g, err := grid.New([]int{4, 4}, false, grid.ExactValue)
	require.NoError(t, err)
	o := &organism.Organism{ID: 42}
	ctx := NewDeathContext(o, g)

	assert.NotPanics(t, func() { r.RunDeath("killer", handler, ctx, 99) })

	require.Len(t, h.records, 1)
	attrs := h.attrMap(0)
	assert.Equal(t, "killer", attrs["plugin"])
	assert.Equal(t, uint64(99), attrs["tick"])
	assert.Equal(t, int64(42), attrs["organism"])
}

func TestDeathContextExposesOnlyOwnedCells(t *testing.T) {
	g, err := grid.New([]int{4, 4}, false, grid.ExactValue)
	require.NoError(t, err)
	flat, err := g.CoordToFlat([]int{1, 1})
	require.NoError(t, err)
	require.NoError(t, g.SetByIndex(flat, molecule.New(molecule.DATA, 5), 1))

	o := &organism.Organism{ID: 1}
	ctx := NewDeathContext(o, g)
	require.Len(t, ctx.OwnedIndices(), 1)
	assert.Equal(t, flat, ctx.OwnedIndices()[0])

	ctx.CurrentCell = flat
	packed, err := ctx.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, int32(5), molecule.FromPacked(packed).Value())
}
