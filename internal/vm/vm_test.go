package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evochora/evochora-sub009/internal/grid"
	"github.com/evochora/evochora-sub009/internal/molecule"
	"github.com/evochora/evochora-sub009/internal/organism"
	"github.com/evochora/evochora-sub009/internal/thermo"
)

func newTestVM(t *testing.T, shape []int, toroidal bool) (*VM, *grid.Grid) {
	t.Helper()
	g, err := grid.New(shape, toroidal, grid.ExactValue)
	require.NoError(t, err)
	policy := thermo.Default{BaseEnergyCost: 1, BaseEntropyDelta: 1}
	return New(g, policy, 5, 16), g
}

func TestPlanExecuteNOPThenCode(t *testing.T) {
	m, g := newTestVM(t, []int{10, 10}, false)
	flat, err := g.CoordToFlat([]int{5, 5})
	require.NoError(t, err)
	require.NoError(t, g.SetByIndex(flat, molecule.New(molecule.CODE, int32(NOP)), 0))
	next, _ := g.NeighborFlat(flat, 0, 1)
	require.NoError(t, g.SetByIndex(next, molecule.New(molecule.CODE, 42), 0))

	o := organism.New(1, 0, "p", []int32{5, 5}, []int32{1, 0}, 1, []int32{5, 5}, 1, 1, 1, 1)
	o.Energy = 100

	in, err := m.Plan(o)
	require.NoError(t, err)
	assert.Equal(t, NOP, in.Opcode)
	assert.True(t, in.IsParallelExecuteSafe())

	m.Execute(in, nil)
	assert.True(t, in.ExecutedInTick)
	assert.Equal(t, int64(99), o.Energy)
	assert.Equal(t, int64(1), o.Entropy)
}

func TestWriteClaimsTargetAndExecutes(t *testing.T) {
	m, g := newTestVM(t, []int{5, 5}, false)
	ipFlat, err := g.CoordToFlat([]int{0, 0})
	require.NoError(t, err)
	// WRITE <value=7> <dx=1,dy=0>
	require.NoError(t, g.SetByIndex(ipFlat, molecule.New(molecule.CODE, int32(WRITE)), 0))
	c1, _ := g.NeighborFlat(ipFlat, 0, 1)
	require.NoError(t, g.SetByIndex(c1, molecule.New(molecule.DATA, 7), 0))
	c2, _ := g.NeighborFlat(c1, 0, 1)
	require.NoError(t, g.SetByIndex(c2, molecule.New(molecule.DATA, 1), 0))
	c3, _ := g.NeighborFlat(c2, 0, 1)
	require.NoError(t, g.SetByIndex(c3, molecule.New(molecule.DATA, 0), 0))

	o := organism.New(1, 0, "p", []int32{0, 0}, []int32{1, 0}, 1, []int32{0, 0}, 1, 1, 1, 1)
	o.Energy = 100

	in, err := m.Plan(o)
	require.NoError(t, err)
	assert.Equal(t, WRITE, in.Opcode)
	require.Len(t, in.TargetCoordinates, 1)

	in.ConflictStatus = WON
	m.Execute(in, nil)
	assert.True(t, in.ExecutedInTick)

	mol, owner, err := g.Get(in.TargetCoordinates[0])
	require.NoError(t, err)
	assert.Equal(t, int32(7), mol.Value())
	assert.Equal(t, int32(1), owner)
}

func TestLoserDoesNotExecute(t *testing.T) {
	m, g := newTestVM(t, []int{5, 5}, false)
	ipFlat, err := g.CoordToFlat([]int{0, 0})
	require.NoError(t, err)
	require.NoError(t, g.SetByIndex(ipFlat, molecule.New(molecule.CODE, int32(WRITE)), 0))
	c1, _ := g.NeighborFlat(ipFlat, 0, 1)
	require.NoError(t, g.SetByIndex(c1, molecule.New(molecule.DATA, 7), 0))
	c2, _ := g.NeighborFlat(c1, 0, 1)
	require.NoError(t, g.SetByIndex(c2, molecule.New(molecule.DATA, 1), 0))
	c3, _ := g.NeighborFlat(c2, 0, 1)
	require.NoError(t, g.SetByIndex(c3, molecule.New(molecule.DATA, 0), 0))

	o := organism.New(2, 0, "p", []int32{0, 0}, []int32{1, 0}, 1, []int32{0, 0}, 1, 1, 1, 1)
	in, err := m.Plan(o)
	require.NoError(t, err)
	in.ConflictStatus = LOST

	m.Execute(in, nil)
	assert.False(t, in.ExecutedInTick)
}

func TestInstantSkipOverflowFailsOrganism(t *testing.T) {
	m, g := newTestVM(t, []int{20, 20}, false)
	// Whole row is empty CODE (NOP-equivalent), never hits a real instruction.
	ipFlat, err := g.CoordToFlat([]int{0, 0})
	require.NoError(t, err)
	require.NoError(t, g.SetByIndex(ipFlat, molecule.New(molecule.CODE, int32(NOP)), 0))

	o := organism.New(1, 0, "p", []int32{0, 0}, []int32{1, 0}, 1, []int32{0, 0}, 1, 1, 1, 1)
	o.Energy = 100
	in, err := m.Plan(o)
	require.NoError(t, err)
	m.Execute(in, nil)
	assert.True(t, o.InstructionFailed)
}

func TestForkCreatesNewborn(t *testing.T) {
	m, g := newTestVM(t, []int{5, 5}, false)
	ipFlat, err := g.CoordToFlat([]int{0, 0})
	require.NoError(t, err)
	// FORK <gift=10> <dx=1,dy=0>
	require.NoError(t, g.SetByIndex(ipFlat, molecule.New(molecule.CODE, int32(FORK)), 0))
	c1, _ := g.NeighborFlat(ipFlat, 0, 1)
	require.NoError(t, g.SetByIndex(c1, molecule.New(molecule.DATA, 10), 0))
	c2, _ := g.NeighborFlat(c1, 0, 1)
	require.NoError(t, g.SetByIndex(c2, molecule.New(molecule.DATA, 1), 0))
	c3, _ := g.NeighborFlat(c2, 0, 1)
	require.NoError(t, g.SetByIndex(c3, molecule.New(molecule.DATA, 0), 0))

	o := organism.New(1, 0, "p", []int32{0, 0}, []int32{1, 0}, 1, []int32{0, 0}, 1, 1, 1, 1)
	o.Energy = 100

	in, err := m.Plan(o)
	require.NoError(t, err)
	in.ConflictStatus = WON

	var newborns []*organism.Organism
	nextID := int32(2)
	ctx := &ExecContext{Tick: 0, AllocID: func() int32 { id := nextID; nextID++; return id }, Newborns: &newborns}
	m.Execute(in, ctx)

	require.Len(t, newborns, 1)
	assert.Equal(t, int32(2), newborns[0].ID)
	assert.Equal(t, int64(10), newborns[0].Energy)
	// 100 - 10 (gift) - 1 (policy cost) = 89.
	assert.Equal(t, int64(89), o.Energy)
}
