package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evochora/evochora-sub009/internal/molecule"
)

func TestFlatCoordBijection(t *testing.T) {
	g, err := New([]int{4, 5, 3}, false, ExactValue)
	require.NoError(t, err)

	for x := 0; x < 4; x++ {
		for y := 0; y < 5; y++ {
			for z := 0; z < 3; z++ {
				coord := []int{x, y, z}
				flat, err := g.CoordToFlat(coord)
				require.NoError(t, err)
				back, err := g.FlatToCoord(flat)
				require.NoError(t, err)
				assert.Equal(t, coord, back)
			}
		}
	}
}

func TestToroidalWrap(t *testing.T) {
	g, err := New([]int{4, 4}, true, ExactValue)
	require.NoError(t, err)

	flat, err := g.CoordToFlat([]int{-1, 5})
	require.NoError(t, err)
	back, err := g.FlatToCoord(flat)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, back)
}

func TestBoundedOutOfRangeErrors(t *testing.T) {
	g, err := New([]int{4, 4}, false, ExactValue)
	require.NoError(t, err)

	_, err = g.CoordToFlat([]int{4, 0})
	assert.Error(t, err)
}

func TestChangeTrackingFaithfulness(t *testing.T) {
	g, err := New([]int{10}, false, ExactValue)
	require.NoError(t, err)

	written := map[int32]struct{}{2: {}, 5: {}, 7: {}}
	for flat := range written {
		require.NoError(t, g.SetByIndex(flat, molecule.New(molecule.DATA, 42), 1))
	}
	// Write one cell twice; it must still appear exactly once.
	require.NoError(t, g.SetByIndex(2, molecule.New(molecule.DATA, 43), 1))

	got := g.ChangedIndices()
	assert.Len(t, got, len(written))
	for _, flat := range got {
		_, ok := written[flat]
		assert.True(t, ok)
	}

	g.ResetChangeTracking()
	assert.Empty(t, g.ChangedIndices())
}

func TestOwnershipIndexAndClear(t *testing.T) {
	g, err := New([]int{10}, false, ExactValue)
	require.NoError(t, err)

	require.NoError(t, g.SetByIndex(0, molecule.New(molecule.DATA, 1), 7))
	require.NoError(t, g.SetByIndex(1, molecule.New(molecule.DATA, 2), 7))
	require.NoError(t, g.SetByIndex(2, molecule.New(molecule.DATA, 3), 9))

	assert.Equal(t, []int32{0, 1}, g.CellsOwnedBy(7))
	assert.Equal(t, []int32{2}, g.CellsOwnedBy(9))

	g.ClearOwnershipFor(7)
	assert.Empty(t, g.CellsOwnedBy(7))

	_, owner, err := g.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), owner)
}

func TestNeighborsToroidal(t *testing.T) {
	g, err := New([]int{3, 3}, true, ExactValue)
	require.NoError(t, err)
	ns := g.Neighbors([]int{0, 0})
	assert.Len(t, ns, 4)
}

func TestAllOccupiedFindsNonzeroDataOrOwner(t *testing.T) {
	g, err := New([]int{4, 4}, false, ExactValue)
	require.NoError(t, err)
	require.NoError(t, g.SetByIndex(0, molecule.New(molecule.DATA, 5), 0))
	require.NoError(t, g.SetByIndex(3, molecule.New(molecule.CODE, 0), 2))
	require.NoError(t, g.SetByIndex(7, molecule.Empty, 0))

	assert.Equal(t, []int32{0, 3}, g.AllOccupied())
}
