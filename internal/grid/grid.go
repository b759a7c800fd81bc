// Package grid implements the n-dimensional toroidal or bounded integer
// grid of molecules that organisms live on and compete for.
package grid

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/evochora/evochora-sub009/internal/molecule"
)

// LabelMatchPolicy names how LABEL/LABELREF operand resolution matches a
// label cell. The grid only stores the policy (see LabelPolicy); no code
// in this module performs label resolution with it.
type LabelMatchPolicy uint8

const (
	// ExactValue requires the LABEL cell's value to equal the LABELREF's
	// referenced value exactly.
	ExactValue LabelMatchPolicy = iota
	// NearestMatch accepts the nearest LABEL cell carrying the referenced
	// value, breaking ties by the grid's neighbor-scan order.
	NearestMatch
)

// Grid is the shared mutable n-dimensional cell space. Every write sets the
// corresponding bit in the change-tracking bitmap and updates the
// owner-to-cells index; resetChangeTracking is the only way to clear that
// bitmap.
type Grid struct {
	shape     []int
	strides   []int32
	total     int32
	toroidal  bool
	labelPolicy LabelMatchPolicy

	cells  []int32 // packed molecule.Molecule values
	owners []int32

	changed *bitset.BitSet
	ownedBy map[int32]map[int32]struct{} // ownerID -> set of flat indices
}

// New constructs an empty grid of the given shape. Total cell count must
// fit in a signed int32, per the data model's invariant.
func New(shape []int, toroidal bool, labelPolicy LabelMatchPolicy) (*Grid, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("grid: shape must have at least one dimension")
	}
	total := int64(1)
	strides := make([]int32, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] <= 0 {
			return nil, fmt.Errorf("grid: dimension %d has non-positive extent %d", i, shape[i])
		}
		strides[i] = int32(total)
		total *= int64(shape[i])
		if total > int64(1)<<31-1 {
			return nil, fmt.Errorf("grid: shape %v exceeds int32 cell-count limit", shape)
		}
	}
	g := &Grid{
		shape:       append([]int(nil), shape...),
		strides:     strides,
		total:       int32(total),
		toroidal:    toroidal,
		labelPolicy: labelPolicy,
		cells:       make([]int32, total),
		owners:      make([]int32, total),
		changed:     bitset.New(uint(total)),
		ownedBy:     make(map[int32]map[int32]struct{}),
	}
	return g, nil
}

// Shape returns the declared extents, one per dimension.
func (g *Grid) Shape() []int { return append([]int(nil), g.shape...) }

// Toroidal reports whether out-of-bounds coordinates wrap.
func (g *Grid) Toroidal() bool { return g.toroidal }

// LabelPolicy returns the configured label-match policy.
func (g *Grid) LabelPolicy() LabelMatchPolicy { return g.labelPolicy }

// Total returns the total number of cells.
func (g *Grid) Total() int32 { return g.total }

// CoordToFlat converts an n-D coordinate to its row-major flat index.
// Coordinates are wrapped first if the grid is toroidal; out-of-bounds
// coordinates on a bounded grid return an error.
func (g *Grid) CoordToFlat(coord []int) (int32, error) {
	if len(coord) != len(g.shape) {
		return 0, fmt.Errorf("grid: coordinate dimensionality %d != grid dimensionality %d", len(coord), len(g.shape))
	}
	var flat int32
	for i, c := range coord {
		if g.toroidal {
			c = wrap(c, g.shape[i])
		} else if c < 0 || c >= g.shape[i] {
			return 0, fmt.Errorf("grid: coordinate %v out of bounds on axis %d", coord, i)
		}
		flat += int32(c) * g.strides[i]
	}
	return flat, nil
}

// FlatToCoord converts a row-major flat index back to its n-D coordinate.
func (g *Grid) FlatToCoord(flat int32) ([]int, error) {
	if flat < 0 || flat >= g.total {
		return nil, fmt.Errorf("grid: flat index %d out of range [0,%d)", flat, g.total)
	}
	coord := make([]int, len(g.shape))
	rem := flat
	for i := range g.shape {
		coord[i] = int(rem / g.strides[i])
		rem %= g.strides[i]
	}
	return coord, nil
}

func wrap(c, extent int) int {
	c %= extent
	if c < 0 {
		c += extent
	}
	return c
}

// Get reads the molecule and owner at a flat index.
func (g *Grid) Get(flat int32) (molecule.Molecule, int32, error) {
	if flat < 0 || flat >= g.total {
		return 0, 0, fmt.Errorf("grid: flat index %d out of range", flat)
	}
	return molecule.FromPacked(g.cells[flat]), g.owners[flat], nil
}

// GetByCoord reads the molecule and owner at an n-D coordinate.
func (g *Grid) GetByCoord(coord []int) (molecule.Molecule, int32, error) {
	flat, err := g.CoordToFlat(coord)
	if err != nil {
		return 0, 0, err
	}
	return g.Get(flat)
}

// SetByIndex writes a molecule and owner at a flat index, marks the cell
// changed, and updates the owner-to-cells index.
func (g *Grid) SetByIndex(flat int32, m molecule.Molecule, owner int32) error {
	if flat < 0 || flat >= g.total {
		return fmt.Errorf("grid: flat index %d out of range", flat)
	}
	prevOwner := g.owners[flat]
	if prevOwner != owner {
		if prevOwner != 0 {
			g.removeFromOwnerIndex(prevOwner, flat)
		}
		if owner != 0 {
			g.addToOwnerIndex(owner, flat)
		}
	}
	g.cells[flat] = m.Packed()
	g.owners[flat] = owner
	g.changed.Set(uint(flat))
	return nil
}

func (g *Grid) addToOwnerIndex(owner, flat int32) {
	set, ok := g.ownedBy[owner]
	if !ok {
		set = make(map[int32]struct{})
		g.ownedBy[owner] = set
	}
	set[flat] = struct{}{}
}

func (g *Grid) removeFromOwnerIndex(owner, flat int32) {
	set, ok := g.ownedBy[owner]
	if !ok {
		return
	}
	delete(set, flat)
	if len(set) == 0 {
		delete(g.ownedBy, owner)
	}
}

// ClearOwnershipFor clears the owner field on every cell owned by owner
// and drops its index-set entry entirely. Cell molecule data is left
// untouched; only ownership is cleared.
func (g *Grid) ClearOwnershipFor(owner int32) {
	set, ok := g.ownedBy[owner]
	if !ok {
		return
	}
	for flat := range set {
		g.owners[flat] = 0
		g.changed.Set(uint(flat))
	}
	delete(g.ownedBy, owner)
}

// CellsOwnedBy returns the ascending-sorted flat indices owned by owner.
func (g *Grid) CellsOwnedBy(owner int32) []int32 {
	set := g.ownedBy[owner]
	out := make([]int32, 0, len(set))
	for flat := range set {
		out = append(out, flat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChangedIndices returns the ascending-sorted flat indices changed since
// the last ResetChangeTracking call.
func (g *Grid) ChangedIndices() []int32 {
	out := make([]int32, 0, g.changed.Count())
	for i, ok := g.changed.NextSet(0); ok; i, ok = g.changed.NextSet(i + 1) {
		out = append(out, int32(i))
	}
	return out
}

// ResetChangeTracking clears the change-tracking bitmap. This is the only
// way to end change tracking for the cells written so far.
func (g *Grid) ResetChangeTracking() {
	g.changed.ClearAll()
}

// AllOccupied returns, in ascending flat-index order, every cell for which
// the molecule data is nonzero or the owner is nonzero.
func (g *Grid) AllOccupied() []int32 {
	var out []int32
	for i := int32(0); i < g.total; i++ {
		if g.cells[i] != 0 || g.owners[i] != 0 {
			out = append(out, i)
		}
	}
	return out
}
