package grid

// NeighborCoord returns the coordinate offset from coord by delta along
// axis, respecting toroidal wrap-around. ok is false on a bounded grid
// when the result would fall outside [0, extent).
func (g *Grid) NeighborCoord(coord []int, axis, delta int) (out []int, ok bool) {
	if axis < 0 || axis >= len(g.shape) {
		return nil, false
	}
	out = append([]int(nil), coord...)
	c := out[axis] + delta
	if g.toroidal {
		out[axis] = wrap(c, g.shape[axis])
		return out, true
	}
	if c < 0 || c >= g.shape[axis] {
		return nil, false
	}
	out[axis] = c
	return out, true
}

// NeighborFlat is the flat-index form of NeighborCoord.
func (g *Grid) NeighborFlat(flat int32, axis, delta int) (int32, bool) {
	coord, err := g.FlatToCoord(flat)
	if err != nil {
		return 0, false
	}
	nc, ok := g.NeighborCoord(coord, axis, delta)
	if !ok {
		return 0, false
	}
	nf, err := g.CoordToFlat(nc)
	if err != nil {
		return 0, false
	}
	return nf, true
}

// Neighbors returns the flat indices of all 2*len(shape) axis-aligned
// neighbors of coord that exist (all of them, on a toroidal grid).
func (g *Grid) Neighbors(coord []int) []int32 {
	out := make([]int32, 0, 2*len(g.shape))
	for axis := range g.shape {
		for _, delta := range [2]int{-1, 1} {
			nc, ok := g.NeighborCoord(coord, axis, delta)
			if !ok {
				continue
			}
			flat, err := g.CoordToFlat(nc)
			if err != nil {
				continue
			}
			out = append(out, flat)
		}
	}
	return out
}
