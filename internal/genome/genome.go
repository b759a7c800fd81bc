// Package genome computes the canonical content hash of an organism's body
// and tracks the monotonic set of distinct genomes ever observed, per
// SPEC_FULL.md §9.1 (xxhash over the owned-cell sequence; see DESIGN.md).
package genome

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/evochora/evochora-sub009/internal/grid"
)

// Hash returns the 64-bit content hash of organismID's currently-owned
// cells, relative to initialPositionFlat. The sequence folded into the
// hash is, for each owned flat index in ascending order, the pair
// (flatIndex - initialPositionFlat, molecule packed int32), each written as
// 8 little-endian bytes (the packed int32 is sign-extended to int64 first
// so the byte width is fixed regardless of platform). Hash 0 is reserved
// and is remapped to 1 if it ever occurs.
func Hash(g *grid.Grid, organismID int32, initialPositionFlat int32) uint64 {
	owned := g.CellsOwnedBy(organismID)

	h := xxhash.New()
	var buf [8]byte
	for _, flat := range owned {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(flat)-int64(initialPositionFlat)))
		_, _ = h.Write(buf[:])

		m, _, err := g.Get(flat)
		if err != nil {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(m.Packed())))
		_, _ = h.Write(buf[:])
	}

	sum := h.Sum64()
	if sum == 0 {
		return 1
	}
	return sum
}

// Census is the monotonic set of every nonzero genome hash observed so far
// in a run.
type Census struct {
	seen map[uint64]struct{}
}

// NewCensus returns an empty census.
func NewCensus() *Census {
	return &Census{seen: make(map[uint64]struct{})}
}

// Register adds hash to the census. Registering 0 is a no-op: 0 is
// reserved and never counted.
func (c *Census) Register(hash uint64) {
	if hash == 0 {
		return
	}
	c.seen[hash] = struct{}{}
}

// Count returns the number of distinct nonzero hashes observed so far.
func (c *Census) Count() int { return len(c.seen) }

// All returns every hash in the census, in no particular order.
func (c *Census) All() []uint64 {
	out := make([]uint64, 0, len(c.seen))
	for h := range c.seen {
		out = append(out, h)
	}
	return out
}

// RestoreFrom replaces the census contents with hashes, as when rebuilding
// state from a checkpoint's saved genome hash list (or, in the backwards
// compatibility path, from the genome hashes of currently-alive organisms).
func RestoreFrom(hashes []uint64) *Census {
	c := NewCensus()
	for _, h := range hashes {
		c.Register(h)
	}
	return c
}
