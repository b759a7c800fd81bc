// Package thermo implements the pluggable per-instruction energy-cost and
// entropy-delta calculator: the thermodynamic policy.
package thermo

import "github.com/evochora/evochora-sub009/internal/molecule"

// Context carries everything a policy needs to price one instruction.
type Context struct {
	Opcode       uint8
	OperandTypes []molecule.Type
	Neighborhood []molecule.Molecule
	OrganismID   int32
}

// Policy prices one instruction. Positive EnergyCost means consumption;
// positive EntropyDelta means generation (negative values mean gain /
// dissipation, per the data model).
type Policy interface {
	Cost(ctx Context) (energyCost int64, entropyDelta int64)
}

// Func adapts a plain function to Policy.
type Func func(ctx Context) (int64, int64)

func (f Func) Cost(ctx Context) (int64, int64) { return f(ctx) }

// Default is the baseline policy: every instruction costs a flat amount of
// energy and generates a flat amount of entropy, regardless of opcode.
type Default struct {
	BaseEnergyCost   int64
	BaseEntropyDelta int64
}

func (d Default) Cost(ctx Context) (int64, int64) {
	return d.BaseEnergyCost, d.BaseEntropyDelta
}

// Manager composes a default policy with per-opcode and per-family
// overrides. An override for an exact opcode wins; otherwise a family
// override (keyed by a coarser grouping function) wins; otherwise the
// default applies.
type Manager struct {
	def        Policy
	perOpcode  map[uint8]Policy
	families   []familyOverride
}

type familyOverride struct {
	match func(ctx Context) bool
	policy Policy
}

// NewManager constructs a Manager around a default policy.
func NewManager(def Policy) *Manager {
	return &Manager{def: def, perOpcode: make(map[uint8]Policy)}
}

// Override registers a policy for one exact opcode.
func (m *Manager) Override(opcode uint8, p Policy) {
	m.perOpcode[opcode] = p
}

// OverrideFamily registers a policy for every context matching predicate.
// Family overrides are checked in registration order; the first match
// wins. Per-opcode overrides take precedence over family overrides.
func (m *Manager) OverrideFamily(match func(Context) bool, p Policy) {
	m.families = append(m.families, familyOverride{match: match, policy: p})
}

// Cost prices ctx, preferring a per-opcode override, then the first
// matching family override, then the default policy.
func (m *Manager) Cost(ctx Context) (int64, int64) {
	if p, ok := m.perOpcode[ctx.Opcode]; ok {
		return p.Cost(ctx)
	}
	for _, fo := range m.families {
		if fo.match(ctx) {
			return fo.policy.Cost(ctx)
		}
	}
	return m.def.Cost(ctx)
}
