package thermo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicyIsFlat(t *testing.T) {
	d := Default{BaseEnergyCost: 3, BaseEntropyDelta: 1}
	energy, entropy := d.Cost(Context{Opcode: 7})
	assert.Equal(t, int64(3), energy)
	assert.Equal(t, int64(1), entropy)
}

func TestFuncAdapter(t *testing.T) {
	var p Policy = Func(func(ctx Context) (int64, int64) { return int64(ctx.Opcode), 0 })
	energy, entropy := p.Cost(Context{Opcode: 9})
	assert.Equal(t, int64(9), energy)
	assert.Equal(t, int64(0), entropy)
}

func TestManagerFallsBackToDefault(t *testing.T) {
	m := NewManager(Default{BaseEnergyCost: 1, BaseEntropyDelta: 1})
	energy, entropy := m.Cost(Context{Opcode: 5})
	assert.Equal(t, int64(1), energy)
	assert.Equal(t, int64(1), entropy)
}

func TestManagerPerOpcodeOverrideWins(t *testing.T) {
	m := NewManager(Default{BaseEnergyCost: 1})
	m.Override(5, Func(func(Context) (int64, int64) { return 100, 0 }))

	energy, _ := m.Cost(Context{Opcode: 5})
	assert.Equal(t, int64(100), energy)

	energy, _ = m.Cost(Context{Opcode: 6})
	assert.Equal(t, int64(1), energy, "opcode 6 has no override, must fall back to default")
}

func TestManagerFamilyOverrideAppliesWhenNoExactMatch(t *testing.T) {
	m := NewManager(Default{BaseEnergyCost: 1})
	m.OverrideFamily(func(ctx Context) bool { return ctx.OrganismID < 0 }, Func(func(Context) (int64, int64) { return 50, 0 }))

	energy, _ := m.Cost(Context{Opcode: 5, OrganismID: -1})
	assert.Equal(t, int64(50), energy)

	energy, _ = m.Cost(Context{Opcode: 5, OrganismID: 1})
	assert.Equal(t, int64(1), energy)
}

func TestManagerPerOpcodeBeatsFamily(t *testing.T) {
	m := NewManager(Default{BaseEnergyCost: 1})
	m.OverrideFamily(func(Context) bool { return true }, Func(func(Context) (int64, int64) { return 50, 0 }))
	m.Override(5, Func(func(Context) (int64, int64) { return 100, 0 }))

	energy, _ := m.Cost(Context{Opcode: 5})
	assert.Equal(t, int64(100), energy)
}

func TestManagerFirstMatchingFamilyWins(t *testing.T) {
	m := NewManager(Default{BaseEnergyCost: 1})
	m.OverrideFamily(func(Context) bool { return true }, Func(func(Context) (int64, int64) { return 10, 0 }))
	m.OverrideFamily(func(Context) bool { return true }, Func(func(Context) (int64, int64) { return 20, 0 }))

	energy, _ := m.Cost(Context{Opcode: 5})
	assert.Equal(t, int64(10), energy)
}
