package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoundTrip(t *testing.T) {
	m := New(DATA, 42)
	assert.Equal(t, DATA, m.Type())
	assert.Equal(t, int32(42), m.Value())
	assert.False(t, m.Marker())
}

func TestNewMarkedSetsMarkerBit(t *testing.T) {
	m := NewMarked(STRUCTURE, -7)
	assert.Equal(t, STRUCTURE, m.Type())
	assert.Equal(t, int32(-7), m.Value())
	assert.True(t, m.Marker())
}

func TestNegativeValueSignExtends(t *testing.T) {
	m := New(ENERGY, -1)
	assert.Equal(t, int32(-1), m.Value())
}

func TestWithMarkerTogglesWithoutTouchingTypeOrValue(t *testing.T) {
	m := New(CODE, 99)
	marked := m.WithMarker(true)
	assert.True(t, marked.Marker())
	assert.Equal(t, CODE, marked.Type())
	assert.Equal(t, int32(99), marked.Value())

	unmarked := marked.WithMarker(false)
	assert.False(t, unmarked.Marker())
	assert.Equal(t, int32(99), unmarked.Value())
}

func TestFromPackedAndPackedRoundTrip(t *testing.T) {
	original := NewMarked(LABEL, 123)
	raw := original.Packed()

	restored := FromPacked(raw)
	assert.Equal(t, original, restored)
	assert.Equal(t, LABEL, restored.Type())
	assert.Equal(t, int32(123), restored.Value())
	assert.True(t, restored.Marker())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Empty.IsEmpty())
	assert.True(t, New(CODE, 0).IsEmpty())
	assert.False(t, New(DATA, 0).IsEmpty())
	assert.False(t, New(CODE, 1).IsEmpty())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "CODE", CODE.String())
	assert.Equal(t, "DATA", DATA.String())
	assert.Equal(t, "ENERGY", ENERGY.String())
	assert.Equal(t, "STRUCTURE", STRUCTURE.String())
	assert.Equal(t, "LABEL", LABEL.String())
	assert.Equal(t, "LABELREF", LABELREF.String())
	assert.Equal(t, "REGISTER", REGISTER.String())
	assert.Equal(t, "UNKNOWN", Type(99).String())
}
