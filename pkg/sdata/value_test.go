package sdata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMapTypedAccessors(t *testing.T) {
	id := uuid.New()
	m := Map{
		"name":    "chat",
		"enabled": true,
		"count":   7,
		"ratio":   0.5,
		"agent":   id,
		"blob":    Binary{0x01, 0x02},
		"seed":    URI("https://sim.example/cap"),
		"pos":     Vector3{X: 1, Y: 2, Z: 3},
		"inner":   Map{"k": "v"},
		"list":    Array{"a", "b"},
	}

	s, ok := m.String("name")
	assert.True(t, ok)
	assert.Equal(t, "chat", s)

	b, ok := m.Bool("enabled")
	assert.True(t, ok)
	assert.True(t, b)

	n, ok := m.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	f, ok := m.Real("ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	u, ok := m.UUID("agent")
	assert.True(t, ok)
	assert.Equal(t, id, u)

	blob, ok := m.Bytes("blob")
	assert.True(t, ok)
	assert.Equal(t, Binary{0x01, 0x02}, blob)

	seed, ok := m.URI("seed")
	assert.True(t, ok)
	assert.Equal(t, URI("https://sim.example/cap"), seed)

	v, ok := m.Vector("pos")
	assert.True(t, ok)
	assert.Equal(t, Vector3{X: 1, Y: 2, Z: 3}, v)

	inner, ok := m.Map("inner")
	assert.True(t, ok)
	assert.Equal(t, "v", inner["k"])

	list, ok := m.Array("list")
	assert.True(t, ok)
	assert.Len(t, list, 2)
}

func TestMapLenientRepresentations(t *testing.T) {
	id := uuid.New()
	// A JSON-based parser produces strings for UUIDs and float64 for ints.
	m := Map{
		"agent": id.String(),
		"port":  float64(13000),
		"inner": map[string]any{"k": 1},
		"list":  []any{"x"},
	}

	u, ok := m.UUID("agent")
	assert.True(t, ok)
	assert.Equal(t, id, u)

	n, ok := m.Int("port")
	assert.True(t, ok)
	assert.Equal(t, 13000, n)

	_, ok = m.Int("agent")
	assert.False(t, ok)

	inner, ok := m.Map("inner")
	assert.True(t, ok)
	assert.True(t, inner.Has("k"))

	list, ok := m.Array("list")
	assert.True(t, ok)
	assert.Len(t, list, 1)
}

func TestMapMissingAndWrongType(t *testing.T) {
	m := Map{"count": "seven"}

	_, ok := m.Int("count")
	assert.False(t, ok)
	_, ok = m.String("missing")
	assert.False(t, ok)
	assert.False(t, m.Has("missing"))
	assert.True(t, m.Has("count"))
}

func TestMapKeysSorted(t *testing.T) {
	m := Map{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestCloneIsDeep(t *testing.T) {
	m := Map{
		"inner": Map{"k": "v"},
		"list":  Array{Binary{0xFF}},
		"blob":  Binary{0x01},
	}
	c := m.Clone()

	inner, _ := c.Map("inner")
	inner["k"] = "changed"
	blob, _ := c.Bytes("blob")
	blob[0] = 0x02

	orig, _ := m.Map("inner")
	assert.Equal(t, "v", orig["k"])
	origBlob, _ := m.Bytes("blob")
	assert.Equal(t, Binary{0x01}, origBlob)
}
