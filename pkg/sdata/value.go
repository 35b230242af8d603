// Package sdata models the self-describing structured-data trees used as
// message payloads on the capability/event side channel. A tree is a map,
// array, or scalar; scalars cover null, boolean, integer, real, string,
// binary, UUID, vector, quaternion, date and URI values.
//
// Trees are treated as immutable once parsed from the wire; serialization
// always produces a fresh tree. The typed accessors are deliberately lenient
// about representations a wire parser may produce (e.g. a UUID arriving as
// its string form), since the format itself carries no schema.
package sdata

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Map is a string-keyed structured-data node.
type Map map[string]any

// Array is an ordered structured-data node.
type Array []any

// Binary is a structured-data binary blob.
type Binary []byte

// URI is a structured-data URI value.
type URI string

// Vector3 is a three-component vector value.
type Vector3 struct {
	X, Y, Z float64
}

// Quaternion is a four-component rotation value.
type Quaternion struct {
	X, Y, Z, W float64
}

// Has reports whether key is present, regardless of its value type.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns the sorted key set, for diagnostics.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string value at key.
func (m Map) String(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Bool returns the boolean value at key.
func (m Map) Bool(key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// Int returns the integer value at key. A real with no fractional part is
// accepted, since some parsers widen wire integers to floats.
func (m Map) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Real returns the floating-point value at key, widening integers.
func (m Map) Real(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// UUID returns the UUID at key, accepting either a native UUID value or its
// canonical string form.
func (m Map) UUID(key string) (uuid.UUID, bool) {
	switch v := m[key].(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// Bytes returns the binary blob at key.
func (m Map) Bytes(key string) (Binary, bool) {
	switch v := m[key].(type) {
	case Binary:
		return v, true
	case []byte:
		return Binary(v), true
	}
	return nil, false
}

// URI returns the URI at key, accepting a plain string representation.
func (m Map) URI(key string) (URI, bool) {
	switch v := m[key].(type) {
	case URI:
		return v, true
	case string:
		return URI(v), true
	}
	return "", false
}

// Time returns the date value at key.
func (m Map) Time(key string) (time.Time, bool) {
	t, ok := m[key].(time.Time)
	return t, ok
}

// Vector returns the vector value at key.
func (m Map) Vector(key string) (Vector3, bool) {
	v, ok := m[key].(Vector3)
	return v, ok
}

// Rotation returns the quaternion value at key.
func (m Map) Rotation(key string) (Quaternion, bool) {
	q, ok := m[key].(Quaternion)
	return q, ok
}

// Map returns the nested map at key.
func (m Map) Map(key string) (Map, bool) {
	switch v := m[key].(type) {
	case Map:
		return v, true
	case map[string]any:
		return Map(v), true
	}
	return nil, false
}

// Array returns the nested array at key.
func (m Map) Array(key string) (Array, bool) {
	switch v := m[key].(type) {
	case Array:
		return v, true
	case []any:
		return Array(v), true
	}
	return nil, false
}

// Clone returns a deep copy of the tree. Nested maps, arrays and binary
// blobs are copied; scalars are value types already.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a deep copy of the array.
func (a Array) Clone() Array {
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Map:
		return t.Clone()
	case map[string]any:
		return Map(t).Clone()
	case Array:
		return t.Clone()
	case []any:
		return Array(t).Clone()
	case Binary:
		return Binary(append([]byte(nil), t...))
	case []byte:
		return Binary(append([]byte(nil), t...))
	default:
		return v
	}
}
