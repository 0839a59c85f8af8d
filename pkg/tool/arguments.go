package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Arguments is the untyped argument map of a tools/call request. Values are
// those produced by encoding/json with UseNumber: numbers arrive as json.Number.
type Arguments map[string]any

// DecodeArguments parses a raw arguments object. Absent or null input yields an
// empty map; anything other than an object is an error.
func DecodeArguments(raw json.RawMessage) (Arguments, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Arguments{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be an object")
	}
	return Arguments(m), nil
}

// String returns the named string argument.
func (a Arguments) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

// Bool returns the named boolean argument.
func (a Arguments) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}

// Float returns the named numeric argument as a float64. It accepts every
// numeric type schema.KindOf classifies as a number.
func (a Arguments) Float(name string) (float64, bool) {
	switch v := a[name].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if i, ok := signed(a[name]); ok {
		return float64(i), true
	}
	if u, ok := unsigned(a[name]); ok {
		return float64(u), true
	}
	return 0, false
}

// Int returns the named numeric argument as an int64 when it is integral and
// fits in an int64.
func (a Arguments) Int(name string) (int64, bool) {
	v := a[name]
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	if i, ok := signed(v); ok {
		return i, true
	}
	if u, ok := unsigned(v); ok {
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	f, ok := a.Float(name)
	// float64(1<<63) is exact; anything at or above it overflows int64.
	if !ok || f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func signed(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func unsigned(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint:
		return uint64(t), true
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	}
	return 0, false
}

// Object returns the named object argument.
func (a Arguments) Object(name string) (map[string]any, bool) {
	m, ok := a[name].(map[string]any)
	return m, ok
}
