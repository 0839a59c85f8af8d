package schema

import (
	"encoding/json"
	"math"
)

// Kind is the runtime kind of an argument value, or the declared kind of a property.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindNull    Kind = "null"
	KindUnknown Kind = "unknown"
)

// Declarable reports whether k may be used as a property kind.
func (k Kind) Declarable() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindObject, KindArray:
		return true
	}
	return false
}

// Describe returns the human description used in InvalidParameter errors.
func (k Kind) Describe() string {
	switch k {
	case KindString:
		return "a string"
	case KindInteger:
		return "an integer"
	case KindNumber:
		return "a number"
	case KindBoolean:
		return "a boolean"
	case KindObject:
		return "an object"
	case KindArray:
		return "an array"
	case KindNull:
		return "null"
	default:
		return "a value of unknown kind"
	}
}

// Accepts reports whether a value of kind actual satisfies a property declared as k.
// Integers are numbers; nothing else is coerced.
func (k Kind) Accepts(actual Kind) bool {
	if k == actual {
		return true
	}
	return k == KindNumber && actual == KindInteger
}

// KindOf classifies a decoded JSON value. It understands the values produced by
// encoding/json, with or without UseNumber, plus native Go numerics handed in by
// in-process callers.
func KindOf(v any) Kind {
	switch t := v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBoolean
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return KindInteger
		}
		f, err := t.Float64()
		if err != nil {
			return KindUnknown
		}
		return floatKind(f)
	case float64:
		return floatKind(t)
	case float32:
		return floatKind(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	default:
		return KindUnknown
	}
}

func floatKind(f float64) Kind {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return KindNumber
	}
	if f == math.Trunc(f) {
		return KindInteger
	}
	return KindNumber
}
