// Package record defines the tagged field-value model shared by the B+Tree
// and columnar engines.
package record

import "fmt"

// Kind tags which variant a Value holds. The numeric values match the wire
// tags used by the value codec, so they must not be renumbered.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the field types supported by jparque records.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	Bool    bool
	Str     string
	List    []Value
}

func Null() Value { return Value{Kind: KindNull} }
func Int32Value(v int32) Value { return Value{Kind: KindInt32, Int32: v} }
func Int64Value(v int64) Value { return Value{Kind: KindInt64, Int64: v} }
func Float32Value(v float32) Value { return Value{Kind: KindFloat32, Float32: v} }
func Float64Value(v float64) Value { return Value{Kind: KindFloat64, Float64: v} }
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// ListValue wraps items as a repeated-field value. A nil or empty items
// slice is preserved as-is rather than normalized to nil, so an explicitly
// empty repeated field round-trips as empty rather than as absent.
func ListValue(items []Value) Value { return Value{Kind: KindList, List: items} }

// FromAny coerces an arbitrary Go value into the tagged Value model. Types
// outside the supported set are coerced to their string representation, per
// the value codec's documented leniency.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case int32:
		return Int32Value(t)
	case int:
		return Int64Value(int64(t))
	case int64:
		return Int64Value(t)
	case float32:
		return Float32Value(t)
	case float64:
		return Float64Value(t)
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case []byte:
		return StringValue(string(t))
	case []Value:
		return ListValue(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, elem := range t {
			items[i] = FromAny(elem)
		}
		return ListValue(items)
	case []string:
		items := make([]Value, len(t))
		for i, elem := range t {
			items[i] = StringValue(elem)
		}
		return ListValue(items)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// Interface returns the Go-native value carried by v, for callers that don't
// want to switch on Kind themselves.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt32:
		return v.Int32
	case KindInt64:
		return v.Int64
	case KindFloat32:
		return v.Float32
	case KindFloat64:
		return v.Float64
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt32:
		return v.Int32 == other.Int32
	case KindInt64:
		return v.Int64 == other.Int64
	case KindFloat32:
		return v.Float32 == other.Float32
	case KindFloat64:
		return v.Float64 == other.Float64
	case KindBool:
		return v.Bool == other.Bool
	case KindString:
		return v.Str == other.Str
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return true // both null
	}
}
