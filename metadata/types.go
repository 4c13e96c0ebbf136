package metadata

import (
	"math"
	"strconv"
	"strings"
	"unique"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents an array value.
	KindArray
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is a small typed value used for metadata documents and filters.
//
// The representation is designed to make filtering fast and predictable:
// no reflection and no fmt-based stringification. Strings are interned, which
// keeps repetitive values such as skill tags cheap.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	s    unique.Handle[string]
	B    bool
	A    []Value
}

// StringValue returns the string value if Kind is KindString, otherwise empty string.
func (v Value) StringValue() string {
	if v.Kind == KindString {
		return v.s.Value()
	}
	return ""
}

// Key returns a stable string representation for use in maps.
//
// Numbers are keyed by their float64 value so that Int(5) and Float(5)
// share a key, matching the equality semantics of filters.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt, KindFloat:
		return "n:" + strconv.FormatUint(math.Float64bits(normalizeZero(asFloat64(v))), 16)
	case KindString:
		return "s:" + v.s.Value()
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindArray:
		if len(v.A) == 0 {
			return "a:"
		}
		// Each element key is length-prefixed so that no string element can
		// forge an element boundary.
		var b strings.Builder
		b.WriteString("a:")
		for i := range v.A {
			k := v.A[i].Key()
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		return b.String()
	default:
		return "invalid"
	}
}

// normalizeZero folds -0 into +0 so both produce the same key.
func normalizeZero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value if Kind is KindFloat or KindInt.
func (v Value) AsFloat64() (float64, bool) {
	if !isNumber(v) {
		return 0, false
	}
	return asFloat64(v), true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.s.Value(), true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, s: unique.Make(v)} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Array returns an array Value.
func Array(v []Value) Value { return Value{Kind: KindArray, A: v} }

// Strings returns an array Value of strings.
func Strings(v []string) Value {
	arr := make([]Value, len(v))
	for i := range v {
		arr[i] = String(v[i])
	}
	return Array(arr)
}

// Document is a typed metadata document.
type Document map[string]Value

// Clone creates a deep copy of the metadata document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = v.clone()
	}
	return clone
}

// clone creates a deep copy of a Value, including nested arrays.
func (v Value) clone() Value {
	if v.Kind != KindArray || len(v.A) == 0 {
		return v
	}

	arrayCopy := make([]Value, len(v.A))
	for i := range v.A {
		arrayCopy[i] = v.A[i].clone()
	}
	v.A = arrayCopy
	return v
}

// Operator represents a comparison operator for filtering.
type Operator string

const (
	// OpEqual represents the equality operator.
	OpEqual Operator = "eq"
	// OpNotEqual represents the inequality operator.
	OpNotEqual Operator = "ne"
	// OpGreaterThan represents the greater than operator.
	OpGreaterThan Operator = "gt"
	// OpGreaterEqual represents the greater than or equal operator.
	OpGreaterEqual Operator = "gte"
	// OpLessThan represents the less than operator.
	OpLessThan Operator = "lt"
	// OpLessEqual represents the less than or equal operator.
	OpLessEqual Operator = "lte"
	// OpIn represents the in list operator.
	OpIn Operator = "in"
	// OpContains represents the contains substring operator.
	OpContains Operator = "contains"
)

// Filter represents a single metadata filter condition.
type Filter struct {
	Key      string
	Operator Operator
	Value    Value
}

// FilterSet represents a set of filters that must all match (AND logic).
//
// A nil or empty FilterSet matches every document.
type FilterSet struct {
	Filters []Filter
}

// NewFilterSet creates a new filter set.
func NewFilterSet(filters ...Filter) *FilterSet {
	return &FilterSet{Filters: filters}
}

// And returns a new FilterSet with the given filters appended.
func (fs *FilterSet) And(filters ...Filter) *FilterSet {
	out := &FilterSet{}
	if fs != nil {
		out.Filters = append(out.Filters, fs.Filters...)
	}
	out.Filters = append(out.Filters, filters...)
	return out
}

// IsEmpty reports whether the set has no conditions.
func (fs *FilterSet) IsEmpty() bool {
	return fs == nil || len(fs.Filters) == 0
}
