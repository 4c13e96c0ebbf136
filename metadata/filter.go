package metadata

import (
	"fmt"
	"math"
	"strings"
)

// Eq matches documents whose field equals value. For array fields any
// element may match.
func Eq(key string, value any) Filter { return newFilter(key, OpEqual, value) }

// Ne matches documents that have the field and where no element equals value.
func Ne(key string, value any) Filter { return newFilter(key, OpNotEqual, value) }

// Gt matches numeric fields strictly greater than value.
func Gt(key string, value any) Filter { return newFilter(key, OpGreaterThan, value) }

// Gte matches numeric fields greater than or equal to value.
func Gte(key string, value any) Filter { return newFilter(key, OpGreaterEqual, value) }

// Lt matches numeric fields strictly less than value.
func Lt(key string, value any) Filter { return newFilter(key, OpLessThan, value) }

// Lte matches numeric fields less than or equal to value.
func Lte(key string, value any) Filter { return newFilter(key, OpLessEqual, value) }

// In matches documents whose field equals any of values.
func In(key string, values ...any) Filter { return newFilter(key, OpIn, values) }

// Contains matches string fields containing the given substring.
func Contains(key string, substr string) Filter {
	return Filter{Key: key, Operator: OpContains, Value: String(substr)}
}

// Range returns the two filters for min <= field <= max.
func Range(key string, minValue, maxValue float64) []Filter {
	return []Filter{Gte(key, minValue), Lte(key, maxValue)}
}

// newFilter converts value with FromAny. Unsupported values produce a
// KindInvalid filter value, which never matches and is reported by Validate.
func newFilter(key string, op Operator, value any) Filter {
	v, err := FromAny(value)
	if err != nil {
		v = Value{Kind: KindInvalid}
	}
	return Filter{Key: key, Operator: op, Value: v}
}

// Validate checks that the filter is well formed.
func (f *Filter) Validate() error {
	if f.Key == "" {
		return fmt.Errorf("filter: empty field name")
	}
	if f.Value.Kind == KindInvalid {
		return fmt.Errorf("filter %q: invalid value", f.Key)
	}
	if n, ok := f.Value.AsFloat64(); ok && math.IsNaN(n) {
		return fmt.Errorf("filter %q: NaN is not comparable", f.Key)
	}
	switch f.Operator {
	case OpEqual, OpNotEqual:
		return nil
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		if !isNumber(f.Value) {
			return fmt.Errorf("filter %q: operator %s requires a number, got %s", f.Key, f.Operator, f.Value.Kind)
		}
		return nil
	case OpIn:
		if f.Value.Kind != KindArray {
			return fmt.Errorf("filter %q: operator in requires a list, got %s", f.Key, f.Value.Kind)
		}
		return nil
	case OpContains:
		if f.Value.Kind != KindString {
			return fmt.Errorf("filter %q: operator contains requires a string, got %s", f.Key, f.Value.Kind)
		}
		return nil
	default:
		return fmt.Errorf("filter %q: unsupported operator %q", f.Key, f.Operator)
	}
}

// Validate checks every filter in the set.
func (fs *FilterSet) Validate() error {
	if fs == nil {
		return nil
	}
	for i := range fs.Filters {
		if err := fs.Filters[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Matches checks if the provided metadata matches this filter.
func (f *Filter) Matches(doc Document) bool {
	value, exists := doc[f.Key]
	if !exists {
		return false
	}

	if f.Operator == OpNotEqual {
		return !anyElement(value, func(e Value) bool { return compareEqual(e, f.Value) })
	}

	return anyElement(value, func(e Value) bool {
		switch f.Operator {
		case OpEqual:
			return compareEqual(e, f.Value)
		case OpGreaterThan:
			return compareGreater(e, f.Value)
		case OpGreaterEqual:
			return compareGreater(e, f.Value) || compareEqual(e, f.Value)
		case OpLessThan:
			return compareLess(e, f.Value)
		case OpLessEqual:
			return compareLess(e, f.Value) || compareEqual(e, f.Value)
		case OpIn:
			return compareIn(e, f.Value)
		case OpContains:
			return compareContains(e, f.Value)
		default:
			return false
		}
	})
}

// anyElement applies pred to v itself and, for arrays, to each element.
func anyElement(v Value, pred func(Value) bool) bool {
	if pred(v) {
		return true
	}
	if v.Kind != KindArray {
		return false
	}
	for _, e := range v.A {
		if pred(e) {
			return true
		}
	}
	return false
}

// Matches checks if the provided metadata matches all filters in the set.
func (fs *FilterSet) Matches(doc Document) bool {
	if fs == nil {
		return true
	}
	for i := range fs.Filters {
		if !fs.Filters[i].Matches(doc) {
			return false
		}
	}
	return true
}

func compareEqual(a, b Value) bool {
	if a.Kind == KindNull && b.Kind == KindNull {
		return true
	}
	if a.Kind == KindNull || b.Kind == KindNull {
		return false
	}

	if isNumber(a) && isNumber(b) {
		// Prefer exact int compare when possible.
		if a.Kind == KindInt && b.Kind == KindInt {
			return a.I64 == b.I64
		}
		return asFloat64(a) == asFloat64(b)
	}

	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.B == b.B
	case KindArray:
		if len(a.A) != len(b.A) {
			return false
		}
		for i := range a.A {
			if !compareEqual(a.A[i], b.A[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareGreater(a, b Value) bool {
	if !isNumber(a) || !isNumber(b) {
		return false
	}
	return asFloat64(a) > asFloat64(b)
}

func compareLess(a, b Value) bool {
	if !isNumber(a) || !isNumber(b) {
		return false
	}
	return asFloat64(a) < asFloat64(b)
}

func compareIn(a, b Value) bool {
	if b.Kind != KindArray {
		return false
	}
	for _, item := range b.A {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

func compareContains(a, b Value) bool {
	if a.Kind != KindString || b.Kind != KindString {
		return false
	}
	return strings.Contains(a.s.Value(), b.s.Value())
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func asFloat64(v Value) float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.I64)
	case KindFloat:
		return v.F64
	default:
		return 0
	}
}
