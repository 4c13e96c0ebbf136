package metadata

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// FieldType defines the data type of a metadata field.
type FieldType uint8

const (
	FieldTypeAny FieldType = iota
	FieldTypeInt
	FieldTypeFloat
	FieldTypeString
	FieldTypeBool
	FieldTypeArray
	FieldTypeStringArray
)

// String returns the string representation of the FieldType.
func (t FieldType) String() string {
	switch t {
	case FieldTypeAny:
		return "Any"
	case FieldTypeInt:
		return "Int"
	case FieldTypeFloat:
		return "Float"
	case FieldTypeString:
		return "String"
	case FieldTypeBool:
		return "Bool"
	case FieldTypeArray:
		return "Array"
	case FieldTypeStringArray:
		return "StringArray"
	default:
		return "Unknown"
	}
}

// FieldError describes a single field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Schema defines the expected structure of metadata.
//
// Fields not named in the schema are not checked. Null values are accepted
// for every field type; presence rules belong to the caller.
type Schema map[string]FieldType

// Validate checks if the given metadata document conforms to the schema.
func (s Schema) Validate(doc Document) error {
	if s == nil {
		return nil
	}
	for _, k := range sortedKeys(doc) {
		expectedType, ok := s[k]
		if !ok {
			continue
		}
		v := doc[k]
		if !checkKind(v, expectedType) {
			return fmt.Errorf("field %q has invalid type %s, expected %s", k, v.Kind, expectedType)
		}
	}
	return nil
}

// ValidateMap checks if the given untyped map conforms to the schema and
// returns the first violation in field order.
func (s Schema) ValidateMap(md map[string]any) error {
	if errs := s.Check(md); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Check returns every field of md that violates the schema, sorted by field
// name. It returns nil when md conforms.
func (s Schema) Check(md map[string]any) []FieldError {
	if s == nil {
		return nil
	}
	var errs []FieldError
	for _, k := range sortedKeys(md) {
		expectedType, ok := s[k]
		if !ok {
			continue
		}
		if reason := checkType(md[k], expectedType); reason != "" {
			errs = append(errs, FieldError{Field: k, Reason: reason})
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func checkKind(v Value, expected FieldType) bool {
	if v.Kind == KindNull {
		return true
	}
	switch expected {
	case FieldTypeAny:
		return true
	case FieldTypeInt:
		return v.Kind == KindInt
	case FieldTypeFloat:
		return v.Kind == KindFloat || v.Kind == KindInt // Allow upgrading Int to Float
	case FieldTypeString:
		return v.Kind == KindString
	case FieldTypeBool:
		return v.Kind == KindBool
	case FieldTypeArray:
		return v.Kind == KindArray
	case FieldTypeStringArray:
		if v.Kind != KindArray {
			return false
		}
		for _, e := range v.A {
			if e.Kind != KindString {
				return false
			}
		}
		return true
	}
	return false
}

// checkType returns an empty string when v satisfies expected, otherwise a
// short human readable reason.
func checkType(v any, expected FieldType) string {
	if v == nil {
		return ""
	}

	switch expected {
	case FieldTypeAny:
		return ""
	case FieldTypeInt:
		switch val := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return ""
		case float64:
			// JSON unmarshals numbers as float64.
			if val == math.Trunc(val) && !math.IsInf(val, 0) {
				return ""
			}
			return "must be an integer"
		}
		return fmt.Sprintf("must be an integer, got %s", typeName(v))
	case FieldTypeFloat:
		switch val := v.(type) {
		case float32:
			return finite(float64(val))
		case float64:
			return finite(val)
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return "" // Allow ints as floats
		}
		return fmt.Sprintf("must be a number, got %s", typeName(v))
	case FieldTypeString:
		if _, ok := v.(string); ok {
			return ""
		}
		return fmt.Sprintf("must be a string, got %s", typeName(v))
	case FieldTypeBool:
		if _, ok := v.(bool); ok {
			return ""
		}
		return fmt.Sprintf("must be a boolean, got %s", typeName(v))
	case FieldTypeArray:
		switch v.(type) {
		case []any, []string, []int, []float64, []bool, []Value:
			return ""
		}
		return fmt.Sprintf("must be a list, got %s", typeName(v))
	case FieldTypeStringArray:
		switch val := v.(type) {
		case []string:
			return ""
		case []any:
			for i, e := range val {
				if _, ok := e.(string); !ok {
					return fmt.Sprintf("element %d must be a string, got %s", i, typeName(e))
				}
			}
			return ""
		}
		return fmt.Sprintf("must be a list of strings, got %s", typeName(v))
	}
	return "unknown field type " + expected.String()
}

func finite(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "must be a finite number"
	}
	return ""
}

// typeName renders the dynamic type of v using JSON vocabulary.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case map[string]any:
		return "object"
	}
	s := fmt.Sprintf("%T", v)
	if strings.HasPrefix(s, "[]") {
		return "list"
	}
	return s
}
