package payload

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/SRafi007/intellihire-ai/metadata"
)

// schema describes the wire types of every known payload field.
var schema = metadata.Schema{
	FieldCVID:            metadata.FieldTypeString,
	FieldName:            metadata.FieldTypeString,
	FieldEmail:           metadata.FieldTypeString,
	FieldPhone:           metadata.FieldTypeString,
	FieldYearsExperience: metadata.FieldTypeFloat,
	FieldSkills:          metadata.FieldTypeStringArray,
	FieldEducation:       metadata.FieldTypeString,
	FieldLocation:        metadata.FieldTypeString,
	FieldCurrentRole:     metadata.FieldTypeString,
	FieldLastUpdated:     metadata.FieldTypeString,
	FieldRawText:         metadata.FieldTypeString,
}

// TimestampLayout is the format used when last_updated is defaulted.
const TimestampLayout = time.RFC3339

// timestampLayouts are the ISO-8601 renderings accepted for last_updated.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FieldError describes a single rejected payload field.
type FieldError = metadata.FieldError

// ValidationError reports every payload field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("payload validation failed: ")
	for i, f := range e.Fields {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Has reports whether field is among the rejected fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// FieldNames returns the rejected field names in order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// NewValidationError builds a ValidationError with fields sorted by name.
func NewValidationError(fields ...FieldError) *ValidationError {
	fields = slices.Clone(fields)
	slices.SortStableFunc(fields, func(a, b FieldError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return &ValidationError{Fields: fields}
}

// Validate converts a raw record into a CV, defaulting last_updated to the
// current UTC time.
func Validate(raw map[string]any) (CV, error) {
	return ValidateAt(raw, time.Now())
}

// ValidateAt is Validate with an explicit clock.
//
// On failure it returns a *ValidationError naming every offending field and
// a zero CV. Unknown keys are ignored.
func ValidateAt(raw map[string]any, now time.Time) (CV, error) {
	errs := schema.Check(raw)
	bad := make(map[string]bool, len(errs))
	for _, e := range errs {
		bad[e.Field] = true
	}

	for _, field := range []string{FieldCVID, FieldName, FieldEmail} {
		if bad[field] {
			continue
		}
		s, _ := raw[field].(string)
		if reason := requiredString(raw, field, s); reason != "" {
			errs = append(errs, FieldError{Field: field, Reason: reason})
		}
	}

	var years float64
	if !bad[FieldYearsExperience] {
		if v, ok := raw[FieldYearsExperience]; !ok || v == nil {
			errs = append(errs, FieldError{Field: FieldYearsExperience, Reason: "is required"})
		} else if years, ok = toFloat(v); !ok {
			errs = append(errs, FieldError{Field: FieldYearsExperience, Reason: "must be a number"})
		} else if years < 0 {
			errs = append(errs, FieldError{Field: FieldYearsExperience, Reason: "must be greater than or equal to 0"})
		}
	}

	var skills []string
	if !bad[FieldSkills] {
		if v, ok := raw[FieldSkills]; !ok || v == nil {
			errs = append(errs, FieldError{Field: FieldSkills, Reason: "is required"})
		} else {
			skills = toStrings(v)
		}
	}

	lastUpdated, _ := raw[FieldLastUpdated].(string)
	if !bad[FieldLastUpdated] && lastUpdated != "" && !isTimestamp(lastUpdated) {
		errs = append(errs, FieldError{Field: FieldLastUpdated, Reason: "must be an ISO-8601 timestamp"})
	}

	if len(errs) > 0 {
		return CV{}, NewValidationError(errs...)
	}

	if lastUpdated == "" {
		lastUpdated = now.UTC().Format(TimestampLayout)
	}

	str := func(field string) string {
		s, _ := raw[field].(string)
		return s
	}

	return CV{
		CVID:            str(FieldCVID),
		Name:            str(FieldName),
		Email:           str(FieldEmail),
		Phone:           str(FieldPhone),
		YearsExperience: years,
		Skills:          skills,
		Education:       str(FieldEducation),
		Location:        str(FieldLocation),
		CurrentRole:     str(FieldCurrentRole),
		LastUpdated:     lastUpdated,
		RawText:         str(FieldRawText),
	}, nil
}

// Normalize checks an already typed payload against the same constraints as
// ValidateAt and returns a copy with last_updated defaulted and a non-nil
// skills slice.
func (cv CV) Normalize(now time.Time) (CV, error) {
	var errs []FieldError
	required := map[string]string{
		FieldCVID:  cv.CVID,
		FieldName:  cv.Name,
		FieldEmail: cv.Email,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, FieldError{Field: field, Reason: "must not be empty"})
		}
	}
	if math.IsNaN(cv.YearsExperience) || math.IsInf(cv.YearsExperience, 0) {
		errs = append(errs, FieldError{Field: FieldYearsExperience, Reason: "must be a finite number"})
	} else if cv.YearsExperience < 0 {
		errs = append(errs, FieldError{Field: FieldYearsExperience, Reason: "must be greater than or equal to 0"})
	}
	if cv.LastUpdated != "" && !isTimestamp(cv.LastUpdated) {
		errs = append(errs, FieldError{Field: FieldLastUpdated, Reason: "must be an ISO-8601 timestamp"})
	}
	if len(errs) > 0 {
		return CV{}, NewValidationError(errs...)
	}

	out := cv.Clone()
	if out.Skills == nil {
		out.Skills = []string{}
	}
	if out.LastUpdated == "" {
		out.LastUpdated = now.UTC().Format(TimestampLayout)
	}
	return out, nil
}

func requiredString(raw map[string]any, field, s string) string {
	v, ok := raw[field]
	if !ok || v == nil {
		return "is required"
	}
	if strings.TrimSpace(s) == "" {
		return "must not be empty"
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	mv, err := metadata.FromAny(v)
	if err != nil {
		return 0, false
	}
	return mv.AsFloat64()
}

// toStrings copies a schema-checked skills value.
func toStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []any:
		out := make([]string, len(x))
		for i := range x {
			out[i], _ = x[i].(string)
		}
		return out
	}
	return []string{}
}

func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
