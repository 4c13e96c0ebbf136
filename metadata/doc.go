// Package metadata provides typed payload documents and filtering for
// collection records.
//
// # Values
//
// Metadata values are small tagged unions:
//
//   - String: metadata.String("backend")
//   - Int: metadata.Int(2024)
//   - Float: metadata.Float(4.5)
//   - Bool: metadata.Bool(true)
//   - Array: metadata.Strings([]string{"go", "sql"})
//
// Untyped input such as decoded JSON is converted with FromAny and
// DocumentFromAny. A Schema checks untyped input field by field before
// conversion.
//
// # Filters
//
// A FilterSet is a conjunction of Filter conditions:
//
//	fs := metadata.NewFilterSet(
//	    metadata.Eq("skills", "python"),
//	    metadata.Gte("years_experience", 3),
//	)
//
// Equality against an array field matches when any element equals the value.
// Range operators compare numerically and ignore non-numeric values. A filter
// naming a field the document does not carry never matches.
//
// # Index
//
// Index is a Roaring Bitmap inverted index that answers eq, ne, in and the
// numeric range operators without touching documents. Compile reports
// whether the resulting bitmap is exact or still needs Matches on each
// candidate.
package metadata
