// Package payload defines the candidate CV payload stored with every record
// and the validation that admits raw records into a collection.
//
// Validation is all-or-nothing: Validate either returns a complete CV or a
// *ValidationError listing every offending field, sorted by name.
//
//	cv, err := payload.Validate(map[string]any{
//	    "cv_id":            "cv-1",
//	    "name":             "Ada Lovelace",
//	    "email":            "ada@example.com",
//	    "years_experience": 7,
//	    "skills":           []string{"python", "sql"},
//	})
//
// last_updated is the only field that is normalized: when absent or empty it
// is set to the current UTC time in RFC 3339 form.
package payload
