package payload

import (
	"slices"

	"github.com/SRafi007/intellihire-ai/metadata"
)

// Payload field names as they appear in raw records, filters and snapshots.
const (
	FieldCVID            = "cv_id"
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldYearsExperience = "years_experience"
	FieldSkills          = "skills"
	FieldEducation       = "education"
	FieldLocation        = "location"
	FieldCurrentRole     = "current_role"
	FieldLastUpdated     = "last_updated"
	FieldRawText         = "raw_text"
)

// CV is the validated candidate payload attached to every record.
//
// Optional string fields use the empty string for absent.
type CV struct {
	CVID            string   `json:"cv_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	YearsExperience float64  `json:"years_experience"`
	Skills          []string `json:"skills"`
	Education       string   `json:"education,omitempty"`
	Location        string   `json:"location,omitempty"`
	CurrentRole     string   `json:"current_role,omitempty"`
	LastUpdated     string   `json:"last_updated"`
	RawText         string   `json:"raw_text,omitempty"`
}

// Clone returns a deep copy of the payload.
func (cv CV) Clone() CV {
	cv.Skills = slices.Clone(cv.Skills)
	return cv
}

// Document projects the filterable fields into typed metadata values.
// raw_text is never part of the document.
func (cv CV) Document() metadata.Document {
	doc := metadata.Document{
		FieldCVID:            metadata.String(cv.CVID),
		FieldName:            metadata.String(cv.Name),
		FieldEmail:           metadata.String(cv.Email),
		FieldYearsExperience: metadata.Float(cv.YearsExperience),
		FieldSkills:          metadata.Strings(cv.Skills),
		FieldLastUpdated:     metadata.String(cv.LastUpdated),
	}
	optional := map[string]string{
		FieldPhone:       cv.Phone,
		FieldEducation:   cv.Education,
		FieldLocation:    cv.Location,
		FieldCurrentRole: cv.CurrentRole,
	}
	for k, v := range optional {
		if v != "" {
			doc[k] = metadata.String(v)
		}
	}
	return doc
}

// Map renders the payload back into an untyped record. Absent optional
// fields are omitted.
func (cv CV) Map() map[string]any {
	m := map[string]any{
		FieldCVID:            cv.CVID,
		FieldName:            cv.Name,
		FieldEmail:           cv.Email,
		FieldYearsExperience: cv.YearsExperience,
		FieldSkills:          slices.Clone(cv.Skills),
		FieldLastUpdated:     cv.LastUpdated,
	}
	optional := map[string]string{
		FieldPhone:       cv.Phone,
		FieldEducation:   cv.Education,
		FieldLocation:    cv.Location,
		FieldCurrentRole: cv.CurrentRole,
		FieldRawText:     cv.RawText,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	return m
}
