package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/SRafi007/intellihire-ai/payload"
)

// RowID is a dense, collection-local slot identifier for a record.
// It is transient: a deleted record's RowID may be reused and it is never
// persisted.
type RowID uint32

// Record is a stored vector with its validated payload.
type Record struct {
	ID        string     `json:"id"`
	Vector    []float32  `json:"vector"`
	Payload   payload.CV `json:"payload"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Vector = slices.Clone(r.Vector)
	r.Payload = r.Payload.Clone()
	return r
}

// Dimension returns the vector length.
func (r Record) Dimension() int {
	return len(r.Vector)
}

// SearchResult is one ranked match.
type SearchResult struct {
	Record
	// Score is the metric score; higher is more similar.
	Score float32 `json:"score"`
}

// String returns a short representation of the result.
func (r SearchResult) String() string {
	return fmt.Sprintf("%s(%.4f)", r.ID, r.Score)
}
