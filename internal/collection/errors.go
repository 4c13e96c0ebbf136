package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID is returned for an empty record id.
	ErrInvalidID = errors.New("record id must not be empty")

	// ErrInvalidVector is returned for vectors with NaN or infinite components.
	ErrInvalidVector = errors.New("vector components must be finite")

	// ErrInvalidDimension is returned when a collection is created with dimension <= 0.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrInvalidMetric is returned for an unsupported distance metric.
	ErrInvalidMetric = errors.New("unsupported metric")

	// ErrFull is returned when the collection has no free row ids left.
	ErrFull = errors.New("collection is full")
)

// ErrDimensionMismatch indicates a vector whose length differs from the
// collection dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
