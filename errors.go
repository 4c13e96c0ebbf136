package intellihire

import (
	"context"
	"errors"
	"fmt"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
	"github.com/SRafi007/intellihire-ai/internal/persist"
	"github.com/SRafi007/intellihire-ai/internal/registry"
	"github.com/SRafi007/intellihire-ai/internal/search"
	"github.com/SRafi007/intellihire-ai/internal/snapshot"
	"github.com/SRafi007/intellihire-ai/payload"
)

var (
	// ErrCollectionNotFound is returned when an operation targets a
	// collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidArgument is returned for malformed call parameters such as a
	// non-positive top_k, an empty id or a malformed filter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageUnavailable wraps failures of the blob store beneath the
	// store, including unreadable snapshots.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")

	// ErrNoMatch is returned by SearchBuilder.First when nothing matches.
	ErrNoMatch = errors.New("no matching record")

	// ErrNoBlobStore is returned by Commit and Load when the store was
	// created without a blob store.
	ErrNoBlobStore = fmt.Errorf("%w: no blob store configured", ErrInvalidArgument)
)

// ValidationError reports every payload field that failed validation.
type ValidationError = payload.ValidationError

// FieldError describes a single rejected payload field.
type FieldError = payload.FieldError

// DimensionMismatchError indicates a vector or query whose length differs
// from the collection dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return e.cause }

// Schema is the fixed shape of a collection.
type Schema struct {
	Dimension int
	Metric    distance.Metric
}

func (s Schema) String() string {
	return fmt.Sprintf("%d/%s", s.Dimension, s.Metric)
}

// SchemaConflictError is returned when a collection is initialized with a
// dimension or metric different from the existing one.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type SchemaConflictError struct {
	Name      string
	Existing  Schema
	Requested Schema
	cause     error
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("collection %q exists as %s, requested %s", e.Name, e.Existing, e.Requested)
}

func (e *SchemaConflictError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already translated or foreign errors that callers match directly.
	var ve *ValidationError
	if errors.As(err, &ve) {
		return err
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrCollectionNotFound) || errors.Is(err, ErrClosed) {
		return err
	}

	// Not found unification.
	if errors.Is(err, registry.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrCollectionNotFound, err)
	}

	// Dimension and schema normalization.
	var dm *collection.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &DimensionMismatchError{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var sc *registry.ErrSchemaConflict
	if errors.As(err, &sc) {
		return &SchemaConflictError{
			Name:      sc.Name,
			Existing:  Schema{Dimension: sc.ExistingDimension, Metric: sc.ExistingMetric},
			Requested: Schema{Dimension: sc.RequestedDimension, Metric: sc.RequestedMetric},
			cause:     err,
		}
	}

	for _, target := range []error{
		registry.ErrInvalidName,
		collection.ErrInvalidID,
		collection.ErrInvalidVector,
		collection.ErrInvalidDimension,
		collection.ErrInvalidMetric,
		collection.ErrFull,
		search.ErrInvalidK,
		search.ErrInvalidFilter,
		search.ErrInvalidQuery,
	} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}

	if errors.Is(err, snapshot.ErrCorrupt) || errors.Is(err, snapshot.ErrBadMagic) ||
		errors.Is(err, snapshot.ErrUnsupportedVersion) || errors.Is(err, persist.ErrNameMismatch) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return err
}

// storageError marks err as a storage failure unless it is a context error
// or already classified.
func storageError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	err = translateError(err)
	var ve *ValidationError
	if errors.Is(err, ErrStorageUnavailable) || errors.As(err, &ve) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// Error codes reported by ErrorInfo.
const (
	CodeValidation        = "validation_error"
	CodeDimensionMismatch = "dimension_mismatch"
	CodeSchemaConflict    = "schema_conflict"
	CodeNotFound          = "collection_not_found"
	CodeInvalidArgument   = "invalid_argument"
	CodeStorage           = "storage_unavailable"
	CodeClosed            = "closed"
)

// ErrorInfo renders err as a small serializable map with "type" and
// "message" keys, plus "code" for errors of this package. API layers can
// return it as is.
func ErrorInfo(err error) map[string]any {
	if err == nil {
		return nil
	}

	info := map[string]any{"message": err.Error()}
	var (
		ve *ValidationError
		dm *DimensionMismatchError
		sc *SchemaConflictError
	)
	switch {
	case errors.As(err, &ve):
		info["type"], info["code"] = "ValidationError", CodeValidation
		fields := make([]map[string]string, len(ve.Fields))
		for i, f := range ve.Fields {
			fields[i] = map[string]string{"field": f.Field, "reason": f.Reason}
		}
		info["fields"] = fields
	case errors.As(err, &dm):
		info["type"], info["code"] = "DimensionMismatchError", CodeDimensionMismatch
	case errors.As(err, &sc):
		info["type"], info["code"] = "SchemaConflictError", CodeSchemaConflict
	case errors.Is(err, ErrCollectionNotFound):
		info["type"], info["code"] = "CollectionNotFoundError", CodeNotFound
	case errors.Is(err, ErrInvalidArgument):
		info["type"], info["code"] = "InvalidArgumentError", CodeInvalidArgument
	case errors.Is(err, ErrStorageUnavailable):
		info["type"], info["code"] = "StorageUnavailableError", CodeStorage
	case errors.Is(err, ErrClosed):
		info["type"], info["code"] = "ClosedError", CodeClosed
	default:
		info["type"] = fmt.Sprintf("%T", err)
	}
	return info
}
