package knowledge

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers classify with
// errors.Is; details travel in the wrapping message.
var (
	// ErrUninitialized indicates an operation was invoked before its
	// collaborators finished setup. This is a startup ordering bug, not
	// a runtime condition.
	ErrUninitialized = errors.New("collaborator not initialized")

	// ErrInvalidInput marks boundary validation failures. No side
	// effects have occurred when this is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingProvider marks failures of the external embedding
	// call. During store, the entry and links already persisted are
	// kept; the error tells the caller embeddings are missing.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrHashConflict is returned by Store.InsertEntry when another
	// writer inserted the same content hash first. The pipeline treats
	// it as a dedup hit, never as a fatal error.
	ErrHashConflict = errors.New("content hash already exists")

	// ErrNotFound indicates a lookup by id matched no entry.
	ErrNotFound = errors.New("entry not found")

	// ErrDimensionMismatch indicates the provider returned a vector
	// shorter than the configured dimension. Vectors longer than the
	// configured dimension are truncated; shorter ones are a hard error
	// because padded vectors would corrupt similarity comparisons.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ValidationError reports a malformed or missing input field.
// It unwraps to ErrInvalidInput for errors.Is checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
