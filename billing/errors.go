/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error categories in one place. Store implementations and the API
  layer wrap these with additional context; callers classify with
  errors.Is or the helpers below.

ERROR CATEGORIES:
  1. Validation errors - Bad or missing input; local, never retried
  2. Auth errors       - No authenticated identity established
  3. Not-found errors  - Target row absent or not owned by the caller
  4. Store errors      - Transport/server failure behind the adapter
  5. Export errors     - Document generation failed

PROPAGATION POLICY:
  Every failure path leaves state either untouched or fully applied,
  never partial. The in-memory collection reflects only confirmed
  server state; failures are reported to the caller, never swallowed.
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for bad or missing input. Surfaced to the
	// user for correction, never retried.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when no identity is established.
	// All mutating operations are blocked until it is.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when no row matched the id within the
	// caller's owner scope (zero rows affected).
	ErrNotFound = errors.New("invoice not found")

	// ErrStore is returned on transport, auth, or server failure behind
	// the record store adapter.
	ErrStore = errors.New("store failure")

	// ErrExport is returned when document generation fails. Invoice state
	// is never affected.
	ErrExport = errors.New("export failed")

	// ErrSessionClosed is returned when an operation is issued against a
	// session that has been closed (user navigated away).
	ErrSessionClosed = errors.New("session closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is the caller's fault and should
// be surfaced for correction rather than logged as a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthenticated)
}

// IsNotFound returns true if the error indicates a missing or unowned row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
