// Package dErrors provides coded domain errors for the evidence gateway.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded errors so transports can map a
// code to a status without string matching. Errors are never bare strings
// across package boundaries.
package dErrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable classification of a domain error.
type Code string

const (
	// CodeInvalidInput marks malformed caller input at a trust boundary
	// (bad UUIDs, missing request fields). Recoverable by correction.
	CodeInvalidInput Code = "invalid_input"

	// CodeValidation marks a failed validation checkpoint. The error carries
	// per-field messages via WithFields. Recoverable by correction.
	CodeValidation Code = "validation_error"

	// CodeQuarantined marks an operation attempted against a quarantined
	// draft, or reports the quarantine outcome itself.
	CodeQuarantined Code = "quarantined"

	// CodeDraftMissing means the caller references a draft that does not
	// exist (or was archived). Recoverable by restarting intake.
	CodeDraftMissing Code = "draft_missing"

	// CodeNotFound is the generic missing-resource code for entities and
	// records.
	CodeNotFound Code = "not_found"

	// CodeStateConflict marks an illegal lifecycle transition or a lost
	// single-writer race. Must not be retried blindly.
	CodeStateConflict Code = "state_conflict"

	// CodeIdempotencyConflict means the external reference id was already
	// sealed for this tenant. Terminal: treat as already processed.
	CodeIdempotencyConflict Code = "idempotency_conflict"

	// CodeAdapterViolation means the persistence adapter breached its
	// contract (echoed wrong ids, returned malformed data). Fatal.
	CodeAdapterViolation Code = "adapter_contract_violation"

	// CodeNotConfigured means a required external capability is absent.
	// Fatal, surfaced immediately, never silently degraded.
	CodeNotConfigured Code = "not_configured"

	// CodeConflict is the generic uniqueness conflict (duplicate entity
	// stub, duplicate name).
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks a missing, malformed or expired bearer token.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal wraps unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a code, a human message, and optional
// per-field detail for validation failures.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithFields attaches per-field messages, used by validation checkpoints to
// report every failing field at once.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf extracts per-field messages when present.
func FieldsOf(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
