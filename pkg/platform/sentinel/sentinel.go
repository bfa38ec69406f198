package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and gateway adapters
// return these (optionally wrapped) so services can translate them into
// coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: draft/record/entity does not exist in store
// - ErrAlreadyUsed: idempotency key already reserved by a sealed record
// - ErrInvalidState: draft in wrong lifecycle state for the operation
// - ErrLocked: another mutation is in flight for the same draft
// - ErrUnavailable: store or broker temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrLocked       = errors.New("locked")
	ErrUnavailable  = errors.New("unavailable")
)
