// Package domain defines typed identifiers shared across the gateway.
//
// Each identifier is a distinct type over uuid.UUID so that a DraftID can
// never be passed where a RecordID is expected. Parsing enforces the trust
// boundary invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "evigate/pkg/domain-errors"
)

type (
	// TenantID identifies the organisation that owns drafts and records.
	TenantID uuid.UUID

	// DraftID identifies an in-flight evidence draft.
	DraftID uuid.UUID

	// RecordID identifies a sealed evidence record.
	RecordID uuid.UUID

	// EntityID identifies a bindable business entity (supplier or product).
	EntityID uuid.UUID
)

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id DraftID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id EntityID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DraftID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewDraftID generates a fresh draft identifier. Generated exactly once at
// intake; the id is opaque to callers.
func NewDraftID() DraftID { return DraftID(uuid.New()) }

// NewRecordID generates a fresh record identifier.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewEntityID generates a fresh entity identifier.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

func ParseTenantID(s string) (TenantID, error) {
	u, err := parse(s, "tenant id")
	return TenantID(u), err
}

func ParseDraftID(s string) (DraftID, error) {
	u, err := parse(s, "draft id")
	return DraftID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parse(s, "record id")
	return RecordID(u), err
}

func ParseEntityID(s string) (EntityID, error) {
	u, err := parse(s, "entity id")
	return EntityID(u), err
}

func parse(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s is not a valid UUID", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return u, nil
}
