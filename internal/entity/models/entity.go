package models

import (
	"strings"
	"time"

	evidence "evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
)

// Entity is a bindable business entity in the directory. Suppliers are
// identified by name+country, products by code+name; the remaining identity
// field stays empty.
type Entity struct {
	ID          id.EntityID         `json:"id"`
	TenantID    id.TenantID         `json:"tenant_id"`
	Type        evidence.EntityType `json:"type"`
	Name        string              `json:"name"`
	CountryCode string              `json:"country_code,omitempty"`
	Code        string              `json:"code,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Stub is the minimal identity a caller supplies to create an entity.
type Stub struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	Code        string `json:"code,omitempty"`
}

// NewEntity validates a stub for the given type and builds the aggregate.
//
// Invariants:
//   - Name is non-empty and at most 256 characters
//   - Suppliers carry a two-letter country code
//   - Products carry a non-empty code
func NewEntity(tenantID id.TenantID, entityType evidence.EntityType, stub Stub, now time.Time) (*Entity, error) {
	name := strings.TrimSpace(stub.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity name is required")
	}
	if len(name) > 256 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity name must be 256 characters or less")
	}

	e := &Entity{
		ID:        id.NewEntityID(),
		TenantID:  tenantID,
		Type:      entityType,
		Name:      name,
		CreatedAt: now,
	}

	switch entityType {
	case evidence.EntitySupplier:
		country := strings.ToUpper(strings.TrimSpace(stub.CountryCode))
		if len(country) != 2 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "supplier stubs require a two-letter country code")
		}
		e.CountryCode = country
	case evidence.EntityProduct:
		code := strings.TrimSpace(stub.Code)
		if code == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "product stubs require a code")
		}
		e.Code = code
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown entity type")
	}

	return e, nil
}

// IdentitySnapshot freezes the entity's identity for a draft binding.
func (e *Entity) IdentitySnapshot() *evidence.IdentitySnapshot {
	return &evidence.IdentitySnapshot{
		EntityType:  e.Type,
		Name:        e.Name,
		CountryCode: e.CountryCode,
		Code:        e.Code,
	}
}
