package audit

import (
	"time"

	id "evigate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose, enabling
// different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance.
	// These require tamper-evident storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility; can be sampled, shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event captures a key action in the evidence lifecycle. Kept
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory
	Action        AuditEvent
	Timestamp     time.Time
	TenantID      id.TenantID
	DraftID       string
	RecordID      string
	EntityID      string
	Reason        string
	CorrelationID string
}

type AuditEvent string

const (
	EventDraftCreated      AuditEvent = "draft_created"
	EventDraftQuarantined  AuditEvent = "draft_quarantined"
	EventDraftValidated    AuditEvent = "draft_validated"
	EventDraftAbandoned    AuditEvent = "draft_abandoned"
	EventDraftSealed       AuditEvent = "draft_sealed"
	EventSealConflict      AuditEvent = "seal_idempotency_conflict"
	EventEntityStubCreated AuditEvent = "entity_stub_created"
)

// eventCategories routes each event to its category. Sealing outcomes are
// compliance-grade; the rest is operational visibility.
var eventCategories = map[AuditEvent]EventCategory{
	EventDraftCreated:      CategoryOperations,
	EventDraftValidated:    CategoryOperations,
	EventDraftQuarantined:  CategoryCompliance,
	EventDraftAbandoned:    CategoryOperations,
	EventDraftSealed:       CategoryCompliance,
	EventSealConflict:      CategoryCompliance,
	EventEntityStubCreated: CategoryOperations,
}

// CategoryOf returns the routing category for an event, defaulting to
// operations for unknown actions.
func CategoryOf(action AuditEvent) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}
