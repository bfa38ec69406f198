package models

import (
	"time"

	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
)

// DraftStatus is the lifecycle state of an evidence draft.
type DraftStatus string

const (
	StatusDraftCreated    DraftStatus = "draft_created"
	StatusPayloadAttached DraftStatus = "payload_attached"
	StatusValidated       DraftStatus = "validated"
	StatusQuarantined     DraftStatus = "quarantined"
	StatusSealed          DraftStatus = "sealed"
	StatusAbandoned       DraftStatus = "abandoned"
)

// IsTerminal reports whether no further transition is legal from s.
func (s DraftStatus) IsTerminal() bool {
	return s == StatusSealed || s == StatusAbandoned
}

// IdentitySnapshot is the bound entity's identity captured at bind time and
// never re-derived. Suppliers snapshot name+country, products code+name.
type IdentitySnapshot struct {
	EntityType  EntityType `json:"entity_type"`
	Name        string     `json:"name"`
	CountryCode string     `json:"country_code,omitempty"`
	Code        string     `json:"code,omitempty"`
}

// EvidenceDraft is the mutable working object between intake and sealing.
//
// Invariants:
//   - ID is generated once at intake and never changes
//   - Status transitions follow draft_created → payload_attached →
//     {validated | quarantined} → sealed; abandoned from any non-terminal state
//   - Once BindingMode is bind_existing or create_new and an entity is bound,
//     IdentitySnapshot is write-once and identity payload fields are read-only
//   - A quarantined draft keeps its full field-error list so the rejected
//     submission stays auditable
//
// The draft is owned exclusively by the lifecycle service; handlers read and
// write only through it.
type EvidenceDraft struct {
	ID               id.DraftID        `json:"id"`
	TenantID         id.TenantID       `json:"tenant_id"`
	IngestionMethod  Method            `json:"ingestion_method"`
	EvidenceType     EvidenceType      `json:"evidence_type"`
	DeclaredScope    Scope             `json:"declared_scope"`
	BindingMode      BindingMode       `json:"binding_mode"`
	BoundEntityID    *id.EntityID      `json:"bound_entity_id,omitempty"`
	IdentitySnapshot *IdentitySnapshot `json:"binding_identity_snapshot,omitempty"`
	// ReconciliationHint is free text stored with deferred bindings to help
	// the later match.
	ReconciliationHint  string         `json:"reconciliation_hint,omitempty"`
	Purpose             string         `json:"purpose"`
	Payload             map[string]any `json:"payload,omitempty"`
	AttestationNotes    string         `json:"attestation_notes,omitempty"`
	ExternalReferenceID string         `json:"external_reference_id,omitempty"`
	Status              DraftStatus    `json:"status"`
	QuarantineReason    string         `json:"quarantine_reason,omitempty"`
	// FieldErrors holds the full validation error list from the quarantining
	// checkpoint, keyed by field name.
	FieldErrors   map[string]string `json:"field_errors,omitempty"`
	CorrelationID string            `json:"correlation_id"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsBound reports whether the draft is bound to a concrete entity.
func (d *EvidenceDraft) IsBound() bool {
	return d.BoundEntityID != nil && !d.BoundEntityID.IsNil() &&
		(d.BindingMode == BindExisting || d.BindingMode == BindCreate)
}

// CanAttachPayload checks the attach transition. Quarantined drafts may
// re-attach: editing and re-validating is the documented recovery path.
func (d *EvidenceDraft) CanAttachPayload() error {
	switch d.Status {
	case StatusDraftCreated, StatusPayloadAttached, StatusQuarantined, StatusValidated:
		return nil
	default:
		return dErrors.New(dErrors.CodeStateConflict,
			"cannot attach payload to a draft in status "+string(d.Status))
	}
}

// ApplyPayload merges the submitted payload into the draft and moves it to
// payload_attached pending validation. Call CanAttachPayload first.
func (d *EvidenceDraft) ApplyPayload(payload map[string]any, attestation string, now time.Time) {
	if d.Payload == nil {
		d.Payload = make(map[string]any, len(payload))
	}
	for k, v := range payload {
		d.Payload[k] = v
	}
	if attestation != "" {
		d.AttestationNotes = attestation
	}
	d.Status = StatusPayloadAttached
	d.QuarantineReason = ""
	d.FieldErrors = nil
	d.UpdatedAt = now
}

// ApplyValidated records a passed payload checkpoint.
func (d *EvidenceDraft) ApplyValidated(now time.Time) {
	d.Status = StatusValidated
	d.QuarantineReason = ""
	d.FieldErrors = nil
	d.UpdatedAt = now
}

// ApplyQuarantine persists a failed payload checkpoint. Quarantine is a
// state, not an error return: the rejected submission remains auditable.
func (d *EvidenceDraft) ApplyQuarantine(reason string, fieldErrors map[string]string, now time.Time) {
	d.Status = StatusQuarantined
	d.QuarantineReason = reason
	d.FieldErrors = fieldErrors
	d.UpdatedAt = now
}

// CanSeal checks the seal transition. Sealing is legal only from validated;
// anything else is a state conflict, never a silent no-op.
func (d *EvidenceDraft) CanSeal() error {
	if d.Status == StatusValidated {
		return nil
	}
	if d.Status == StatusSealed {
		return dErrors.New(dErrors.CodeStateConflict, "draft is already sealed")
	}
	if d.Status == StatusQuarantined {
		return dErrors.New(dErrors.CodeQuarantined,
			"draft is quarantined: "+d.QuarantineReason)
	}
	return dErrors.New(dErrors.CodeStateConflict,
		"cannot seal a draft in status "+string(d.Status))
}

// ApplySealed marks the draft consumed by a record. Call CanSeal first.
func (d *EvidenceDraft) ApplySealed(now time.Time) {
	d.Status = StatusSealed
	d.UpdatedAt = now
}

// CanAbandon checks the abandon transition, legal from any non-terminal state.
func (d *EvidenceDraft) CanAbandon() error {
	if d.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeStateConflict,
			"cannot abandon a draft in terminal status "+string(d.Status))
	}
	return nil
}

// ApplyAbandoned discards the draft without producing a record.
func (d *EvidenceDraft) ApplyAbandoned(now time.Time) {
	d.Status = StatusAbandoned
	d.UpdatedAt = now
}

// CanBind checks that binding state may still be written. Binding is
// write-once: a draft with a frozen identity snapshot cannot rebind.
func (d *EvidenceDraft) CanBind() error {
	if d.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeStateConflict,
			"cannot bind a draft in terminal status "+string(d.Status))
	}
	if d.IdentitySnapshot != nil {
		return dErrors.New(dErrors.CodeStateConflict, "draft is already bound; binding is write-once")
	}
	return nil
}

// ApplyBinding stores the resolved binding. Call CanBind first.
func (d *EvidenceDraft) ApplyBinding(mode BindingMode, entityID *id.EntityID, snapshot *IdentitySnapshot, hint string, now time.Time) {
	d.BindingMode = mode
	d.BoundEntityID = entityID
	d.IdentitySnapshot = snapshot
	d.ReconciliationHint = hint
	d.UpdatedAt = now
}
