package models

import (
	"time"

	id "evigate/pkg/domain"
)

// HashScope documents what went into a record's digests so verifiers know
// exactly what was hashed. Stored on every record.
const HashScope = "payload:canonical-json/sha256;meta:tenant|evidence_type|scope/sha256"

// EvidenceRecord is the sealed, terminal form of a draft. Once created it is
// never mutated by this subsystem; later review or approval is an external
// process operating on ReviewStatus.
type EvidenceRecord struct {
	ID                  id.RecordID       `json:"id"`
	TenantID            id.TenantID       `json:"tenant_id"`
	DisplayID           string            `json:"display_id"`
	DraftID             id.DraftID        `json:"draft_id"`
	IngestionMethod     Method            `json:"ingestion_method"`
	EvidenceType        EvidenceType      `json:"evidence_type"`
	DeclaredScope       Scope             `json:"declared_scope"`
	BindingMode         BindingMode       `json:"binding_mode"`
	BoundEntityID       *id.EntityID      `json:"bound_entity_id,omitempty"`
	IdentitySnapshot    *IdentitySnapshot `json:"binding_identity_snapshot,omitempty"`
	ReconciliationHint  string            `json:"reconciliation_hint,omitempty"`
	Purpose             string            `json:"purpose"`
	Payload             map[string]any    `json:"payload"`
	AttestationNotes    string            `json:"attestation_notes,omitempty"`
	ExternalReferenceID string            `json:"external_reference_id,omitempty"`

	PayloadHash  string `json:"payload_hash"`
	MetadataHash string `json:"metadata_hash"`
	HashScope    string `json:"hash_scope"`

	SealedAtUtc          time.Time            `json:"sealed_at_utc"`
	ReviewStatus         ReviewStatus         `json:"review_status"`
	TrustLevel           TrustLevel           `json:"trust_level"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status"`
	// Usable is false while the record is unbound or any composite row is
	// pending match; unusable evidence must not enter downstream
	// calculations.
	Usable        bool   `json:"usable"`
	CorrelationID string `json:"correlation_id"`
}
