package service

import (
	"evigate/internal/evidence/models"
	"evigate/internal/evidence/registry"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/canonical"
)

// metadataEnvelope is the fixed set of fields hashed alongside the payload.
// Its shape is documented on the record through models.HashScope so
// verifiers know exactly what was hashed.
type metadataEnvelope struct {
	TenantID     string `json:"tenant_id"`
	EvidenceType string `json:"evidence_type"`
	Scope        string `json:"scope"`
}

// buildRecord converts a validated draft into its immutable sealed form.
// Pure except for the record id draw: hashing, trust derivation and
// reconciliation are all deterministic functions of the draft.
func buildRecord(d *models.EvidenceDraft) (*models.EvidenceRecord, error) {
	payloadHash, _, err := canonical.SumObject(d.Payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "payload could not be canonicalized")
	}

	metaHash, _, err := canonical.SumObject(metadataEnvelope{
		TenantID:     d.TenantID.String(),
		EvidenceType: string(d.EvidenceType),
		Scope:        string(d.DeclaredScope),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "metadata envelope could not be canonicalized")
	}

	reconciliation, usable, err := reconcile(d)
	if err != nil {
		return nil, err
	}

	return &models.EvidenceRecord{
		ID:                   id.NewRecordID(),
		TenantID:             d.TenantID,
		DraftID:              d.ID,
		IngestionMethod:      d.IngestionMethod,
		EvidenceType:         d.EvidenceType,
		DeclaredScope:        d.DeclaredScope,
		BindingMode:          d.BindingMode,
		BoundEntityID:        d.BoundEntityID,
		IdentitySnapshot:     d.IdentitySnapshot,
		ReconciliationHint:   d.ReconciliationHint,
		Purpose:              d.Purpose,
		Payload:              d.Payload,
		AttestationNotes:     d.AttestationNotes,
		ExternalReferenceID:  d.ExternalReferenceID,
		PayloadHash:          payloadHash,
		MetadataHash:         metaHash,
		HashScope:            models.HashScope,
		ReviewStatus:         models.ReviewNotReviewed,
		TrustLevel:           d.IngestionMethod.TrustLevel(),
		ReconciliationStatus: reconciliation,
		Usable:               usable,
		CorrelationID:        d.CorrelationID,
	}, nil
}

// reconcile derives the record's reconciliation status and usability.
//
// Unbound evidence seals (evidence is immutable once submitted) but must
// never enter downstream calculations, so usable is false until every
// binding is resolved. For composite types only the parent binding may be
// deferred; rows reference entities independently and a single
// pending-match row flags the whole record unusable.
func reconcile(d *models.EvidenceDraft) (models.ReconciliationStatus, bool, error) {
	if !d.IsBound() {
		return models.ReconciliationUnbound, false, nil
	}

	if registry.FieldSchemaFor(d.EvidenceType).IsComposite() {
		rows, err := models.DecodeBOMRows(d.Payload)
		if err != nil {
			return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "composite rows could not be decoded at seal time")
		}
		for _, row := range rows {
			if row.MatchStatus() == models.RowPendingMatch {
				return models.ReconciliationPendingMatch, false, nil
			}
		}
	}
	return models.ReconciliationBound, true, nil
}
