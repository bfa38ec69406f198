package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
)

func draftIn(status DraftStatus) *EvidenceDraft {
	return &EvidenceDraft{
		ID:              id.NewDraftID(),
		IngestionMethod: MethodManualAttestation,
		EvidenceType:    TypeSupplierMaster,
		DeclaredScope:   ScopeSupplier,
		BindingMode:     BindDefer,
		Status:          status,
	}
}

func TestDraftTransitions(t *testing.T) {
	now := time.Now()

	t.Run("attach is legal until sealed or abandoned", func(t *testing.T) {
		for _, status := range []DraftStatus{StatusDraftCreated, StatusPayloadAttached, StatusValidated, StatusQuarantined} {
			assert.NoError(t, draftIn(status).CanAttachPayload(), string(status))
		}
		for _, status := range []DraftStatus{StatusSealed, StatusAbandoned} {
			err := draftIn(status).CanAttachPayload()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict), string(status))
		}
	})

	t.Run("attach merges and clears quarantine", func(t *testing.T) {
		d := draftIn(StatusQuarantined)
		d.Payload = map[string]any{"supplier_name": "Acme"}
		d.QuarantineReason = "missing fields"
		d.FieldErrors = map[string]string{"country_code": "required"}

		d.ApplyPayload(map[string]any{"country_code": "DE"}, "checked by QA", now)

		assert.Equal(t, StatusPayloadAttached, d.Status)
		assert.Equal(t, "Acme", d.Payload["supplier_name"], "merge keeps earlier fields")
		assert.Equal(t, "DE", d.Payload["country_code"])
		assert.Empty(t, d.QuarantineReason)
		assert.Nil(t, d.FieldErrors)
		assert.Equal(t, "checked by QA", d.AttestationNotes)
	})

	t.Run("seal only from validated", func(t *testing.T) {
		assert.NoError(t, draftIn(StatusValidated).CanSeal())

		err := draftIn(StatusQuarantined).CanSeal()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeQuarantined))

		for _, status := range []DraftStatus{StatusDraftCreated, StatusPayloadAttached, StatusSealed, StatusAbandoned} {
			err := draftIn(status).CanSeal()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict), string(status))
		}
	})

	t.Run("abandon from any non-terminal state", func(t *testing.T) {
		for _, status := range []DraftStatus{StatusDraftCreated, StatusPayloadAttached, StatusValidated, StatusQuarantined} {
			assert.NoError(t, draftIn(status).CanAbandon(), string(status))
		}
		for _, status := range []DraftStatus{StatusSealed, StatusAbandoned} {
			err := draftIn(status).CanAbandon()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict), string(status))
		}
	})

	t.Run("binding is write-once", func(t *testing.T) {
		d := draftIn(StatusDraftCreated)
		require.NoError(t, d.CanBind())

		entityID := id.NewEntityID()
		d.ApplyBinding(BindExisting, &entityID, &IdentitySnapshot{
			EntityType: EntitySupplier,
			Name:       "Acme",
		}, "", now)
		assert.True(t, d.IsBound())

		err := d.CanBind()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	t.Run("deferred binding is not bound", func(t *testing.T) {
		d := draftIn(StatusDraftCreated)
		d.ApplyBinding(BindDefer, nil, nil, "match by VAT number", now)
		assert.False(t, d.IsBound())
		assert.Equal(t, "match by VAT number", d.ReconciliationHint)
	})
}

func TestTrustDerivation(t *testing.T) {
	assert.Equal(t, TrustLow, MethodManualAttestation.TrustLevel())
	assert.Equal(t, TrustMedium, MethodFileUpload.TrustLevel())
	assert.Equal(t, TrustHigh, MethodERPExport.TrustLevel())
	assert.Equal(t, TrustHigh, MethodAPIDigest.TrustLevel())

	assert.False(t, MethodManualAttestation.RequiresExternalReference())
	assert.False(t, MethodFileUpload.RequiresExternalReference())
	assert.True(t, MethodERPExport.RequiresExternalReference())
	assert.True(t, MethodAPIDigest.RequiresExternalReference())
}

func TestParseRejectsUnknownIdentifiers(t *testing.T) {
	_, err := ParseMethod("fax")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseEvidenceType("rumor")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseScope("galaxy")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseBindingMode("maybe")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
