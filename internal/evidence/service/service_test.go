package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	entitymodels "evigate/internal/entity/models"
	entityservice "evigate/internal/entity/service"
	entitystore "evigate/internal/entity/store"
	"evigate/internal/evidence/binding"
	"evigate/internal/evidence/models"
	"evigate/internal/evidence/store/draft"
	"evigate/internal/evidence/store/lock"
	"evigate/internal/evidence/store/record"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/platform/audit"
	"evigate/pkg/requestcontext"
)

const testPurpose = "annual compliance filing evidence intake"

type DraftServiceSuite struct {
	suite.Suite
	svc      *DraftService
	entities *entityservice.EntityService
	auditor  *audit.MemoryStore
	tenantID id.TenantID
	ctx      context.Context
}

func TestDraftServiceSuite(t *testing.T) {
	suite.Run(t, new(DraftServiceSuite))
}

func (s *DraftServiceSuite) SetupTest() {
	s.tenantID = id.TenantID(uuid.New())
	s.ctx = requestcontext.WithTenantID(context.Background(), s.tenantID)
	s.ctx = requestcontext.WithCorrelationID(s.ctx, "corr-"+uuid.NewString())

	s.auditor = audit.NewMemoryStore()

	entities, err := entityservice.New(entitystore.NewInMemory(), slog.Default(),
		entityservice.WithAuditor(s.auditor))
	s.Require().NoError(err)
	s.entities = entities

	resolver, err := binding.New(entities)
	s.Require().NoError(err)

	svc, err := New(draft.NewInMemory(), record.NewInMemory(), lock.NewInMemory(), resolver,
		WithAuditor(s.auditor))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *DraftServiceSuite) intake() IntakeInput {
	return IntakeInput{
		Method:        models.MethodManualAttestation,
		EvidenceType:  models.TypeSupplierMaster,
		DeclaredScope: models.ScopeSupplier,
		Binding:       binding.Request{Mode: models.BindDefer},
		Purpose:       testPurpose,
	}
}

func (s *DraftServiceSuite) supplierPayload() map[string]any {
	return map[string]any{"supplier_name": "Acme GmbH", "country_code": "DE"}
}

func (s *DraftServiceSuite) validatedDraft() *models.EvidenceDraft {
	d, err := s.svc.CreateDraft(s.ctx, s.intake())
	s.Require().NoError(err)
	d, err = s.svc.AttachPayload(s.ctx, d.ID, s.supplierPayload(), "attested by QA")
	s.Require().NoError(err)
	s.Require().Equal(models.StatusValidated, d.Status)
	return d
}

func (s *DraftServiceSuite) TestIntake() {
	s.Run("creates draft on valid intake", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)
		s.Equal(models.StatusDraftCreated, d.Status)
		s.False(d.ID.IsNil())
		s.Equal(s.tenantID, d.TenantID)

		found, err := s.svc.GetDraft(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(d.ID, found.ID)
	})

	s.Run("incompatible scope fails and persists nothing", func() {
		in := s.intake()
		in.DeclaredScope = models.ScopeProduct

		_, err := s.svc.CreateDraft(s.ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.FieldsOf(err), "declared_scope")
	})

	s.Run("create_new binds through the gateway", func() {
		in := s.intake()
		in.Binding = binding.Request{
			Mode: models.BindCreate,
			Stub: &entitymodels.Stub{Name: "Nordic Steel", CountryCode: "NO"},
		}
		d, err := s.svc.CreateDraft(s.ctx, in)
		s.Require().NoError(err)
		s.True(d.IsBound())
		s.Equal("Nordic Steel", d.IdentitySnapshot.Name)

		var actions []audit.AuditEvent
		for _, e := range s.auditor.Events() {
			actions = append(actions, e.Action)
		}
		s.Contains(actions, audit.EventEntityStubCreated)
	})
}

func (s *DraftServiceSuite) TestAttachPayload() {
	s.Run("valid payload transitions to validated", func() {
		d := s.validatedDraft()
		s.Empty(d.FieldErrors)
	})

	s.Run("invalid payload quarantines with full error list", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)

		d, err = s.svc.AttachPayload(s.ctx, d.ID, map[string]any{"supplier_name": "Acme"}, "")
		s.Require().NoError(err, "quarantine is a state, not an error return")
		s.Equal(models.StatusQuarantined, d.Status)
		s.Contains(d.FieldErrors, "country_code")
		s.NotEmpty(d.QuarantineReason)

		// Quarantine is persisted, not transient.
		found, err := s.svc.GetDraft(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusQuarantined, found.Status)
	})

	s.Run("quarantined draft recovers by re-attaching", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)
		d, err = s.svc.AttachPayload(s.ctx, d.ID, map[string]any{"supplier_name": "Acme"}, "")
		s.Require().NoError(err)
		s.Require().Equal(models.StatusQuarantined, d.Status)

		d, err = s.svc.AttachPayload(s.ctx, d.ID, s.supplierPayload(), "")
		s.Require().NoError(err)
		s.Equal(models.StatusValidated, d.Status)
	})

	s.Run("missing draft yields draft_missing", func() {
		_, err := s.svc.AttachPayload(s.ctx, id.NewDraftID(), s.supplierPayload(), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDraftMissing))
	})
}

func (s *DraftServiceSuite) TestSeal() {
	s.Run("seals a validated draft", func() {
		fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, fixed)

		d := s.validatedDraft()
		rec, err := s.svc.Seal(ctx, d.ID)
		s.Require().NoError(err)

		s.NotEmpty(rec.PayloadHash)
		s.Contains(rec.PayloadHash, "sha256:")
		s.NotEmpty(rec.MetadataHash)
		s.Equal(models.HashScope, rec.HashScope)
		s.Equal(fixed, rec.SealedAtUtc)
		s.Equal("EV-2026-000001", rec.DisplayID)
		s.Equal(models.ReviewNotReviewed, rec.ReviewStatus)
		s.Equal(models.TrustLow, rec.TrustLevel, "manual attestation is low trust")
		s.Equal(models.ReconciliationUnbound, rec.ReconciliationStatus)
		s.False(rec.Usable, "unbound evidence is not usable downstream")

		archived, err := s.svc.GetDraft(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusSealed, archived.Status)
	})

	s.Run("sealing twice is a state conflict", func() {
		d := s.validatedDraft()
		_, err := s.svc.Seal(s.ctx, d.ID)
		s.Require().NoError(err)

		_, err = s.svc.Seal(s.ctx, d.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("sealing a quarantined draft is rejected", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)
		_, err = s.svc.AttachPayload(s.ctx, d.ID, map[string]any{}, "")
		s.Require().NoError(err)

		_, err = s.svc.Seal(s.ctx, d.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeQuarantined))
	})

	s.Run("sealing a fresh draft is rejected", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)

		_, err = s.svc.Seal(s.ctx, d.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("erp exports seal with high trust", func() {
		in := s.intake()
		in.Method = models.MethodERPExport
		in.ExternalReferenceID = "SAP-778123"
		d, err := s.svc.CreateDraft(s.ctx, in)
		s.Require().NoError(err)
		_, err = s.svc.AttachPayload(s.ctx, d.ID, s.supplierPayload(), "")
		s.Require().NoError(err)

		rec, err := s.svc.Seal(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.TrustHigh, rec.TrustLevel)
	})
}

func (s *DraftServiceSuite) TestSealIdempotency() {
	newValidated := func(ref string) *models.EvidenceDraft {
		in := s.intake()
		in.Method = models.MethodERPExport
		in.ExternalReferenceID = ref
		d, err := s.svc.CreateDraft(s.ctx, in)
		s.Require().NoError(err)
		d, err = s.svc.AttachPayload(s.ctx, d.ID, s.supplierPayload(), "")
		s.Require().NoError(err)
		return d
	}

	s.Run("duplicate external reference yields exactly one record", func() {
		first := newValidated("X1-batch-7")
		second := newValidated("X1-batch-7")

		rec, err := s.svc.Seal(s.ctx, first.ID)
		s.Require().NoError(err)
		s.NotEmpty(rec.PayloadHash)

		_, err = s.svc.Seal(s.ctx, second.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIdempotencyConflict))

		records, err := s.svc.ListRecords(s.ctx)
		s.Require().NoError(err)
		s.Len(records, 1)
	})

	s.Run("the losing draft remains validated and retryable", func() {
		first := newValidated("Y9-batch-1")
		second := newValidated("Y9-batch-1")

		_, err := s.svc.Seal(s.ctx, first.ID)
		s.Require().NoError(err)
		_, err = s.svc.Seal(s.ctx, second.ID)
		s.Require().Error(err)

		d, err := s.svc.GetDraft(s.ctx, second.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusValidated, d.Status)
	})
}

func (s *DraftServiceSuite) TestCompositeSealing() {
	bomIntake := func() IntakeInput {
		return IntakeInput{
			Method:        models.MethodManualAttestation,
			EvidenceType:  models.TypeBillOfMaterials,
			DeclaredScope: models.ScopeProduct,
			Binding: binding.Request{
				Mode: models.BindCreate,
				Stub: &entitymodels.Stub{Name: "Widget A", Code: "WID-A"},
			},
			Purpose: testPurpose,
		}
	}

	s.Run("pending-match rows seal but are flagged unusable", func() {
		d, err := s.svc.CreateDraft(s.ctx, bomIntake())
		s.Require().NoError(err)

		_, err = s.svc.AttachPayload(s.ctx, d.ID, map[string]any{
			"rows": []models.BOMRow{
				{EntityReferenceID: uuid.NewString(), Quantity: 2, Unit: "KG"},
				{FreeTextCode: "STEEL-COIL-3", Quantity: 1, Unit: "T"},
			},
		}, "")
		s.Require().NoError(err)

		rec, err := s.svc.Seal(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.ReconciliationPendingMatch, rec.ReconciliationStatus)
		s.False(rec.Usable)
	})

	s.Run("fully referenced rows seal usable", func() {
		d, err := s.svc.CreateDraft(s.ctx, bomIntake())
		s.Require().NoError(err)

		_, err = s.svc.AttachPayload(s.ctx, d.ID, map[string]any{
			"rows": []models.BOMRow{
				{EntityReferenceID: uuid.NewString(), Quantity: 2, Unit: "KG"},
			},
		}, "")
		s.Require().NoError(err)

		rec, err := s.svc.Seal(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.ReconciliationBound, rec.ReconciliationStatus)
		s.True(rec.Usable)
	})
}

func (s *DraftServiceSuite) TestAbandon() {
	s.Run("abandons a non-terminal draft", func() {
		d, err := s.svc.CreateDraft(s.ctx, s.intake())
		s.Require().NoError(err)

		d, err = s.svc.Abandon(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAbandoned, d.Status)
	})

	s.Run("abandoning a sealed draft is a state conflict", func() {
		d := s.validatedDraft()
		_, err := s.svc.Seal(s.ctx, d.ID)
		s.Require().NoError(err)

		_, err = s.svc.Abandon(s.ctx, d.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

func (s *DraftServiceSuite) TestAuditTrail() {
	d := s.validatedDraft()
	_, err := s.svc.Seal(s.ctx, d.ID)
	s.Require().NoError(err)

	var actions []audit.AuditEvent
	for _, e := range s.auditor.Events() {
		actions = append(actions, e.Action)
		s.Equal(s.tenantID, e.TenantID)
		s.NotEmpty(e.CorrelationID)
	}
	s.Contains(actions, audit.EventDraftCreated)
	s.Contains(actions, audit.EventDraftValidated)
	s.Contains(actions, audit.EventDraftSealed)
}

// flakySink is a togglable audit sink standing in for a broker outage.
type flakySink struct {
	*audit.MemoryStore
	down bool
}

func (f *flakySink) Append(ctx context.Context, event audit.Event) error {
	if f.down {
		return errors.New("broker unreachable")
	}
	return f.MemoryStore.Append(ctx, event)
}

func (s *DraftServiceSuite) TestComplianceTrailFailsClosed() {
	sink := &flakySink{MemoryStore: audit.NewMemoryStore()}
	resolver, err := binding.New(s.entities)
	s.Require().NoError(err)
	svc, err := New(draft.NewInMemory(), record.NewInMemory(), lock.NewInMemory(), resolver,
		WithAuditor(sink))
	s.Require().NoError(err)

	sink.down = true

	// Operations events are fail-open: intake and validation proceed with
	// the sink down.
	d, err := svc.CreateDraft(s.ctx, s.intake())
	s.Require().NoError(err)
	d, err = svc.AttachPayload(s.ctx, d.ID, s.supplierPayload(), "")
	s.Require().NoError(err)
	s.Equal(models.StatusValidated, d.Status)

	// Sealing is compliance-grade: with the trail down nothing is sealed
	// and the draft stays retryable.
	_, err = svc.Seal(s.ctx, d.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	recs, err := svc.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Empty(recs)

	d, err = svc.GetDraft(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusValidated, d.Status)

	// Once the trail recovers, the same draft seals cleanly.
	sink.down = false
	rec, err := svc.Seal(s.ctx, d.ID)
	s.Require().NoError(err)
	s.NotNil(rec)

	var actions []audit.AuditEvent
	for _, e := range sink.Events() {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, audit.EventDraftSealed)

	// Quarantine is compliance-grade too: the state persists but the
	// request surfaces the trail failure.
	sink.down = true
	q, err := svc.CreateDraft(s.ctx, s.intake())
	s.Require().NoError(err)
	_, err = svc.AttachPayload(s.ctx, q.ID, map[string]any{"supplier_name": "Acme"}, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	q, err = svc.GetDraft(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusQuarantined, q.Status)
}

func (s *DraftServiceSuite) TestSingleWriterLock() {
	d := s.validatedDraft()

	locks := lock.NewInMemory()
	release, err := locks.Acquire(s.ctx, d.ID)
	s.Require().NoError(err)

	_, err = locks.Acquire(s.ctx, d.ID)
	s.Require().Error(err)

	release()
	release() // idempotent

	release2, err := locks.Acquire(s.ctx, d.ID)
	s.Require().NoError(err)
	release2()
}
