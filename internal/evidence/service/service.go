// Package service owns the draft lifecycle state machine and the sealing
// path. All draft mutations flow through here: handlers never touch stores
// directly.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"evigate/internal/evidence/binding"
	evidencemetrics "evigate/internal/evidence/metrics"
	"evigate/internal/evidence/models"
	"evigate/internal/evidence/store/draft"
	"evigate/internal/evidence/store/lock"
	"evigate/internal/evidence/store/record"
	"evigate/internal/evidence/validate"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/platform/audit"
	"evigate/pkg/platform/sentinel"
	"evigate/pkg/requestcontext"
)

var tracer = otel.Tracer("evigate/evidence")

// DraftService orchestrates intake, attachment, binding, quarantine and
// sealing for evidence drafts.
type DraftService struct {
	drafts   draft.Store
	records  record.Store
	locks    lock.Store
	resolver *binding.Resolver
	auditor  audit.Store
	metrics  *evidencemetrics.Metrics
	logger   *slog.Logger
}

// Option configures the DraftService.
type Option func(*DraftService)

// WithMetrics attaches the Prometheus counters.
func WithMetrics(m *evidencemetrics.Metrics) Option {
	return func(s *DraftService) { s.metrics = m }
}

// WithAuditor attaches an audit sink. Defaults to an in-memory buffer.
func WithAuditor(a audit.Store) Option {
	return func(s *DraftService) { s.auditor = a }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *DraftService) { s.logger = l }
}

// New wires the service. Missing stores are fatal configuration errors
// surfaced immediately, never degraded.
func New(drafts draft.Store, records record.Store, locks lock.Store, resolver *binding.Resolver, opts ...Option) (*DraftService, error) {
	if drafts == nil || records == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "draft and record stores are required")
	}
	if resolver == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "binding resolver is required")
	}
	s := &DraftService{
		drafts:   drafts,
		records:  records,
		locks:    locks,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = lock.NewInMemory()
	}
	if s.auditor == nil {
		s.auditor = audit.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// IntakeInput is the parsed intake submission.
type IntakeInput struct {
	Method              models.Method
	EvidenceType        models.EvidenceType
	DeclaredScope       models.Scope
	Binding             binding.Request
	Purpose             string
	ExternalReferenceID string
}

// CreateDraft runs intake validation and, on success, resolves the binding
// and persists a new draft. On validation failure nothing is persisted and
// the full field error list is returned.
func (s *DraftService) CreateDraft(ctx context.Context, in IntakeInput) (*models.EvidenceDraft, error) {
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant is required")
	}

	res := validate.Intake(validate.IntakeCandidate{
		Method:              in.Method,
		EvidenceType:        in.EvidenceType,
		DeclaredScope:       in.DeclaredScope,
		BindingMode:         in.Binding.Mode,
		Purpose:             in.Purpose,
		ExternalReferenceID: in.ExternalReferenceID,
		HasBoundEntity:      in.Binding.EntityID != nil || in.Binding.Stub != nil,
	})
	if !res.Valid {
		return nil, dErrors.New(dErrors.CodeValidation, "intake validation failed").WithFields(res.Errors)
	}

	now := requestcontext.Now(ctx)
	d := &models.EvidenceDraft{
		ID:                  id.NewDraftID(),
		TenantID:            tenantID,
		IngestionMethod:     in.Method,
		EvidenceType:        in.EvidenceType,
		DeclaredScope:       in.DeclaredScope,
		BindingMode:         in.Binding.Mode,
		Purpose:             strings.TrimSpace(in.Purpose),
		ExternalReferenceID: strings.TrimSpace(in.ExternalReferenceID),
		Status:              models.StatusDraftCreated,
		CorrelationID:       requestcontext.CorrelationID(ctx),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.resolver.Resolve(ctx, d, in.Binding); err != nil {
		return nil, err
	}

	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist draft")
	}

	s.emit(ctx, audit.EventDraftCreated, d.ID.String(), "", "")
	if s.metrics != nil {
		s.metrics.DraftsCreated.Inc()
	}
	return d, nil
}

// GetDraft returns the draft snapshot for its tenant.
func (s *DraftService) GetDraft(ctx context.Context, draftID id.DraftID) (*models.EvidenceDraft, error) {
	d, err := s.drafts.FindByID(ctx, requestcontext.TenantID(ctx), draftID)
	if err != nil {
		return nil, wrapDraftErr(err)
	}
	return d, nil
}

// AttachPayload merges the payload into the draft and runs the payload
// checkpoint. A passing draft becomes validated; a failing one is
// quarantined with its full field error list — quarantine is a persisted
// state, not an error return, so the rejected submission stays auditable.
func (s *DraftService) AttachPayload(ctx context.Context, draftID id.DraftID, payload map[string]any, attestation string) (*models.EvidenceDraft, error) {
	release, err := s.acquire(ctx, draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	d, err := s.drafts.Execute(ctx, requestcontext.TenantID(ctx), draftID,
		func(d *models.EvidenceDraft) error {
			return d.CanAttachPayload()
		},
		func(d *models.EvidenceDraft) {
			d.ApplyPayload(payload, attestation, now)
			res := validate.Payload(d)
			if res.Valid {
				d.ApplyValidated(now)
			} else {
				d.ApplyQuarantine("payload validation failed", res.Errors, now)
			}
		},
	)
	if err != nil {
		return nil, wrapDraftErr(err)
	}

	if d.Status == models.StatusQuarantined {
		// The quarantine is already durable; a failed trail write still
		// fails the request so the caller knows the trail is behind.
		if err := s.emitCompliance(ctx, audit.EventDraftQuarantined, d.ID.String(), "", d.QuarantineReason); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.DraftsQuarantined.Inc()
		}
	} else {
		s.emit(ctx, audit.EventDraftValidated, d.ID.String(), "", "")
	}
	return d, nil
}

// Abandon discards a non-terminal draft without producing a record.
func (s *DraftService) Abandon(ctx context.Context, draftID id.DraftID) (*models.EvidenceDraft, error) {
	release, err := s.acquire(ctx, draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := requestcontext.Now(ctx)
	d, err := s.drafts.Execute(ctx, requestcontext.TenantID(ctx), draftID,
		func(d *models.EvidenceDraft) error { return d.CanAbandon() },
		func(d *models.EvidenceDraft) { d.ApplyAbandoned(now) },
	)
	if err != nil {
		return nil, wrapDraftErr(err)
	}

	s.emit(ctx, audit.EventDraftAbandoned, d.ID.String(), "", "")
	if s.metrics != nil {
		s.metrics.DraftsAbandoned.Inc()
	}
	return d, nil
}

// Seal converts a validated draft into an immutable record. Sealing is
// atomic from the caller's perspective: either the record is persisted and
// the draft marked sealed, or the draft remains validated and safe to
// retry. A duplicate external reference id yields an idempotency conflict,
// never a second record.
func (s *DraftService) Seal(ctx context.Context, draftID id.DraftID) (*models.EvidenceRecord, error) {
	ctx, span := tracer.Start(ctx, "evidence.seal")
	defer span.End()

	release, err := s.acquire(ctx, draftID)
	if err != nil {
		return nil, err
	}
	defer release()

	tenantID := requestcontext.TenantID(ctx)
	d, err := s.drafts.FindByID(ctx, tenantID, draftID)
	if err != nil {
		return nil, wrapDraftErr(err)
	}
	if err := d.CanSeal(); err != nil {
		return nil, err
	}

	rec, err := buildRecord(d)
	if err != nil {
		return nil, err
	}
	rec.SealedAtUtc = requestcontext.Now(ctx).UTC()
	rec.CorrelationID = requestcontext.CorrelationID(ctx)
	span.SetAttributes(
		attribute.String("evidence.type", string(d.EvidenceType)),
		attribute.String("evidence.draft_id", d.ID.String()),
	)

	// The trail entry for the seal is written ahead of the idempotency
	// reservation: if the trail write fails, nothing has changed and the
	// seal is safe to retry. A conflict event supersedes it for losers.
	if err := s.emitCompliance(ctx, audit.EventDraftSealed, d.ID.String(), rec.ID.String(), ""); err != nil {
		return nil, err
	}

	if err := s.records.SealUnique(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			if auditErr := s.emitCompliance(ctx, audit.EventSealConflict, d.ID.String(), "", d.ExternalReferenceID); auditErr != nil {
				return nil, auditErr
			}
			if s.metrics != nil {
				s.metrics.IdempotencyConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeIdempotencyConflict,
				"a record with this external reference id is already sealed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist sealed record")
	}

	// The record is the source of truth from here on; archiving the draft
	// is best effort and repaired by reconciliation if it fails.
	if _, err := s.drafts.Execute(ctx, tenantID, draftID,
		func(d *models.EvidenceDraft) error { return d.CanSeal() },
		func(d *models.EvidenceDraft) { d.ApplySealed(rec.SealedAtUtc) },
	); err != nil {
		s.logger.ErrorContext(ctx, "sealed record persisted but draft archive failed",
			"draft_id", draftID.String(),
			"record_id", rec.ID.String(),
			"error", err,
		)
	}

	if s.metrics != nil {
		s.metrics.RecordsSealed.Inc()
	}
	return rec, nil
}

// GetRecord returns a sealed record for its tenant.
func (s *DraftService) GetRecord(ctx context.Context, recordID id.RecordID) (*models.EvidenceRecord, error) {
	r, err := s.records.FindByID(ctx, requestcontext.TenantID(ctx), recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record")
	}
	return r, nil
}

// ListRecords returns every sealed record for the tenant.
func (s *DraftService) ListRecords(ctx context.Context) ([]*models.EvidenceRecord, error) {
	out, err := s.records.ListByTenant(ctx, requestcontext.TenantID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list records")
	}
	return out, nil
}

// acquire takes the single-writer lock for a draft. A busy draft is a
// state conflict for the second caller.
func (s *DraftService) acquire(ctx context.Context, draftID id.DraftID) (func(), error) {
	release, err := s.locks.Acquire(ctx, draftID)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, dErrors.New(dErrors.CodeStateConflict,
				"another mutation is in flight for this draft")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "draft lock unavailable")
	}
	return release, nil
}

func (s *DraftService) newEvent(ctx context.Context, action audit.AuditEvent, draftID, recordID, reason string) audit.Event {
	return audit.Event{
		Category:      audit.CategoryOf(action),
		Action:        action,
		Timestamp:     requestcontext.Now(ctx),
		TenantID:      requestcontext.TenantID(ctx),
		DraftID:       draftID,
		RecordID:      recordID,
		Reason:        reason,
		CorrelationID: requestcontext.CorrelationID(ctx),
	}
}

// emit records an operations-grade event. Fail-open: a broken audit sink
// must not block draft work.
func (s *DraftService) emit(ctx context.Context, action audit.AuditEvent, draftID, recordID, reason string) {
	if err := s.auditor.Append(ctx, s.newEvent(ctx, action, draftID, recordID, reason)); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"action", string(action),
			"draft_id", draftID,
			"error", err,
		)
	}
}

// emitCompliance records a compliance-grade event and fails closed: when
// the trail cannot record the event, the error propagates and the calling
// operation must not report success.
func (s *DraftService) emitCompliance(ctx context.Context, action audit.AuditEvent, draftID, recordID, reason string) error {
	if err := s.auditor.Append(ctx, s.newEvent(ctx, action, draftID, recordID, reason)); err != nil {
		s.logger.ErrorContext(ctx, "compliance audit append failed",
			"action", string(action),
			"draft_id", draftID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail write failed")
	}
	return nil
}

func wrapDraftErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeDraftMissing, "draft not found; restart intake to recover")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "draft operation failed")
}
