// Package service orchestrates the business-entity directory. It satisfies
// the entity sub-interface the binding resolver consumes: create, read,
// search per bindable type.
package service

import (
	"context"
	"errors"
	"log/slog"

	"evigate/internal/entity/models"
	"evigate/internal/entity/store"
	evidence "evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/platform/audit"
	"evigate/pkg/platform/sentinel"
	"evigate/pkg/requestcontext"
)

// EntityService exposes the directory to handlers and to the binding
// resolver.
type EntityService struct {
	entities store.EntityStore
	auditor  audit.Store
	logger   *slog.Logger
}

// Option configures the EntityService.
type Option func(*EntityService)

// WithAuditor attaches an audit sink. Defaults to an in-memory buffer.
func WithAuditor(a audit.Store) Option {
	return func(s *EntityService) { s.auditor = a }
}

func New(entities store.EntityStore, logger *slog.Logger, opts ...Option) (*EntityService, error) {
	// The store contract is checked once at construction, not probed before
	// every call.
	if entities == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "entity store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &EntityService{entities: entities, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.auditor == nil {
		s.auditor = audit.NewMemoryStore()
	}
	return s, nil
}

// Create validates an identity stub and persists the entity.
func (s *EntityService) Create(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, stub models.Stub) (*models.Entity, error) {
	e, err := models.NewEntity(tenantID, entityType, stub, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.entities.Create(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an entity with this identity already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create entity")
	}

	// Stub creation is operations-grade: a broken audit sink must not
	// block the directory.
	if err := s.auditor.Append(ctx, audit.Event{
		Category:      audit.CategoryOf(audit.EventEntityStubCreated),
		Action:        audit.EventEntityStubCreated,
		Timestamp:     requestcontext.Now(ctx),
		TenantID:      tenantID,
		EntityID:      e.ID.String(),
		Reason:        string(e.Type),
		CorrelationID: requestcontext.CorrelationID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit append failed",
			"action", string(audit.EventEntityStubCreated),
			"entity_id", e.ID.String(),
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "entity created",
		"entity_id", e.ID.String(),
		"entity_type", string(e.Type),
		"correlation_id", requestcontext.CorrelationID(ctx),
	)
	return e, nil
}

// Read returns the entity or a not-found error. Tenant scoping is enforced
// by the store.
func (s *EntityService) Read(ctx context.Context, tenantID id.TenantID, entityID id.EntityID) (*models.Entity, error) {
	if entityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "entity id is required")
	}
	e, err := s.entities.FindByID(ctx, tenantID, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read entity")
	}
	return e, nil
}

// Search returns entities of the given type matching the query substring.
func (s *EntityService) Search(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, query string) ([]*models.Entity, error) {
	out, err := s.entities.Search(ctx, tenantID, entityType, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "entity search failed")
	}
	return out, nil
}
