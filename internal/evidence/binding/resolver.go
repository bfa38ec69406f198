// Package binding translates the caller's chosen relationship between a
// draft and a business entity into durable draft state.
//
// Three modes: bind to an existing entity, bind to a freshly created stub,
// or defer binding for later reconciliation. Once bound, the identity
// snapshot is write-once; the payload checkpoint rejects later edits to
// identity fields.
package binding

import (
	"context"
	"errors"
	"time"

	entitymodels "evigate/internal/entity/models"
	"evigate/internal/evidence/models"
	"evigate/internal/evidence/registry"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
	"evigate/pkg/requestcontext"
)

// EntityGateway is the slice of the adapter gateway's entity sub-interface
// the resolver needs. The contract is checked once at construction.
type EntityGateway interface {
	Create(ctx context.Context, tenantID id.TenantID, entityType models.EntityType, stub entitymodels.Stub) (*entitymodels.Entity, error)
	Read(ctx context.Context, tenantID id.TenantID, entityID id.EntityID) (*entitymodels.Entity, error)
}

// Request carries the binding choice made at intake.
type Request struct {
	Mode models.BindingMode
	// EntityID is required for bind_existing.
	EntityID *id.EntityID
	// Stub is required for create_new.
	Stub *entitymodels.Stub
	// ReconciliationHint is optional free text stored with deferred bindings.
	ReconciliationHint string
}

// confirmAttempts bounds the create-then-confirm read-back loop. The write
// is not trusted until it is read back.
const confirmAttempts = 3

// confirmBaseDelay is the first backoff step; subsequent steps double.
const confirmBaseDelay = 50 * time.Millisecond

// Resolver decides and records how a draft relates to a business entity.
type Resolver struct {
	gateway EntityGateway
}

// New checks the gateway contract and builds a resolver. A missing gateway
// is a fatal configuration error, surfaced immediately.
func New(gateway EntityGateway) (*Resolver, error) {
	if gateway == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "entity gateway is required for binding resolution")
	}
	return &Resolver{gateway: gateway}, nil
}

// Resolve applies the requested binding to the draft. The draft must not
// already carry a frozen identity snapshot.
func (r *Resolver) Resolve(ctx context.Context, d *models.EvidenceDraft, req Request) error {
	if err := d.CanBind(); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	switch req.Mode {
	case models.BindDefer:
		d.ApplyBinding(models.BindDefer, nil, nil, req.ReconciliationHint, now)
		return nil

	case models.BindExisting:
		if req.EntityID == nil || req.EntityID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "bind_existing requires an entity id")
		}
		entity, err := r.gateway.Read(ctx, d.TenantID, *req.EntityID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "bind target entity does not exist")
			}
			return err
		}
		if err := r.checkTarget(d, entity); err != nil {
			return err
		}
		entityID := entity.ID
		d.ApplyBinding(models.BindExisting, &entityID, entity.IdentitySnapshot(), "", now)
		return nil

	case models.BindCreate:
		if req.Stub == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "create_new requires an identity stub")
		}
		target, ok := registry.TargetEntityTypeFor(d.DeclaredScope)
		if !ok {
			return dErrors.New(dErrors.CodeValidation,
				"the declared scope has no bindable entity type")
		}
		entity, err := r.createAndConfirm(ctx, d.TenantID, target, *req.Stub)
		if err != nil {
			return err
		}
		if err := r.checkTarget(d, entity); err != nil {
			return err
		}
		entityID := entity.ID
		d.ApplyBinding(models.BindCreate, &entityID, entity.IdentitySnapshot(), "", now)
		return nil

	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown binding mode")
	}
}

// createAndConfirm creates the entity and reads it back before trusting the
// write. The confirmation read retries with bounded exponential backoff;
// creation without a confirmed read is an adapter contract violation.
func (r *Resolver) createAndConfirm(ctx context.Context, tenantID id.TenantID, target models.EntityType, stub entitymodels.Stub) (*entitymodels.Entity, error) {
	created, err := r.gateway.Create(ctx, tenantID, target, stub)
	if err != nil {
		return nil, err
	}
	if created == nil || created.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeAdapterViolation, "entity gateway returned no entity from create")
	}

	delay := confirmBaseDelay
	var lastErr error
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeInternal, "binding confirmation cancelled")
			case <-time.After(delay):
			}
			delay *= 2
		}

		confirmed, err := r.gateway.Read(ctx, tenantID, created.ID)
		if err == nil {
			if confirmed.ID != created.ID || confirmed.TenantID != tenantID {
				return nil, dErrors.New(dErrors.CodeAdapterViolation,
					"entity gateway confirmation read returned a different entity")
			}
			return confirmed, nil
		}
		if dErrors.HasCode(err, dErrors.CodeNotFound) || errors.Is(err, context.Canceled) {
			lastErr = err
			continue
		}
		lastErr = err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeAdapterViolation,
		"entity creation could not be confirmed by read-back")
}

// checkTarget verifies the bound entity's type is legal for the draft's
// evidence type and declared scope.
func (r *Resolver) checkTarget(d *models.EvidenceDraft, entity *entitymodels.Entity) error {
	if target, ok := registry.TargetEntityTypeFor(d.DeclaredScope); ok && entity.Type != target {
		return dErrors.New(dErrors.CodeValidation,
			"the bound entity's type does not match the declared scope")
	}
	if !registry.IsBindTargetCompatible(d.EvidenceType, entity.Type) {
		return dErrors.New(dErrors.CodeValidation,
			"evidence of this type cannot bind to an entity of type "+string(entity.Type))
	}
	return nil
}
