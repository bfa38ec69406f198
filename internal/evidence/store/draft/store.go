// Package draft persists evidence drafts between intake and sealing.
package draft

import (
	"context"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
)

// Store is the persistence contract for drafts. Implementations return
// sentinel errors for infrastructure facts; services translate them.
type Store interface {
	// Create persists a new draft. The draft id must not already exist.
	Create(ctx context.Context, d *models.EvidenceDraft) error

	// FindByID returns the draft, tenant-scoped. sentinel.ErrNotFound when
	// absent. Draft identity is recoverable across process restarts through
	// this read.
	FindByID(ctx context.Context, tenantID id.TenantID, draftID id.DraftID) (*models.EvidenceDraft, error)

	// Execute atomically loads the draft, runs validate, and if it passes
	// runs mutate and persists the result. The store holds its lock (mutex
	// or FOR UPDATE) across both steps so validate-then-mutate cannot race.
	Execute(ctx context.Context, tenantID id.TenantID, draftID id.DraftID,
		validate func(*models.EvidenceDraft) error,
		mutate func(*models.EvidenceDraft)) (*models.EvidenceDraft, error)
}
