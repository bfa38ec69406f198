// Package record persists sealed evidence records. Records are immutable:
// the store exposes insert and read, never update.
package record

import (
	"context"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
)

// Store is the persistence contract for sealed records.
type Store interface {
	// SealUnique persists the record and assigns its display id. When the
	// record carries an external reference id, the insert atomically
	// reserves (tenant_id, external_reference_id); a duplicate returns
	// sentinel.ErrAlreadyUsed and persists nothing. This reservation is the
	// one place true mutual exclusion is required and it lives in the
	// persistence layer, not in client-side locking.
	SealUnique(ctx context.Context, r *models.EvidenceRecord) error

	FindByID(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.EvidenceRecord, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.EvidenceRecord, error)
}
