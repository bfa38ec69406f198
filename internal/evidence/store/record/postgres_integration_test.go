//go:build integration

package record

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
	"evigate/pkg/testutil/containers"
)

func newRecord(tenantID id.TenantID, extRef string) *models.EvidenceRecord {
	return &models.EvidenceRecord{
		ID:                  id.NewRecordID(),
		TenantID:            tenantID,
		DraftID:             id.NewDraftID(),
		IngestionMethod:     models.MethodERPExport,
		EvidenceType:        models.TypeSupplierMaster,
		DeclaredScope:       models.ScopeSupplier,
		BindingMode:         models.BindDefer,
		Purpose:             "integration coverage for the sealing reservation",
		Payload:             map[string]any{"supplier_name": "Acme", "country_code": "DE"},
		ExternalReferenceID: extRef,
		PayloadHash:         "sha256:test",
		MetadataHash:        "sha256:test",
		HashScope:           models.HashScope,
		SealedAtUtc:         time.Now().UTC(),
		ReviewStatus:        models.ReviewNotReviewed,
		TrustLevel:          models.TrustHigh,
		ReconciliationStatus: models.ReconciliationUnbound,
	}
}

func TestPostgresSealUnique(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgres(pg.Pool)
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	t.Run("round trip", func(t *testing.T) {
		rec := newRecord(tenantID, "RT-001")
		if err := store.SealUnique(ctx, rec); err != nil {
			t.Fatalf("seal: %v", err)
		}
		if rec.DisplayID == "" {
			t.Fatalf("expected display id assigned on seal")
		}

		found, err := store.FindByID(ctx, tenantID, rec.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if found.PayloadHash != rec.PayloadHash || found.DisplayID != rec.DisplayID {
			t.Fatalf("record did not round trip: %+v", found)
		}
	})

	t.Run("concurrent duplicates yield one record", func(t *testing.T) {
		const writers = 8
		var wg sync.WaitGroup
		results := make(chan error, writers)

		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.SealUnique(ctx, newRecord(tenantID, "DUP-001"))
			}()
		}
		wg.Wait()
		close(results)

		var won, lost int
		for err := range results {
			switch {
			case err == nil:
				won++
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				lost++
			default:
				t.Fatalf("unexpected seal error: %v", err)
			}
		}
		if won != 1 || lost != writers-1 {
			t.Fatalf("expected exactly one winner, got %d winners and %d losers", won, lost)
		}
	})

	t.Run("tenant isolation", func(t *testing.T) {
		rec := newRecord(tenantID, "ISO-001")
		if err := store.SealUnique(ctx, rec); err != nil {
			t.Fatalf("seal: %v", err)
		}

		// The same reference under another tenant is not a conflict.
		other := id.TenantID(uuid.New())
		if err := store.SealUnique(ctx, newRecord(other, "ISO-001")); err != nil {
			t.Fatalf("expected no cross-tenant conflict, got %v", err)
		}

		if _, err := store.FindByID(ctx, other, rec.ID); !errors.Is(err, sentinel.ErrNotFound) {
			t.Fatalf("expected not found across tenants, got %v", err)
		}
	})

	t.Run("records without external reference never conflict", func(t *testing.T) {
		for range 3 {
			if err := store.SealUnique(ctx, newRecord(tenantID, "")); err != nil {
				t.Fatalf("seal without reference: %v", err)
			}
		}
	})

	t.Run("list is tenant scoped", func(t *testing.T) {
		records, err := store.ListByTenant(ctx, tenantID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, r := range records {
			if r.TenantID != tenantID {
				t.Fatalf("listed record for wrong tenant: %s", r.ID.String())
			}
		}
	})
}
