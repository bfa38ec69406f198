package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

func newDraft(tenantID id.TenantID) *models.EvidenceDraft {
	now := time.Now()
	return &models.EvidenceDraft{
		ID:              id.NewDraftID(),
		TenantID:        tenantID,
		IngestionMethod: models.MethodManualAttestation,
		EvidenceType:    models.TypeSupplierMaster,
		DeclaredScope:   models.ScopeSupplier,
		BindingMode:     models.BindDefer,
		Purpose:         "store coverage for the draft lifecycle",
		Status:          models.StatusDraftCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestInMemoryDraftStore(t *testing.T) {
	ctx := context.Background()
	tenantID := id.TenantID(uuid.New())

	t.Run("create then find", func(t *testing.T) {
		store := NewInMemory()
		d := newDraft(tenantID)
		require.NoError(t, store.Create(ctx, d))

		found, err := store.FindByID(ctx, tenantID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, found.ID)
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		store := NewInMemory()
		d := newDraft(tenantID)
		require.NoError(t, store.Create(ctx, d))
		assert.ErrorIs(t, store.Create(ctx, d), sentinel.ErrConflict)
	})

	t.Run("wrong tenant reads nothing", func(t *testing.T) {
		store := NewInMemory()
		d := newDraft(tenantID)
		require.NoError(t, store.Create(ctx, d))

		_, err := store.FindByID(ctx, id.TenantID(uuid.New()), d.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("returned drafts are detached copies", func(t *testing.T) {
		store := NewInMemory()
		d := newDraft(tenantID)
		d.Payload = map[string]any{"supplier_name": "Acme"}
		require.NoError(t, store.Create(ctx, d))

		found, err := store.FindByID(ctx, tenantID, d.ID)
		require.NoError(t, err)
		found.Payload["supplier_name"] = "tampered"
		found.Status = models.StatusSealed

		again, err := store.FindByID(ctx, tenantID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", again.Payload["supplier_name"])
		assert.Equal(t, models.StatusDraftCreated, again.Status)
	})

	t.Run("execute persists only when validate passes", func(t *testing.T) {
		store := NewInMemory()
		d := newDraft(tenantID)
		require.NoError(t, store.Create(ctx, d))

		boom := errors.New("rejected")
		_, err := store.Execute(ctx, tenantID, d.ID,
			func(*models.EvidenceDraft) error { return boom },
			func(d *models.EvidenceDraft) { d.Status = models.StatusAbandoned },
		)
		assert.ErrorIs(t, err, boom)

		found, err := store.FindByID(ctx, tenantID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDraftCreated, found.Status)

		updated, err := store.Execute(ctx, tenantID, d.ID,
			func(*models.EvidenceDraft) error { return nil },
			func(d *models.EvidenceDraft) { d.Status = models.StatusAbandoned },
		)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAbandoned, updated.Status)
	})

	t.Run("execute on a missing draft", func(t *testing.T) {
		store := NewInMemory()
		_, err := store.Execute(ctx, tenantID, id.NewDraftID(),
			func(*models.EvidenceDraft) error { return nil },
			func(*models.EvidenceDraft) {},
		)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
