package validate

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
)

func newDraft(t models.EvidenceType, scope models.Scope, payload map[string]any) *models.EvidenceDraft {
	return &models.EvidenceDraft{
		ID:              id.NewDraftID(),
		TenantID:        id.TenantID(uuid.New()),
		IngestionMethod: models.MethodManualAttestation,
		EvidenceType:    t,
		DeclaredScope:   scope,
		BindingMode:     models.BindDefer,
		Purpose:         okPurpose,
		Payload:         payload,
		Status:          models.StatusPayloadAttached,
		CreatedAt:       time.Now(),
	}
}

func TestPayloadRequiresSchemaFields(t *testing.T) {
	t.Run("supplier master without country fails", func(t *testing.T) {
		d := newDraft(models.TypeSupplierMaster, models.ScopeSupplier,
			map[string]any{"supplier_name": "Acme"})

		res := Payload(d)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "country_code")
		assert.NotContains(t, res.Errors, "supplier_name")
	})

	t.Run("complete supplier master passes", func(t *testing.T) {
		d := newDraft(models.TypeSupplierMaster, models.ScopeSupplier,
			map[string]any{"supplier_name": "Acme", "country_code": "DE"})

		res := Payload(d)
		assert.True(t, res.Valid, "errors: %v", res.Errors)
	})

	t.Run("empty string counts as missing", func(t *testing.T) {
		d := newDraft(models.TypeCertificate, models.ScopeOrganisation,
			map[string]any{"certificate_kind": "ISO14001", "issuer_name": ""})

		res := Payload(d)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "issuer_name")
	})
}

func TestPayloadRechecksProvenance(t *testing.T) {
	d := newDraft(models.TypeSupplierMaster, models.ScopeSupplier,
		map[string]any{"supplier_name": "Acme", "country_code": "DE"})
	d.IngestionMethod = models.MethodERPExport
	d.ExternalReferenceID = ""

	res := Payload(d)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors, "external_reference_id")
}

func bomDraft(rows []models.BOMRow) *models.EvidenceDraft {
	return newDraft(models.TypeBillOfMaterials, models.ScopeProduct,
		map[string]any{"rows": rows})
}

func TestBillOfMaterialsRows(t *testing.T) {
	t.Run("zero rows always fails", func(t *testing.T) {
		res := Payload(bomDraft(nil))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows")
	})

	t.Run("valid rows pass", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{EntityReferenceID: uuid.NewString(), Quantity: 2, Unit: "KG"},
			{FreeTextCode: "STEEL-01", Quantity: 0.5, Unit: "T"},
		}))
		assert.True(t, res.Valid, "errors: %v", res.Errors)
	})

	t.Run("both identifier sources is invalid", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{EntityReferenceID: uuid.NewString(), FreeTextCode: "STEEL-01", Quantity: 1, Unit: "KG"},
		}))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows[0].identifier")
	})

	t.Run("no identifier source is invalid", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{Quantity: 1, Unit: "KG"},
		}))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows[0].identifier")
	})

	t.Run("zero quantity fails regardless of identifier", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{EntityReferenceID: uuid.NewString(), Quantity: 0, Unit: "KG"},
		}))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows[0].quantity")
	})

	t.Run("non-finite quantity fails at the checkpoint", func(t *testing.T) {
		for name, q := range map[string]float64{
			"NaN":  math.NaN(),
			"+Inf": math.Inf(1),
			"-Inf": math.Inf(-1),
		} {
			res := Payload(bomDraft([]models.BOMRow{
				{EntityReferenceID: uuid.NewString(), Quantity: q, Unit: "KG"},
			}))
			require.False(t, res.Valid, name)
			assert.Contains(t, res.Errors, "rows[0].quantity", name)
		}
	})

	t.Run("unknown unit fails", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{FreeTextCode: "X", Quantity: 1, Unit: "BUSHEL"},
		}))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows[0].unit")
	})

	t.Run("reports every failing row, not just the first", func(t *testing.T) {
		res := Payload(bomDraft([]models.BOMRow{
			{FreeTextCode: "A", Quantity: 0, Unit: "KG"},
			{FreeTextCode: "B", Quantity: 1, Unit: "KG"},
			{Quantity: 1, Unit: "NOPE"},
		}))
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "rows[0].quantity")
		assert.Contains(t, res.Errors, "rows[2].identifier")
		assert.Contains(t, res.Errors, "rows[2].unit")
		assert.NotContains(t, res.Errors, "rows[1].quantity")
	})

	t.Run("rows as decoded JSON validate the same", func(t *testing.T) {
		d := newDraft(models.TypeBillOfMaterials, models.ScopeProduct, map[string]any{
			"rows": []any{
				map[string]any{"free_text_code": "ALU-7", "quantity": 3.5, "unit": "KG"},
			},
		})
		res := Payload(d)
		assert.True(t, res.Valid, "errors: %v", res.Errors)
	})
}

func TestFrozenIdentityFields(t *testing.T) {
	entityID := id.NewEntityID()
	d := newDraft(models.TypeSupplierMaster, models.ScopeSupplier,
		map[string]any{"supplier_name": "Acme GmbH", "country_code": "DE"})
	d.BindingMode = models.BindExisting
	d.BoundEntityID = &entityID
	d.IdentitySnapshot = &models.IdentitySnapshot{
		EntityType:  models.EntitySupplier,
		Name:        "Acme GmbH",
		CountryCode: "DE",
	}

	t.Run("matching payload passes", func(t *testing.T) {
		res := Payload(d)
		assert.True(t, res.Valid, "errors: %v", res.Errors)
	})

	t.Run("diverging name is rejected, never silently written", func(t *testing.T) {
		d.Payload["supplier_name"] = "Acme Ltd"
		defer func() { d.Payload["supplier_name"] = "Acme GmbH" }()

		res := Payload(d)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "supplier_name")
	})

	t.Run("non-string value is divergent, not exempt", func(t *testing.T) {
		d.Payload["supplier_name"] = 12345
		defer func() { d.Payload["supplier_name"] = "Acme GmbH" }()

		res := Payload(d)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "supplier_name")
	})

	t.Run("diverging country is rejected", func(t *testing.T) {
		d.Payload["country_code"] = "FR"
		defer func() { d.Payload["country_code"] = "DE" }()

		res := Payload(d)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors, "country_code")
	})
}
