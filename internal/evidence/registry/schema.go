package registry

import (
	"fmt"

	"evigate/internal/evidence/models"
)

// FieldSchema is the per-evidence-type payload contract. Composite types
// (bill of materials) additionally carry ItemRules applied to every row.
type FieldSchema struct {
	Required  []string
	Optional  []string
	ItemRules *ItemRules
}

// ItemRules constrains every row of a composite payload.
type ItemRules struct {
	// RequireOneIdentifier enforces the strict XOR between an entity
	// reference and a free-text code.
	RequireOneIdentifier bool
	// RequirePositiveQuantity rejects rows with quantity <= 0.
	RequirePositiveQuantity bool
	// RequireKnownUnit rejects units outside the closed enumeration.
	RequireKnownUnit bool
}

// IsComposite reports whether payloads of this type are validated row by row.
func (s FieldSchema) IsComposite() bool { return s.ItemRules != nil }

var fieldSchemas = map[models.EvidenceType]FieldSchema{
	models.TypeSupplierMaster: {
		Required: []string{"supplier_name", "country_code"},
		Optional: []string{"vat_number", "contact_email", "address"},
	},
	models.TypeProductMaster: {
		Required: []string{"product_name", "cn_code"},
		Optional: []string{"description", "default_unit"},
	},
	models.TypeBillOfMaterials: {
		Required: []string{"rows"},
		ItemRules: &ItemRules{
			RequireOneIdentifier:    true,
			RequirePositiveQuantity: true,
			RequireKnownUnit:        true,
		},
	},
	models.TypeCertificate: {
		Required: []string{"certificate_kind", "issuer_name"},
		Optional: []string{"valid_from", "valid_until", "attachment_name", "attachment_size", "attachment_sha256"},
	},
	models.TypeEmissionsDigest: {
		Required: []string{"digest_sha256", "reporting_period"},
		Optional: []string{"source_system"},
	},
}

// FieldSchemaFor returns the payload contract for t.
func FieldSchemaFor(t models.EvidenceType) FieldSchema {
	schema, ok := fieldSchemas[t]
	if !ok {
		panic(fmt.Sprintf("registry: no field schema for evidence type %q", t))
	}
	return schema
}

// identityFields maps an entity type to the payload fields that become
// read-only once an identity snapshot is frozen.
var identityFields = map[models.EntityType][]string{
	models.EntitySupplier: {"supplier_name", "country_code"},
	models.EntityProduct:  {"product_name", "cn_code"},
}

// IdentityFieldsFor returns the payload fields frozen by a binding to the
// given entity type.
func IdentityFieldsFor(t models.EntityType) []string {
	return identityFields[t]
}
