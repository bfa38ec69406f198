package validate

import (
	"fmt"
	"math"

	"evigate/internal/evidence/models"
	"evigate/internal/evidence/registry"
)

// Payload runs the second checkpoint against a draft that has a payload
// attached. It re-checks purpose and provenance, applies the evidence
// type's field schema, and for composite types validates every row
// independently so the caller can highlight all failures at once.
func Payload(d *models.EvidenceDraft) Result {
	res := newResult()

	checkPurpose(&res, d.Purpose)
	checkProvenance(&res, d.IngestionMethod, d.ExternalReferenceID)

	schema := registry.FieldSchemaFor(d.EvidenceType)
	for _, field := range schema.Required {
		if isEmpty(d.Payload[field]) {
			res.fail(field, fmt.Sprintf("%s is required for %s evidence", field, d.EvidenceType))
		}
	}

	checkFrozenIdentity(&res, d)

	if schema.IsComposite() {
		checkRows(&res, d.Payload, schema.ItemRules)
	}

	return res
}

// checkFrozenIdentity enforces identity-field immutability: once a draft is
// bound, payload writes to the bound entity's identity fields must match
// the frozen snapshot exactly. A divergent value is rejected, never
// silently written.
func checkFrozenIdentity(res *Result, d *models.EvidenceDraft) {
	snap := d.IdentitySnapshot
	if snap == nil || !d.IsBound() {
		return
	}
	frozen := map[string]string{}
	switch snap.EntityType {
	case models.EntitySupplier:
		frozen["supplier_name"] = snap.Name
		frozen["country_code"] = snap.CountryCode
	case models.EntityProduct:
		frozen["product_name"] = snap.Name
		frozen["cn_code"] = snap.Code
	}
	for _, field := range registry.IdentityFieldsFor(snap.EntityType) {
		v, present := d.Payload[field]
		if !present || isEmpty(v) {
			continue
		}
		// Anything other than the exact frozen string is divergent,
		// including non-string values.
		if s, ok := v.(string); !ok || s != frozen[field] {
			res.fail(field, fmt.Sprintf(
				"%s is frozen by the entity binding and cannot be changed through the payload", field))
		}
	}
}

func checkRows(res *Result, payload map[string]any, rules *registry.ItemRules) {
	rows, err := models.DecodeBOMRows(payload)
	if err != nil {
		res.fail("rows", "rows must be a list of bill-of-materials entries")
		return
	}
	if len(rows) == 0 {
		res.fail("rows", "a bill of materials requires at least one row")
		return
	}
	for i, row := range rows {
		field := func(name string) string { return fmt.Sprintf("rows[%d].%s", i, name) }

		if rules.RequireOneIdentifier {
			hasRef := row.EntityReferenceID != ""
			hasCode := row.FreeTextCode != ""
			switch {
			case hasRef && hasCode:
				res.fail(field("identifier"), "a row carries either an entity reference or a free-text code, not both")
			case !hasRef && !hasCode:
				res.fail(field("identifier"), "a row requires an entity reference or a free-text code")
			}
		}
		if rules.RequirePositiveQuantity && (row.Quantity <= 0 || math.IsNaN(row.Quantity) || math.IsInf(row.Quantity, 0)) {
			res.fail(field("quantity"), "quantity must be a finite number greater than zero")
		}
		if rules.RequireKnownUnit && !models.IsValidUnit(row.Unit) {
			res.fail(field("unit"), fmt.Sprintf("unit %q is not a recognised unit of measure", row.Unit))
		}
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
