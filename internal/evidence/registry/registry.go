// Package registry holds the static compatibility tables that decide which
// (ingestion method, evidence type, scope, binding target) combinations are
// legal, and the per-type field schemas.
//
// Legality is expressed as table lookups rather than behavior on types so
// the matrix stays auditable and compliance rules can change without
// touching validation code. The tables are fixed at deploy time and never
// mutated at runtime. Lookups with identifiers outside the closed
// enumerations are programmer errors and panic; expected-invalid input is
// rejected earlier, at parse time.
package registry

import (
	"fmt"

	"evigate/internal/evidence/models"
)

// CompatibilityRule is one immutable row of the legality matrix.
type CompatibilityRule struct {
	AllowedScopes      map[models.Scope]struct{}
	AllowedMethods     map[models.Method]struct{}
	AllowedBindTargets map[models.EntityType]struct{}
}

var compatibility = map[models.EvidenceType]CompatibilityRule{
	models.TypeSupplierMaster: {
		AllowedScopes:      scopeSet(models.ScopeSupplier),
		AllowedMethods:     methodSet(models.MethodManualAttestation, models.MethodFileUpload, models.MethodERPExport),
		AllowedBindTargets: targetSet(models.EntitySupplier),
	},
	models.TypeProductMaster: {
		AllowedScopes:      scopeSet(models.ScopeProduct),
		AllowedMethods:     methodSet(models.MethodManualAttestation, models.MethodERPExport),
		AllowedBindTargets: targetSet(models.EntityProduct),
	},
	models.TypeBillOfMaterials: {
		AllowedScopes:      scopeSet(models.ScopeProduct),
		AllowedMethods:     methodSet(models.MethodManualAttestation, models.MethodFileUpload, models.MethodERPExport),
		AllowedBindTargets: targetSet(models.EntityProduct),
	},
	models.TypeCertificate: {
		AllowedScopes:      scopeSet(models.ScopeSupplier, models.ScopeProduct, models.ScopeOrganisation),
		AllowedMethods:     methodSet(models.MethodManualAttestation, models.MethodFileUpload),
		AllowedBindTargets: targetSet(models.EntitySupplier, models.EntityProduct),
	},
	models.TypeEmissionsDigest: {
		AllowedScopes:      scopeSet(models.ScopeProduct, models.ScopeOrganisation),
		AllowedMethods:     methodSet(models.MethodAPIDigest, models.MethodERPExport),
		AllowedBindTargets: targetSet(models.EntityProduct),
	},
}

// scopeTargets maps each scope to the entity type evidence in that scope
// binds to. Organisation-scoped evidence has no bindable target.
var scopeTargets = map[models.Scope]models.EntityType{
	models.ScopeSupplier: models.EntitySupplier,
	models.ScopeProduct:  models.EntityProduct,
}

// RuleFor returns the compatibility row for t.
func RuleFor(t models.EvidenceType) CompatibilityRule {
	rule, ok := compatibility[t]
	if !ok {
		panic(fmt.Sprintf("registry: no compatibility rule for evidence type %q", t))
	}
	return rule
}

// IsScopeCompatible reports whether scope is legal for evidence type t.
func IsScopeCompatible(t models.EvidenceType, scope models.Scope) bool {
	_, ok := RuleFor(t).AllowedScopes[scope]
	return ok
}

// IsMethodCompatible reports whether evidence of type t may arrive via m.
func IsMethodCompatible(t models.EvidenceType, m models.Method) bool {
	_, ok := RuleFor(t).AllowedMethods[m]
	return ok
}

// AllowedScopesFor returns the scope set legal for t.
func AllowedScopesFor(t models.EvidenceType) []models.Scope {
	rule := RuleFor(t)
	out := make([]models.Scope, 0, len(rule.AllowedScopes))
	for s := range rule.AllowedScopes {
		out = append(out, s)
	}
	return out
}

// AllowedEvidenceTypesFor returns every evidence type legal for method m.
func AllowedEvidenceTypesFor(m models.Method) []models.EvidenceType {
	var out []models.EvidenceType
	for t, rule := range compatibility {
		if _, ok := rule.AllowedMethods[m]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TargetEntityTypeFor returns the entity type evidence in the given scope
// binds to, or false when the scope has no bindable target.
func TargetEntityTypeFor(scope models.Scope) (models.EntityType, bool) {
	t, ok := scopeTargets[scope]
	return t, ok
}

// IsBindTargetCompatible reports whether evidence of type t may bind to an
// entity of the given type.
func IsBindTargetCompatible(t models.EvidenceType, target models.EntityType) bool {
	_, ok := RuleFor(t).AllowedBindTargets[target]
	return ok
}

// EvidenceTypes returns every registered evidence type.
func EvidenceTypes() []models.EvidenceType {
	out := make([]models.EvidenceType, 0, len(compatibility))
	for t := range compatibility {
		out = append(out, t)
	}
	return out
}

func scopeSet(ss ...models.Scope) map[models.Scope]struct{} {
	m := make(map[models.Scope]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

func methodSet(ms ...models.Method) map[models.Method]struct{} {
	m := make(map[models.Method]struct{}, len(ms))
	for _, x := range ms {
		m[x] = struct{}{}
	}
	return m
}

func targetSet(ts ...models.EntityType) map[models.EntityType]struct{} {
	m := make(map[models.EntityType]struct{}, len(ts))
	for _, t := range ts {
		m[t] = struct{}{}
	}
	return m
}
