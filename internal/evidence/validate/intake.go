// Package validate implements the two pure validation checkpoints of the
// draft lifecycle: intake (before a draft exists) and payload (before
// sealing).
//
// Both checkpoints are side-effect free and never fail for expected invalid
// input; they return a structured Result with every failing field so the
// caller can surface all of them at once. Unknown enum identifiers are
// rejected upstream at parse time.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"evigate/internal/evidence/models"
	"evigate/internal/evidence/registry"
)

// MinPurposeLength is the minimum length of the purpose/justification
// string accompanying every submission.
const MinPurposeLength = 20

// MinExternalReferenceLength applies when the ingestion method requires an
// external reference id.
const MinExternalReferenceLength = 3

// Result is the outcome of a validation checkpoint.
type Result struct {
	Valid  bool
	Errors map[string]string
}

func newResult() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

func (r *Result) fail(field, message string) {
	r.Valid = false
	if _, exists := r.Errors[field]; !exists {
		r.Errors[field] = message
	}
}

// IntakeCandidate is the submission under intake validation. Enums are
// already parsed; the checkpoint decides legality, not syntax.
type IntakeCandidate struct {
	Method              models.Method
	EvidenceType        models.EvidenceType
	DeclaredScope       models.Scope
	BindingMode         models.BindingMode
	Purpose             string
	ExternalReferenceID string
	HasBoundEntity      bool
}

// Intake runs the first checkpoint. On failure no draft may be persisted.
func Intake(c IntakeCandidate) Result {
	res := newResult()

	if c.Method == "" {
		res.fail("ingestion_method", "ingestion method is required")
	}
	if c.EvidenceType == "" {
		res.fail("evidence_type", "evidence type is required")
	}
	if c.DeclaredScope == "" {
		res.fail("declared_scope", "declared scope is required")
	}
	if !res.Valid {
		return res
	}

	if !registry.IsScopeCompatible(c.EvidenceType, c.DeclaredScope) {
		res.fail("declared_scope", fmt.Sprintf(
			"scope %q is not compatible with evidence type %q", c.DeclaredScope, c.EvidenceType))
	}
	if !registry.IsMethodCompatible(c.EvidenceType, c.Method) {
		res.fail("ingestion_method", fmt.Sprintf(
			"ingestion method %q is not compatible with evidence type %q", c.Method, c.EvidenceType))
	}

	checkPurpose(&res, c.Purpose)
	checkProvenance(&res, c.Method, c.ExternalReferenceID)

	if _, hasTarget := registry.TargetEntityTypeFor(c.DeclaredScope); hasTarget {
		if (c.BindingMode == models.BindExisting || c.BindingMode == models.BindCreate) && !c.HasBoundEntity {
			res.fail("bound_entity_id", "a target entity is required for this scope and binding mode")
		}
	}

	return res
}

func checkPurpose(res *Result, purpose string) {
	if utf8.RuneCountInString(strings.TrimSpace(purpose)) < MinPurposeLength {
		res.fail("purpose", fmt.Sprintf(
			"purpose must explain the submission in at least %d characters", MinPurposeLength))
	}
}

func checkProvenance(res *Result, m models.Method, externalRef string) {
	if !m.RequiresExternalReference() {
		return
	}
	ref := strings.TrimSpace(externalRef)
	if ref == "" {
		res.fail("external_reference_id", fmt.Sprintf(
			"ingestion method %q requires an external reference id", m))
		return
	}
	if len(ref) < MinExternalReferenceLength {
		res.fail("external_reference_id", fmt.Sprintf(
			"external reference id must be at least %d characters", MinExternalReferenceLength))
	}
}
