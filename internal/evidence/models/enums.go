package models

import (
	"fmt"

	dErrors "evigate/pkg/domain-errors"
)

// Closed enumerations for the intake domain. Parsing an identifier outside
// the enumeration is a hard configuration error, never silently permissive.

// Method is the channel a piece of evidence arrived through.
type Method string

const (
	MethodManualAttestation Method = "manual_attestation"
	MethodFileUpload        Method = "file_upload"
	MethodERPExport         Method = "erp_export"
	MethodAPIDigest         Method = "api_digest"
)

var methods = map[Method]struct{}{
	MethodManualAttestation: {},
	MethodFileUpload:        {},
	MethodERPExport:         {},
	MethodAPIDigest:         {},
}

func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := methods[m]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown ingestion method %q", s))
	}
	return m, nil
}

// TrustLevel is derived from the ingestion method and is never
// user-settable: a human attestation carries less weight than a
// machine-originated export.
type TrustLevel string

const (
	TrustLow    TrustLevel = "low"
	TrustMedium TrustLevel = "medium"
	TrustHigh   TrustLevel = "high"
)

// TrustLevel returns the trust class for evidence arriving via m.
func (m Method) TrustLevel() TrustLevel {
	switch m {
	case MethodERPExport, MethodAPIDigest:
		return TrustHigh
	case MethodFileUpload:
		return TrustMedium
	default:
		return TrustLow
	}
}

// RequiresExternalReference reports whether submissions via m must carry an
// external reference id. That id doubles as the sealing idempotency key.
func (m Method) RequiresExternalReference() bool {
	return m == MethodERPExport || m == MethodAPIDigest
}

// EvidenceType classifies what a submission asserts.
type EvidenceType string

const (
	TypeSupplierMaster  EvidenceType = "supplier_master"
	TypeProductMaster   EvidenceType = "product_master"
	TypeBillOfMaterials EvidenceType = "bill_of_materials"
	TypeCertificate     EvidenceType = "certificate"
	TypeEmissionsDigest EvidenceType = "emissions_digest"
)

var evidenceTypes = map[EvidenceType]struct{}{
	TypeSupplierMaster:  {},
	TypeProductMaster:   {},
	TypeBillOfMaterials: {},
	TypeCertificate:     {},
	TypeEmissionsDigest: {},
}

func ParseEvidenceType(s string) (EvidenceType, error) {
	t := EvidenceType(s)
	if _, ok := evidenceTypes[t]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown evidence type %q", s))
	}
	return t, nil
}

// Scope declares what slice of the business the evidence describes.
type Scope string

const (
	ScopeSupplier     Scope = "supplier"
	ScopeProduct      Scope = "product"
	ScopeOrganisation Scope = "organisation"
)

var scopes = map[Scope]struct{}{
	ScopeSupplier:     {},
	ScopeProduct:      {},
	ScopeOrganisation: {},
}

func ParseScope(s string) (Scope, error) {
	sc := Scope(s)
	if _, ok := scopes[sc]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown scope %q", s))
	}
	return sc, nil
}

// EntityType is the kind of business entity evidence can bind to.
type EntityType string

const (
	EntitySupplier EntityType = "supplier"
	EntityProduct  EntityType = "product"
)

// BindingMode is the user's chosen relationship between the draft and a
// business entity.
type BindingMode string

const (
	BindExisting BindingMode = "bind_existing"
	BindCreate   BindingMode = "create_new"
	BindDefer    BindingMode = "defer"
)

var bindingModes = map[BindingMode]struct{}{
	BindExisting: {},
	BindCreate:   {},
	BindDefer:    {},
}

func ParseBindingMode(s string) (BindingMode, error) {
	b := BindingMode(s)
	if _, ok := bindingModes[b]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown binding mode %q", s))
	}
	return b, nil
}

// ReconciliationStatus tracks whether a sealed record is bound to an entity.
type ReconciliationStatus string

const (
	ReconciliationBound        ReconciliationStatus = "bound"
	ReconciliationUnbound      ReconciliationStatus = "unbound"
	ReconciliationPendingMatch ReconciliationStatus = "pending_match"
)

// RowMatchStatus tracks per-row reconciliation for composite evidence.
type RowMatchStatus string

const (
	RowBound        RowMatchStatus = "bound"
	RowPendingMatch RowMatchStatus = "pending_match"
)

// ReviewStatus is owned by the downstream review process; this subsystem
// only ever writes the initial value.
type ReviewStatus string

const ReviewNotReviewed ReviewStatus = "not_reviewed"

// Unit is the closed enumeration of measurement units a bill-of-materials
// row may use.
type Unit string

const (
	UnitKilogram   Unit = "KG"
	UnitTonne      Unit = "T"
	UnitLitre      Unit = "L"
	UnitCubicMetre Unit = "M3"
	UnitMegawatt   Unit = "MWH"
	UnitPieces     Unit = "PCS"
)

var units = map[Unit]struct{}{
	UnitKilogram:   {},
	UnitTonne:      {},
	UnitLitre:      {},
	UnitCubicMetre: {},
	UnitMegawatt:   {},
	UnitPieces:     {},
}

// IsValidUnit reports whether s is a known unit of measure.
func IsValidUnit(s string) bool {
	_, ok := units[Unit(s)]
	return ok
}
