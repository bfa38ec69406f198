package handler

import (
	"strings"

	entitymodels "evigate/internal/entity/models"
	"evigate/internal/evidence/binding"
	"evigate/internal/evidence/models"
	"evigate/internal/evidence/service"
	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
)

// IntakeRequest is the HTTP request body for POST /v1/drafts.
type IntakeRequest struct {
	IngestionMethod     string          `json:"ingestion_method"`
	EvidenceType        string          `json:"evidence_type"`
	DeclaredScope       string          `json:"declared_scope"`
	Purpose             string          `json:"purpose"`
	ExternalReferenceID string          `json:"external_reference_id"`
	Binding             *BindingRequest `json:"binding"`

	// Parsed values (populated by Validate)
	parsed service.IntakeInput
}

// BindingRequest is the binding portion of an intake submission.
type BindingRequest struct {
	Mode               string      `json:"mode"`
	EntityID           string      `json:"entity_id,omitempty"`
	ReconciliationHint string      `json:"reconciliation_hint,omitempty"`
	Stub               *StubRequest `json:"stub,omitempty"`
}

// StubRequest is the minimal identity for create_new bindings.
type StubRequest struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Validate parses the closed enumerations and assembles the service input.
// Identifier syntax fails here; legality of the combination is decided by
// the intake checkpoint.
func (r *IntakeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	method, err := models.ParseMethod(strings.TrimSpace(r.IngestionMethod))
	if err != nil {
		return err
	}
	evidenceType, err := models.ParseEvidenceType(strings.TrimSpace(r.EvidenceType))
	if err != nil {
		return err
	}
	scope, err := models.ParseScope(strings.TrimSpace(r.DeclaredScope))
	if err != nil {
		return err
	}

	bindingReq := binding.Request{Mode: models.BindDefer}
	if r.Binding != nil {
		mode, err := models.ParseBindingMode(strings.TrimSpace(r.Binding.Mode))
		if err != nil {
			return err
		}
		bindingReq.Mode = mode
		bindingReq.ReconciliationHint = strings.TrimSpace(r.Binding.ReconciliationHint)

		if r.Binding.EntityID != "" {
			entityID, err := id.ParseEntityID(r.Binding.EntityID)
			if err != nil {
				return err
			}
			bindingReq.EntityID = &entityID
		}
		if r.Binding.Stub != nil {
			bindingReq.Stub = &entitymodels.Stub{
				Name:        strings.TrimSpace(r.Binding.Stub.Name),
				CountryCode: strings.TrimSpace(r.Binding.Stub.CountryCode),
				Code:        strings.TrimSpace(r.Binding.Stub.Code),
			}
		}
	}

	r.parsed = service.IntakeInput{
		Method:              method,
		EvidenceType:        evidenceType,
		DeclaredScope:       scope,
		Binding:             bindingReq,
		Purpose:             r.Purpose,
		ExternalReferenceID: r.ExternalReferenceID,
	}
	return nil
}

// ParsedInput returns the validated service input.
func (r *IntakeRequest) ParsedInput() service.IntakeInput {
	return r.parsed
}

// PayloadRequest is the HTTP request body for POST /v1/drafts/{id}/payload.
type PayloadRequest struct {
	Payload          map[string]any `json:"payload"`
	AttestationNotes string         `json:"attestation_notes,omitempty"`
}

func (r *PayloadRequest) Validate() error {
	if r == nil || len(r.Payload) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	return nil
}
