package handler

import (
	"evigate/internal/evidence/models"
)

// DraftResponse wraps a draft snapshot with the request's correlation id.
type DraftResponse struct {
	Draft         *models.EvidenceDraft `json:"draft"`
	CorrelationID string                `json:"correlation_id"`
}

// FromDraft converts a domain draft to an HTTP response.
func FromDraft(d *models.EvidenceDraft, correlationID string) *DraftResponse {
	return &DraftResponse{Draft: d, CorrelationID: correlationID}
}

// RecordResponse wraps a sealed record with the request's correlation id.
type RecordResponse struct {
	Record        *models.EvidenceRecord `json:"record"`
	CorrelationID string                 `json:"correlation_id"`
}

// FromRecord converts a sealed record to an HTTP response.
func FromRecord(r *models.EvidenceRecord, correlationID string) *RecordResponse {
	return &RecordResponse{Record: r, CorrelationID: correlationID}
}

// RecordListResponse is the tenant's sealed-record listing.
type RecordListResponse struct {
	Records       []*models.EvidenceRecord `json:"records"`
	CorrelationID string                   `json:"correlation_id"`
}

// FromRecordList converts a record listing to an HTTP response.
func FromRecordList(records []*models.EvidenceRecord, correlationID string) *RecordListResponse {
	if records == nil {
		records = []*models.EvidenceRecord{}
	}
	return &RecordListResponse{Records: records, CorrelationID: correlationID}
}
