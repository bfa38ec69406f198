package models

import (
	"encoding/json"
	"fmt"
)

// BOMRow is one line of a bill of materials. Each row carries exactly one
// identifier source: a direct entity reference XOR a free-text code.
// The transient both-set state some clients produce is rejected outright;
// the XOR is enforced invariantly, not cleared on write.
type BOMRow struct {
	EntityReferenceID string  `json:"entity_reference_id,omitempty"`
	FreeTextCode      string  `json:"free_text_code,omitempty"`
	Description       string  `json:"description,omitempty"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
}

// MatchStatus derives the per-row reconciliation state: a direct entity
// reference is bound, a free-text code awaits matching.
func (r BOMRow) MatchStatus() RowMatchStatus {
	if r.EntityReferenceID != "" {
		return RowBound
	}
	return RowPendingMatch
}

// DecodeBOMRows extracts the rows field of a composite payload. Handles
// both []BOMRow (typed callers) and []any (decoded JSON).
func DecodeBOMRows(payload map[string]any) ([]BOMRow, error) {
	raw, ok := payload["rows"]
	if !ok || raw == nil {
		return nil, nil
	}
	if rows, ok := raw.([]BOMRow); ok {
		return rows, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode bom rows: %w", err)
	}
	var rows []BOMRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode bom rows: %w", err)
	}
	return rows, nil
}
