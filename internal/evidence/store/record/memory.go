package record

import (
	"context"
	"fmt"
	"sync"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

type refKey struct {
	tenant id.TenantID
	ref    string
}

// InMemory holds sealed records behind a single mutex, making the
// insert-and-reserve step atomic the same way the SQL unique index does.
type InMemory struct {
	mu       sync.RWMutex
	records  map[id.RecordID]*models.EvidenceRecord
	reserved map[refKey]id.RecordID
	// sequences assigns per-tenant, per-year display numbers.
	sequences map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[id.RecordID]*models.EvidenceRecord),
		reserved:  make(map[refKey]id.RecordID),
		sequences: make(map[string]int),
	}
}

func (s *InMemory) SealUnique(ctx context.Context, r *models.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ExternalReferenceID != "" {
		key := refKey{tenant: r.TenantID, ref: r.ExternalReferenceID}
		if _, taken := s.reserved[key]; taken {
			return sentinel.ErrAlreadyUsed
		}
		s.reserved[key] = r.ID
	}

	seqKey := fmt.Sprintf("%s/%d", r.TenantID.String(), r.SealedAtUtc.Year())
	s.sequences[seqKey]++
	r.DisplayID = fmt.Sprintf("EV-%d-%06d", r.SealedAtUtc.Year(), s.sequences[seqKey])

	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID id.TenantID, recordID id.RecordID) (*models.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[recordID]
	if !ok || r.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.EvidenceRecord
	for _, r := range s.records {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
