package draft

import (
	"context"
	"sync"

	"evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store for tests and single-node
// deployments.
type InMemory struct {
	mu     sync.RWMutex
	drafts map[id.DraftID]*models.EvidenceDraft
}

func NewInMemory() *InMemory {
	return &InMemory{drafts: make(map[id.DraftID]*models.EvidenceDraft)}
}

func (s *InMemory) Create(ctx context.Context, d *models.EvidenceDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drafts[d.ID]; exists {
		return sentinel.ErrConflict
	}
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID id.TenantID, draftID id.DraftID) (*models.EvidenceDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[draftID]
	if !ok || d.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (s *InMemory) Execute(ctx context.Context, tenantID id.TenantID, draftID id.DraftID,
	validate func(*models.EvidenceDraft) error,
	mutate func(*models.EvidenceDraft)) (*models.EvidenceDraft, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[draftID]
	if !ok || d.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}

	working := cloneDraft(d)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.drafts[draftID] = cloneDraft(working)
	return working, nil
}

// cloneDraft copies the draft deeply enough that callers cannot mutate
// stored state through shared maps.
func cloneDraft(d *models.EvidenceDraft) *models.EvidenceDraft {
	cp := *d
	if d.Payload != nil {
		cp.Payload = make(map[string]any, len(d.Payload))
		for k, v := range d.Payload {
			cp.Payload[k] = v
		}
	}
	if d.FieldErrors != nil {
		cp.FieldErrors = make(map[string]string, len(d.FieldErrors))
		for k, v := range d.FieldErrors {
			cp.FieldErrors[k] = v
		}
	}
	if d.BoundEntityID != nil {
		entityID := *d.BoundEntityID
		cp.BoundEntityID = &entityID
	}
	if d.IdentitySnapshot != nil {
		snap := *d.IdentitySnapshot
		cp.IdentitySnapshot = &snap
	}
	return &cp
}
