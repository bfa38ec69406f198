// Package store persists directory entities. The in-memory implementation
// backs tests and single-node deployments; the production directory sits
// behind the same interface in the external gateway.
package store

import (
	"context"
	"strings"
	"sync"

	"evigate/internal/entity/models"
	evidence "evigate/internal/evidence/models"
	id "evigate/pkg/domain"
	"evigate/pkg/platform/sentinel"
)

// EntityStore is the persistence contract for directory entities.
type EntityStore interface {
	// Create persists a new entity; duplicate identity within a tenant and
	// type returns sentinel.ErrConflict.
	Create(ctx context.Context, e *models.Entity) error
	FindByID(ctx context.Context, tenantID id.TenantID, entityID id.EntityID) (*models.Entity, error)
	Search(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, query string) ([]*models.Entity, error)
}

// InMemory is a mutex-guarded map store.
type InMemory struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
}

func NewInMemory() *InMemory {
	return &InMemory{entities: make(map[id.EntityID]*models.Entity)}
}

func (s *InMemory) Create(ctx context.Context, e *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entities {
		if existing.TenantID == e.TenantID && existing.Type == e.Type &&
			strings.EqualFold(existing.Name, e.Name) {
			return sentinel.ErrConflict
		}
	}
	cp := *e
	s.entities[e.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID id.TenantID, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[entityID]
	if !ok || e.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemory) Search(ctx context.Context, tenantID id.TenantID, entityType evidence.EntityType, query string) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []*models.Entity
	for _, e := range s.entities {
		if e.TenantID != tenantID || e.Type != entityType {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Code), q) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
