package store

import (
	"context"
	"reflect"
	"sync"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// MemoryRepository keeps resources in memory. Stored resources are returned as saved, with
// whatever relationships they hold.
type MemoryRepository struct {
	resources map[reflect.Type]map[string]resource.Identifiable
	mu        sync.RWMutex
}

// NewMemoryRepository creates an empty memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		resources: make(map[reflect.Type]map[string]resource.Identifiable),
	}
}

// Save stores items, replacing stored items with the same identity. Items without an ID
// are ignored.
func (m *MemoryRepository) Save(items ...resource.Identifiable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if resource.IsNil(item) || item.GetStringID() == "" {
			continue
		}
		typ := resource.TypeOf(item)
		byID, ok := m.resources[typ]
		if !ok {
			byID = make(map[string]resource.Identifiable)
			m.resources[typ] = byID
		}
		byID[item.GetStringID()] = item
	}
}

// Delete removes items
func (m *MemoryRepository) Delete(items ...resource.Identifiable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if resource.IsNil(item) {
			continue
		}
		delete(m.resources[resource.TypeOf(item)], item.GetStringID())
	}
}

// LoadWithRelationships returns the stored resources of typ with the given ids, in id order.
// Relationships are returned as stored.
func (m *MemoryRepository) LoadWithRelationships(
	_ context.Context,
	typ reflect.Type,
	ids []string,
	_ []*resource.Relationship,
) ([]resource.Identifiable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]resource.Identifiable, 0, len(ids))
	for _, id := range ids {
		if item, ok := m.resources[typ][id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}
