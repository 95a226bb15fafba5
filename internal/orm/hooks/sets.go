package hooks

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// relationshipEntry pairs a relationship with the resources it affects
type relationshipEntry struct {
	relationship *resource.Relationship
	resources    []resource.Identifiable
}

// RelationshipsDictionary groups resources of type T by the relationship through which
// they are affected. Keys are relationships declared on T.
type RelationshipsDictionary[T resource.Identifiable] struct {
	relationships  []*resource.Relationship
	resources      map[*resource.Relationship][]T
	databaseValues []T
	loaded         bool
}

func newRelationshipsDictionary[T resource.Identifiable](entries []relationshipEntry) *RelationshipsDictionary[T] {
	d := &RelationshipsDictionary[T]{
		resources: make(map[*resource.Relationship][]T, len(entries)),
	}
	for _, entry := range entries {
		if _, ok := d.resources[entry.relationship]; !ok {
			d.relationships = append(d.relationships, entry.relationship)
		}
		d.resources[entry.relationship] = append(d.resources[entry.relationship], typed[T](entry.resources)...)
	}
	return d
}

// Relationships returns the keys in the order they were affected
func (d *RelationshipsDictionary[T]) Relationships() []*resource.Relationship {
	return slices.Clone(d.relationships)
}

// Get returns the resources affected through rel
func (d *RelationshipsDictionary[T]) Get(rel *resource.Relationship) []T {
	return d.resources[rel]
}

// Len returns the number of relationships
func (d *RelationshipsDictionary[T]) Len() int {
	return len(d.relationships)
}

// GetByRelationship returns the entries whose relationship points at relatedType
func (d *RelationshipsDictionary[T]) GetByRelationship(relatedType reflect.Type) map[*resource.Relationship][]T {
	out := make(map[*resource.Relationship][]T)
	for _, rel := range d.relationships {
		if rel.RightType == relatedType || rel.ThroughType == relatedType {
			out[rel] = d.resources[rel]
		}
	}
	return out
}

// GetAffected returns the resources affected through the relationship with the given
// public name
func (d *RelationshipsDictionary[T]) GetAffected(name string) []T {
	for _, rel := range d.relationships {
		if rel.Name == name {
			return d.resources[rel]
		}
	}
	return nil
}

// DatabaseValues returns the stored state of the affected resources
func (d *RelationshipsDictionary[T]) DatabaseValues() ([]T, error) {
	if !d.loaded {
		return nil, ErrDatabaseValuesDisabled
	}
	return d.databaseValues, nil
}

// ResourceSet is the set of resources passed to a before-hook, together with the
// relationships of those resources that lead to the next layer.
type ResourceSet[T resource.Identifiable] struct {
	resources     []T
	relationships *RelationshipsDictionary[T]
}

func newResourceSet[T resource.Identifiable](resources []resource.Identifiable, relationships []relationshipEntry) *ResourceSet[T] {
	return &ResourceSet[T]{
		resources:     typed[T](resources),
		relationships: newRelationshipsDictionary[T](relationships),
	}
}

// Resources returns the resources in the set
func (s *ResourceSet[T]) Resources() []T {
	return slices.Clone(s.resources)
}

// Len returns the number of resources
func (s *ResourceSet[T]) Len() int {
	return len(s.resources)
}

// Relationships returns the populated relationships of the set
func (s *ResourceSet[T]) Relationships() *RelationshipsDictionary[T] {
	return s.relationships
}

// GetByRelationship returns, per relationship pointing at relatedType, the resources that
// have it populated
func (s *ResourceSet[T]) GetByRelationship(relatedType reflect.Type) map[*resource.Relationship][]T {
	return s.relationships.GetByRelationship(relatedType)
}

// GetAffected returns the resources with the named relationship populated
func (s *ResourceSet[T]) GetAffected(name string) []T {
	return s.relationships.GetAffected(name)
}

// DiffPair holds a resource as sent by the caller and as currently stored
type DiffPair[T resource.Identifiable] struct {
	Resource      T
	DatabaseValue T
}

// DiffableResourceSet is passed to BeforeUpdate. Besides the resources it can provide their
// stored state when database values are loaded.
type DiffableResourceSet[T resource.Identifiable] struct {
	*ResourceSet[T]
	databaseValues []T
	loaded         bool
	attributes     []string
}

func newDiffableResourceSet[T resource.Identifiable](
	resources []resource.Identifiable,
	databaseValues []resource.Identifiable,
	loaded bool,
	relationships []relationshipEntry,
	attributes []string,
) *DiffableResourceSet[T] {
	return &DiffableResourceSet[T]{
		ResourceSet:    newResourceSet[T](resources, relationships),
		databaseValues: typed[T](databaseValues),
		loaded:         loaded,
		attributes:     attributes,
	}
}

// GetDiffs pairs every resource with its stored state
func (s *DiffableResourceSet[T]) GetDiffs() ([]DiffPair[T], error) {
	if !s.loaded {
		return nil, ErrDatabaseValuesDisabled
	}

	stored := make(map[string]T, len(s.databaseValues))
	for _, v := range s.databaseValues {
		stored[v.GetStringID()] = v
	}

	pairs := make([]DiffPair[T], 0, len(s.resources))
	for _, r := range s.resources {
		v, ok := stored[r.GetStringID()]
		if !ok {
			return nil, fmt.Errorf("no database value for resource %s", r.GetStringID())
		}
		pairs = append(pairs, DiffPair[T]{Resource: r, DatabaseValue: v})
	}
	return pairs, nil
}

// GetAffectedByAttribute returns the resources if the attribute is targeted by the update
func (s *DiffableResourceSet[T]) GetAffectedByAttribute(name string) []T {
	if slices.Contains(s.attributes, name) {
		return s.Resources()
	}
	return nil
}

// typed converts type-erased resources back to T
func typed[T resource.Identifiable](items []resource.Identifiable) []T {
	if items == nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, item.(T))
	}
	return out
}

// erase converts typed resources to their type-erased form
func erase[T resource.Identifiable](items []T) []resource.Identifiable {
	if items == nil {
		return nil
	}
	out := make([]resource.Identifiable, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
