package hooks

import (
	"context"
	"fmt"
	"reflect"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// Definition declares the hooks of resource type T. Every non-nil field is an implemented
// hook; nil fields are never called.
//
// Hooks that return resources may filter them: the returned slice replaces the input
// and resources left out are removed from every relationship that referenced them.
type Definition[T resource.Identifiable] struct {
	BeforeCreate func(ctx context.Context, resources *ResourceSet[T], pipeline Pipeline) ([]T, error)
	AfterCreate  func(ctx context.Context, resources []T, pipeline Pipeline) error

	BeforeRead func(ctx context.Context, pipeline Pipeline, isIncluded bool, stringID string) error
	AfterRead  func(ctx context.Context, resources []T, pipeline Pipeline, isIncluded bool) ([]T, error)

	BeforeUpdate func(ctx context.Context, resources *DiffableResourceSet[T], pipeline Pipeline) ([]T, error)
	AfterUpdate  func(ctx context.Context, resources []T, pipeline Pipeline) error

	BeforeDelete func(ctx context.Context, resources *ResourceSet[T], pipeline Pipeline) ([]T, error)
	AfterDelete  func(ctx context.Context, resources []T, pipeline Pipeline, succeeded bool) error

	OnReturn func(ctx context.Context, resources []T, pipeline Pipeline) ([]T, error)

	// BeforeUpdateRelationship receives the ids of resources whose relationships are about
	// to change and returns the ids that may proceed.
	BeforeUpdateRelationship         func(ctx context.Context, ids []string, relationships *RelationshipsDictionary[T], pipeline Pipeline) ([]string, error)
	AfterUpdateRelationship          func(ctx context.Context, relationships *RelationshipsDictionary[T], pipeline Pipeline) error
	BeforeImplicitUpdateRelationship func(ctx context.Context, relationships *RelationshipsDictionary[T], pipeline Pipeline) error

	// LoadDatabaseValues overrides Options.LoadDatabaseValues for individual hooks.
	// Only BeforeUpdate, BeforeDelete and BeforeUpdateRelationship accept an override.
	LoadDatabaseValues map[Kind]bool
}

// invocation carries the arguments of any hook call
type invocation struct {
	pipeline       Pipeline
	resources      []resource.Identifiable
	databaseValues []resource.Identifiable
	loaded         bool
	relationships  []relationshipEntry
	attributes     []string
	ids            []string
	stringID       string
	isIncluded     bool
	succeeded      bool
}

// outcome carries what a hook call returned; resources and ids are nil for void hooks
type outcome struct {
	resources []resource.Identifiable
	ids       []string
	filtered  bool
}

type dispatchFunc func(ctx context.Context, in *invocation) (outcome, error)

// Container is the type-erased hook container of one resource type: a dispatch table from
// hook kind to the typed hook function, built once when the Definition is registered.
type Container struct {
	resourceType   reflect.Type
	table          map[Kind]dispatchFunc
	databaseValues map[Kind]bool
}

// NewContainer builds the dispatch table for def
func NewContainer[T resource.Identifiable](def Definition[T]) (*Container, error) {
	c := &Container{
		resourceType:   reflect.TypeFor[T](),
		table:          make(map[Kind]dispatchFunc),
		databaseValues: make(map[Kind]bool, len(def.LoadDatabaseValues)),
	}

	for kind, enabled := range def.LoadDatabaseValues {
		if !kind.supportsDatabaseValues() {
			return nil, fmt.Errorf("%w: %s on %s", ErrDatabaseValuesNotAllowed, kind, c.resourceType)
		}
		c.databaseValues[kind] = enabled
	}

	if fn := def.BeforeCreate; fn != nil {
		c.table[BeforeCreate] = func(ctx context.Context, in *invocation) (outcome, error) {
			out, err := fn(ctx, newResourceSet[T](in.resources, in.relationships), in.pipeline)
			return outcome{resources: erase(out), filtered: true}, err
		}
	}
	if fn := def.AfterCreate; fn != nil {
		c.table[AfterCreate] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, typed[T](in.resources), in.pipeline)
		}
	}
	if fn := def.BeforeRead; fn != nil {
		c.table[BeforeRead] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, in.pipeline, in.isIncluded, in.stringID)
		}
	}
	if fn := def.AfterRead; fn != nil {
		c.table[AfterRead] = func(ctx context.Context, in *invocation) (outcome, error) {
			out, err := fn(ctx, typed[T](in.resources), in.pipeline, in.isIncluded)
			return outcome{resources: erase(out), filtered: true}, err
		}
	}
	if fn := def.BeforeUpdate; fn != nil {
		c.table[BeforeUpdate] = func(ctx context.Context, in *invocation) (outcome, error) {
			set := newDiffableResourceSet[T](in.resources, in.databaseValues, in.loaded, in.relationships, in.attributes)
			out, err := fn(ctx, set, in.pipeline)
			return outcome{resources: erase(out), filtered: true}, err
		}
	}
	if fn := def.AfterUpdate; fn != nil {
		c.table[AfterUpdate] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, typed[T](in.resources), in.pipeline)
		}
	}
	if fn := def.BeforeDelete; fn != nil {
		c.table[BeforeDelete] = func(ctx context.Context, in *invocation) (outcome, error) {
			out, err := fn(ctx, newResourceSet[T](in.resources, in.relationships), in.pipeline)
			return outcome{resources: erase(out), filtered: true}, err
		}
	}
	if fn := def.AfterDelete; fn != nil {
		c.table[AfterDelete] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, typed[T](in.resources), in.pipeline, in.succeeded)
		}
	}
	if fn := def.OnReturn; fn != nil {
		c.table[OnReturn] = func(ctx context.Context, in *invocation) (outcome, error) {
			out, err := fn(ctx, typed[T](in.resources), in.pipeline)
			return outcome{resources: erase(out), filtered: true}, err
		}
	}
	if fn := def.BeforeUpdateRelationship; fn != nil {
		c.table[BeforeUpdateRelationship] = func(ctx context.Context, in *invocation) (outcome, error) {
			dict := newRelationshipsDictionary[T](in.relationships)
			dict.databaseValues, dict.loaded = typed[T](in.databaseValues), in.loaded
			ids, err := fn(ctx, in.ids, dict, in.pipeline)
			return outcome{ids: ids, filtered: true}, err
		}
	}
	if fn := def.AfterUpdateRelationship; fn != nil {
		c.table[AfterUpdateRelationship] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, newRelationshipsDictionary[T](in.relationships), in.pipeline)
		}
	}
	if fn := def.BeforeImplicitUpdateRelationship; fn != nil {
		c.table[BeforeImplicitUpdateRelationship] = func(ctx context.Context, in *invocation) (outcome, error) {
			return outcome{}, fn(ctx, newRelationshipsDictionary[T](in.relationships), in.pipeline)
		}
	}

	return c, nil
}

// ResourceType returns the resource type the container serves
func (c *Container) ResourceType() reflect.Type {
	return c.resourceType
}

// Implements returns true if the hook of the given kind is defined
func (c *Container) Implements(kind Kind) bool {
	_, ok := c.table[kind]
	return ok
}

// ImplementedKinds returns the defined hook kinds in declaration order
func (c *Container) ImplementedKinds() []Kind {
	kinds := make([]Kind, 0, len(c.table))
	for k := BeforeCreate; k <= BeforeImplicitUpdateRelationship; k++ {
		if c.Implements(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// loadDatabaseValues returns the per-hook override, if any
func (c *Container) loadDatabaseValues(kind Kind) (enabled, set bool) {
	enabled, set = c.databaseValues[kind]
	return enabled, set
}

// call runs the hook of the given kind. Errors raised by the hook are returned as is.
func (c *Container) call(ctx context.Context, kind Kind, in *invocation) (outcome, error) {
	fn, ok := c.table[kind]
	if !ok {
		return outcome{}, nil
	}
	return fn(ctx, in)
}
