package hooks

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// Repository loads the stored state of resources. The engine uses it to compare old and new
// relationship values and to find implicitly affected resources.
type Repository interface {
	// LoadWithRelationships returns the stored resources of type typ with the given ids, with
	// the listed relationships populated
	LoadWithRelationships(ctx context.Context, typ reflect.Type, ids []string, relationships []*resource.Relationship) ([]resource.Identifiable, error)
}

// discovery is the cached hook information of one resource type
type discovery struct {
	container *Container
	kinds     map[Kind]bool
}

// helper resolves and caches hook containers for one executor
type helper struct {
	factory    ContainerFactory
	graph      *resource.Graph
	repository Repository
	options    Options

	discoveries map[reflect.Type]*discovery
	targeted    []Kind
}

func newHelper(factory ContainerFactory, graph *resource.Graph, repository Repository, options Options) *helper {
	return &helper{
		factory:     factory,
		graph:       graph,
		repository:  repository,
		options:     options,
		discoveries: make(map[reflect.Type]*discovery),
	}
}

// target sets the hook kinds relevant to the layers below the root of the running operation
func (h *helper) target(kinds ...Kind) {
	h.targeted = kinds
}

// discover returns the cached discovery for typ, resolving it on first use
func (h *helper) discover(typ reflect.Type) (*discovery, error) {
	if d, ok := h.discoveries[typ]; ok {
		return d, nil
	}

	c, err := h.factory.Container(typ)
	if err != nil {
		return nil, err
	}

	d := &discovery{container: c, kinds: make(map[Kind]bool)}
	if c != nil {
		for _, k := range c.ImplementedKinds() {
			d.kinds[k] = true
		}
	}
	h.discoveries[typ] = d
	return d, nil
}

// container returns the hook container of typ if it implements kind. With kind None any of
// the targeted kinds qualifies.
func (h *helper) container(typ reflect.Type, kind Kind) (*Container, error) {
	d, err := h.discover(typ)
	if err != nil || d.container == nil {
		return nil, err
	}

	kinds := []Kind{kind}
	if kind == None {
		if len(h.targeted) == 0 {
			return nil, ErrNoTargetedHooks
		}
		kinds = h.targeted
	}

	for _, k := range kinds {
		if d.kinds[k] {
			return d.container, nil
		}
	}
	return nil, nil
}

// shouldExecuteHook returns true if typ implements kind
func (h *helper) shouldExecuteHook(typ reflect.Type, kind Kind) (bool, error) {
	d, err := h.discover(typ)
	if err != nil {
		return false, err
	}
	return d.kinds[kind], nil
}

// anyReachableHook returns true if any type reachable from root implements one of the
// targeted kinds. When it is false, traversing below root cannot fire a single hook.
func (h *helper) anyReachableHook(root reflect.Type) (bool, error) {
	for _, typ := range h.graph.Reachable(root) {
		c, err := h.container(typ, None)
		if err != nil {
			return false, err
		}
		if c != nil {
			return true, nil
		}
	}
	return false, nil
}

// shouldLoadDatabaseValues applies the per-hook override of typ before the global option
func (h *helper) shouldLoadDatabaseValues(typ reflect.Type, kind Kind) (bool, error) {
	d, err := h.discover(typ)
	if err != nil {
		return false, err
	}
	if d.container != nil {
		if enabled, set := d.container.loadDatabaseValues(kind); set {
			return enabled, nil
		}
	}
	return h.options.LoadDatabaseValues, nil
}

// loadDatabaseValues loads the stored state of resources with relationships populated
func (h *helper) loadDatabaseValues(
	ctx context.Context,
	typ reflect.Type,
	resources []resource.Identifiable,
	relationships []*resource.Relationship,
) ([]resource.Identifiable, error) {
	if h.repository == nil {
		return nil, fmt.Errorf("%w: cannot load database values for %s", ErrNoRepository, h.graph.ResourceName(typ))
	}
	if len(resources) == 0 {
		return []resource.Identifiable{}, nil
	}

	values, err := h.repository.LoadWithRelationships(ctx, typ, resource.StringIDs(resources), relationships)
	if err != nil {
		return nil, fmt.Errorf("failed to load database values for %s: %w", h.graph.ResourceName(typ), err)
	}
	return resource.Unique(values), nil
}

// loadImplicitlyAffected loads, for every relationship, the stored right side of the given
// left resources. Right resources in existing are left out, as are many-to-many
// relationships. Entries that end up empty are dropped.
func (h *helper) loadImplicitlyAffected(
	ctx context.Context,
	leftsByRelationship []relationshipEntry,
	existing []resource.Identifiable,
) ([]relationshipEntry, error) {
	exclude := resource.NewSet(existing...)
	var affected []relationshipEntry

	for _, entry := range leftsByRelationship {
		rel := entry.relationship
		if rel.IsThrough() || len(entry.resources) == 0 {
			continue
		}

		stored, err := h.loadDatabaseValues(ctx, rel.LeftType, entry.resources, []*resource.Relationship{rel})
		if err != nil {
			return nil, err
		}

		rights := resource.NewSet()
		for _, left := range stored {
			for _, right := range resource.Except(rel.Value(left), exclude) {
				rights.Add(right)
			}
		}
		if rights.Len() == 0 {
			continue
		}

		i := slices.IndexFunc(affected, func(e relationshipEntry) bool { return e.relationship == rel })
		if i < 0 {
			affected = append(affected, relationshipEntry{relationship: rel, resources: rights.Items()})
			continue
		}
		affected[i].resources = resource.Unique(append(affected[i].resources, rights.Items()...))
	}

	return affected, nil
}
