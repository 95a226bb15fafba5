package resource

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var identifiableType = reflect.TypeFor[Identifiable]()

// ResourceType is the registered metadata of one resource type
type ResourceType struct {
	Name          string
	Type          reflect.Type
	Relationships []*Relationship
	byName        map[string]*Relationship
}

// Graph holds the resource types and relationship declarations known to the application.
// It is populated at startup and read concurrently afterwards.
type Graph struct {
	types map[reflect.Type]*ResourceType
	names map[string]reflect.Type
	order []reflect.Type
	mu    sync.RWMutex
}

// NewGraph creates an empty resource graph
func NewGraph() *Graph {
	return &Graph{
		types: make(map[reflect.Type]*ResourceType),
		names: make(map[string]reflect.Type),
	}
}

// Register registers T under the public name with its relationships
func Register[T Identifiable](g *Graph, name string, relationships ...*Relationship) error {
	return g.Register(name, reflect.TypeFor[T](), relationships...)
}

// Register registers a resource type. Field layout of every relationship is checked here;
// references to other types are checked by Validate so types can be registered in any order.
// A declaration belongs to one type and cannot be passed to Register twice.
func (g *Graph) Register(name string, typ reflect.Type, relationships ...*Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.types[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, typ)
	}
	if _, exists := g.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("resource %s: type %s must be a pointer to a struct", name, typ)
	}
	if !typ.Implements(identifiableType) {
		return fmt.Errorf("resource %s: type %s does not implement Identifiable", name, typ)
	}

	rt := &ResourceType{
		Name:   name,
		Type:   typ,
		byName: make(map[string]*Relationship, len(relationships)),
	}
	for _, rel := range relationships {
		if err := bind(rt, rel); err != nil {
			// A failed registration leaves no declaration bound
			for _, bound := range rt.Relationships {
				bound.LeftType = nil
			}
			return err
		}
	}

	g.types[typ] = rt
	g.names[name] = typ
	g.order = append(g.order, typ)
	return nil
}

// bind attaches rel to the type being registered
func bind(rt *ResourceType, rel *Relationship) error {
	if _, dup := rt.byName[rel.Name]; dup {
		return fmt.Errorf("%w: %s declares %q twice", ErrInvalidRelationship, rt.Name, rel.Name)
	}
	if rel.LeftType != nil {
		return fmt.Errorf("%w: %s is already declared on %s", ErrInvalidRelationship, rel.Name, typeName(rel.LeftType))
	}
	rel.LeftType = rt.Type
	if err := checkFields(rt.Type, rel); err != nil {
		rel.LeftType = nil
		return err
	}
	rt.Relationships = append(rt.Relationships, rel)
	rt.byName[rel.Name] = rel
	return nil
}

// checkFields verifies that the struct fields named by rel exist and can hold its values
func checkFields(owner reflect.Type, rel *Relationship) error {
	field, ok := owner.Elem().FieldByName(rel.Field)
	if !ok || !field.IsExported() {
		return fmt.Errorf("%w: %s has no exported field %s", ErrInvalidRelationship, rel, rel.Field)
	}

	switch rel.Kind {
	case ToOne:
		if !rel.RightType.AssignableTo(field.Type) {
			return fmt.Errorf("%w: %s field %s cannot hold %s", ErrInvalidRelationship, rel, rel.Field, rel.RightType)
		}
	case ToMany:
		if field.Type.Kind() != reflect.Slice || !rel.RightType.AssignableTo(field.Type.Elem()) {
			return fmt.Errorf("%w: %s field %s must be a slice of %s", ErrInvalidRelationship, rel, rel.Field, rel.RightType)
		}
	case ManyToManyThrough:
		if rel.ThroughType == nil {
			return fmt.Errorf("%w: %s has no join type", ErrInvalidRelationship, rel)
		}
		if field.Type.Kind() != reflect.Slice || !rel.ThroughType.AssignableTo(field.Type.Elem()) {
			return fmt.Errorf("%w: %s field %s must be a slice of %s", ErrInvalidRelationship, rel, rel.Field, rel.ThroughType)
		}
		join := rel.ThroughType
		for join.Kind() == reflect.Pointer {
			join = join.Elem()
		}
		right, ok := join.FieldByName(rel.ThroughRightField)
		if !ok || !rel.RightType.AssignableTo(right.Type) {
			return fmt.Errorf("%w: %s join field %s must hold %s", ErrInvalidRelationship, rel, rel.ThroughRightField, rel.RightType)
		}
		if rel.ThroughLeftField != "" {
			if _, ok := join.FieldByName(rel.ThroughLeftField); !ok {
				return fmt.Errorf("%w: %s join type has no field %s", ErrInvalidRelationship, rel, rel.ThroughLeftField)
			}
		}
	default:
		return fmt.Errorf("%w: %s has kind %s", ErrInvalidRelationship, rel, rel.Kind)
	}
	return nil
}

// Validate checks cross-type references: inverse relationships must exist on the right
// type and point back at the declaring type, and registered join types must be
// Identifiable.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for _, typ := range g.order {
		for _, rel := range g.types[typ].Relationships {
			if rel.IsThrough() {
				if _, ok := g.types[rel.ThroughType]; ok && !rel.ThroughType.Implements(identifiableType) {
					errs = append(errs, fmt.Errorf("%w: %s join type %s is registered but not Identifiable",
						ErrInvalidRelationship, rel, rel.ThroughType))
				}
			}
			if rel.InverseName == "" {
				continue
			}
			right, ok := g.types[rel.RightType]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s has an inverse but %s is not registered",
					ErrUnregisteredType, rel, rel.RightType))
				continue
			}
			inverse, ok := right.byName[rel.InverseName]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: inverse %q of %s", ErrUnknownRelationship, rel.InverseName, rel))
				continue
			}
			if inverse.RightType != typ {
				errs = append(errs, fmt.Errorf("%w: inverse %s of %s points at %s",
					ErrInvalidRelationship, inverse, rel, inverse.RightType))
			}
		}
	}
	return errors.Join(errs...)
}

// IsRegistered returns true if typ is a registered resource type
func (g *Graph) IsRegistered(typ reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.types[typ]
	return ok
}

// ResourceType returns the metadata registered for typ
func (g *Graph) ResourceType(typ reflect.Type) (*ResourceType, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rt, ok := g.types[typ]
	return rt, ok
}

// ResourceName returns the public name of typ, or the Go type name if unregistered
func (g *Graph) ResourceName(typ reflect.Type) string {
	if rt, ok := g.ResourceType(typ); ok {
		return rt.Name
	}
	return typeName(typ)
}

// Relationships returns the relationships declared on typ in declaration order
func (g *Graph) Relationships(typ reflect.Type) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rt, ok := g.types[typ]
	if !ok {
		return nil
	}
	return rt.Relationships
}

// Relationship returns the relationship declared on typ under name
func (g *Graph) Relationship(typ reflect.Type, name string) (*Relationship, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rt, ok := g.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredType, typ)
	}
	rel, ok := rt.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownRelationship, name, rt.Name)
	}
	return rel, nil
}

// Inverse returns the relationship pointing back from the right side of rel, or nil
func (g *Graph) Inverse(rel *Relationship) *Relationship {
	if rel.InverseName == "" {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	rt, ok := g.types[rel.RightType]
	if !ok {
		return nil
	}
	return rt.byName[rel.InverseName]
}

// Reachable returns every type reachable from typ by following includable relationships,
// typ first. Both the join type and the far side of many-to-many relationships count.
func (g *Graph) Reachable(typ reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[reflect.Type]bool{typ: true}
	queue := []reflect.Type{typ}
	result := []reflect.Type{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		rt, ok := g.types[current]
		if !ok {
			continue
		}
		for _, rel := range rt.Relationships {
			if !rel.CanInclude() {
				continue
			}
			next := []reflect.Type{rel.RightType}
			if rel.IsThrough() {
				next = append(next, rel.ThroughType)
			}
			for _, t := range next {
				if !seen[t] {
					seen[t] = true
					queue = append(queue, t)
				}
			}
		}
	}

	return result
}

// Types returns all registered types in registration order
func (g *Graph) Types() []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]reflect.Type, len(g.order))
	copy(out, g.order)
	return out
}
