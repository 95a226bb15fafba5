package hooks

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// ContainerFactory resolves the hook container of a resource type. It returns (nil, nil)
// when the type has no hooks.
type ContainerFactory interface {
	Container(typ reflect.Type) (*Container, error)
}

// Constructor builds a container on demand, e.g. when hooks depend on request-scoped services
type Constructor func() (*Container, error)

// Registry manages the hook containers of all resource types
type Registry struct {
	containers   map[reflect.Type]*Container
	constructors map[reflect.Type]Constructor
	mu           sync.RWMutex
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		containers:   make(map[reflect.Type]*Container),
		constructors: make(map[reflect.Type]Constructor),
	}
}

// Register builds the container for def and adds it to the registry
func Register[T resource.Identifiable](r *Registry, def Definition[T]) error {
	c, err := NewContainer(def)
	if err != nil {
		return err
	}
	return r.Register(c)
}

// RegisterConstructor adds a lazily built container for T
func RegisterConstructor[T resource.Identifiable](r *Registry, build func() (Definition[T], error)) error {
	return r.RegisterConstructor(reflect.TypeFor[T](), func() (*Container, error) {
		def, err := build()
		if err != nil {
			return nil, err
		}
		return NewContainer(def)
	})
}

// Register adds a container to the registry
func (r *Registry) Register(c *Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkDuplicate(c.resourceType); err != nil {
		return err
	}
	r.containers[c.resourceType] = c
	return nil
}

// RegisterConstructor adds a constructor that is run every time the container of typ is
// resolved
func (r *Registry) RegisterConstructor(typ reflect.Type, build Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkDuplicate(typ); err != nil {
		return err
	}
	r.constructors[typ] = build
	return nil
}

func (r *Registry) checkDuplicate(typ reflect.Type) error {
	if _, exists := r.containers[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateContainer, typ)
	}
	if _, exists := r.constructors[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateContainer, typ)
	}
	return nil
}

// Container returns the container registered for typ. Constructor errors are returned
// unchanged.
func (r *Registry) Container(typ reflect.Type) (*Container, error) {
	r.mu.RLock()
	c, ok := r.containers[typ]
	build := r.constructors[typ]
	r.mu.RUnlock()

	if ok {
		return c, nil
	}
	if build == nil {
		return nil, nil
	}
	return build()
}
