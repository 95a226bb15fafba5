package hooks

import (
	"reflect"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

var identifiableType = reflect.TypeFor[resource.Identifiable]()

// FieldChange represents a change to a single attribute
type FieldChange struct {
	Field    string
	OldValue interface{}
	NewValue interface{}
}

// Changes compares the attributes of the resource with its stored state, in field
// declaration order. Relationship fields are not attributes and are never reported.
func (p DiffPair[T]) Changes() []FieldChange {
	current, stored := structValue(p.Resource), structValue(p.DatabaseValue)
	if !current.IsValid() || !stored.IsValid() || current.Type() != stored.Type() {
		return nil
	}

	var changes []FieldChange
	for i := 0; i < current.NumField(); i++ {
		field := current.Type().Field(i)
		if !field.IsExported() || isRelationshipField(field.Type) {
			continue
		}
		newValue, oldValue := current.Field(i).Interface(), stored.Field(i).Interface()
		if !reflect.DeepEqual(oldValue, newValue) {
			changes = append(changes, FieldChange{Field: field.Name, OldValue: oldValue, NewValue: newValue})
		}
	}
	return changes
}

// Changed returns true if the named attribute differs from its stored value
func (p DiffPair[T]) Changed(field string) bool {
	for _, c := range p.Changes() {
		if c.Field == field {
			return true
		}
	}
	return false
}

func structValue(r resource.Identifiable) reflect.Value {
	if resource.IsNil(r) {
		return reflect.Value{}
	}
	v := reflect.ValueOf(r)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v
}

// isRelationshipField returns true for resources and collections of resources or join rows
func isRelationshipField(t reflect.Type) bool {
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		t = reflect.PointerTo(t)
	}
	return t.Implements(identifiableType)
}
