package resource

import (
	"fmt"
	"reflect"
)

// Kind is the cardinality of a relationship
type Kind int

const (
	// ToOne relationships hold a single related resource or nil
	ToOne Kind = iota
	// ToMany relationships hold a slice of related resources
	ToMany
	// ManyToManyThrough relationships hold a slice of join rows, each pointing at one
	// resource on the far side
	ManyToManyThrough
)

// String returns the string representation of the relationship kind
func (k Kind) String() string {
	switch k {
	case ToOne:
		return "to_one"
	case ToMany:
		return "to_many"
	case ManyToManyThrough:
		return "many_to_many_through"
	default:
		return "unknown"
	}
}

// Relationship declares one navigation field of a resource type.
//
// Field access is reflection based. Field names and types are checked when the owning
// type is registered on a Graph, so the accessors below assume a valid declaration.
type Relationship struct {
	// Name is the public relationship name (e.g. "line-items")
	Name string
	// Field is the Go struct field holding the value (e.g. "LineItems")
	Field string
	Kind  Kind

	// LeftType is the declaring type; it is filled in by Graph.Register
	LeftType reflect.Type
	// RightType is the far-side resource type
	RightType reflect.Type

	// For many-to-many relationships
	ThroughType       reflect.Type
	ThroughField      string // owner field holding the join rows
	ThroughLeftField  string // join row field pointing back at the owner
	ThroughRightField string // join row field pointing at the far side

	// InverseName is the name of the relationship on RightType pointing back at LeftType
	InverseName string

	// Excluded relationships are never included and never traversed
	Excluded bool
}

// HasOne declares a to-one relationship to T
func HasOne[T Identifiable](name, field string) *Relationship {
	return &Relationship{
		Name:      name,
		Field:     field,
		Kind:      ToOne,
		RightType: reflect.TypeFor[T](),
	}
}

// HasMany declares a to-many relationship to T
func HasMany[T Identifiable](name, field string) *Relationship {
	return &Relationship{
		Name:      name,
		Field:     field,
		Kind:      ToMany,
		RightType: reflect.TypeFor[T](),
	}
}

// HasManyThrough declares a many-to-many relationship to T stored as join rows of type J.
// throughField holds the []J on the owner, leftField and rightField are the fields of J
// pointing at the owner and at T.
func HasManyThrough[T any, J any](name, throughField, leftField, rightField string) *Relationship {
	return &Relationship{
		Name:              name,
		Field:             throughField,
		Kind:              ManyToManyThrough,
		RightType:         reflect.TypeFor[T](),
		ThroughType:       reflect.TypeFor[J](),
		ThroughField:      throughField,
		ThroughLeftField:  leftField,
		ThroughRightField: rightField,
	}
}

// WithInverse sets the name of the inverse relationship
func (r *Relationship) WithInverse(name string) *Relationship {
	r.InverseName = name
	return r
}

// NotIncludable marks the relationship as excluded from includes and traversal
func (r *Relationship) NotIncludable() *Relationship {
	r.Excluded = true
	return r
}

// CanInclude returns true if the relationship may be included and traversed
func (r *Relationship) CanInclude() bool {
	return !r.Excluded
}

// IsToOne returns true for to-one relationships
func (r *Relationship) IsToOne() bool {
	return r.Kind == ToOne
}

// IsThrough returns true for many-to-many relationships
func (r *Relationship) IsThrough() bool {
	return r.Kind == ManyToManyThrough
}

// String returns "Left.name"
func (r *Relationship) String() string {
	left := "?"
	if r.LeftType != nil {
		left = typeName(r.LeftType)
	}
	return fmt.Sprintf("%s.%s", left, r.Name)
}

// Value returns the far-side resources held by owner, or nil if the field is unset.
// To-one relationships yield at most one element.
func (r *Relationship) Value(owner Identifiable) []Identifiable {
	field := fieldValue(owner, r.Field)

	switch r.Kind {
	case ToOne:
		if isNilValue(field) {
			return nil
		}
		item, ok := field.Interface().(Identifiable)
		if !ok || IsNil(item) {
			return nil
		}
		return []Identifiable{item}
	case ToMany:
		if field.IsNil() {
			return nil
		}
		return sliceItems(field)
	case ManyToManyThrough:
		if field.IsNil() {
			return nil
		}
		items := make([]Identifiable, 0, field.Len())
		for i := 0; i < field.Len(); i++ {
			if right := r.joinRight(field.Index(i)); right != nil {
				items = append(items, right)
			}
		}
		return items
	}
	return nil
}

// SetValue writes values onto owner. To-one relationships take the first value or nil.
// For many-to-many relationships only existing join rows can be kept: the join rows whose
// far side is not among values are dropped.
func (r *Relationship) SetValue(owner Identifiable, values []Identifiable) {
	field := fieldValue(owner, r.Field)

	switch r.Kind {
	case ToOne:
		if len(values) == 0 || IsNil(values[0]) {
			field.Set(reflect.Zero(field.Type()))
			return
		}
		field.Set(reflect.ValueOf(values[0]))
	case ToMany:
		field.Set(makeSlice(field.Type(), values))
	case ManyToManyThrough:
		if field.IsNil() {
			return
		}
		keep := NewSet(values...)
		filtered := reflect.MakeSlice(field.Type(), 0, field.Len())
		for i := 0; i < field.Len(); i++ {
			row := field.Index(i)
			if right := r.joinRight(row); right != nil && keep.Contains(right) {
				filtered = reflect.Append(filtered, row)
			}
		}
		field.Set(filtered)
	}
}

// JoinRows returns the join rows of a many-to-many relationship. The join type must
// implement Identifiable.
func (r *Relationship) JoinRows(owner Identifiable) []Identifiable {
	field := fieldValue(owner, r.ThroughField)
	if field.IsNil() {
		return nil
	}
	return sliceItems(field)
}

// SetJoinRows replaces the join rows of a many-to-many relationship
func (r *Relationship) SetJoinRows(owner Identifiable, rows []Identifiable) {
	field := fieldValue(owner, r.ThroughField)
	field.Set(makeSlice(field.Type(), rows))
}

// Link replaces the join rows of owner with one new row per right resource. Each row
// points back at owner and at its right resource.
func (r *Relationship) Link(owner Identifiable, rights []Identifiable) {
	field := fieldValue(owner, r.ThroughField)
	elem := field.Type().Elem()

	rows := reflect.MakeSlice(field.Type(), 0, len(rights))
	for _, right := range rights {
		if IsNil(right) {
			continue
		}
		var row, fields reflect.Value
		if elem.Kind() == reflect.Pointer {
			row = reflect.New(elem.Elem())
			fields = row.Elem()
		} else {
			row = reflect.New(elem).Elem()
			fields = row
		}
		setField(fields, r.ThroughLeftField, owner)
		setField(fields, r.ThroughRightField, right)
		rows = reflect.Append(rows, row)
	}
	field.Set(rows)
}

// JoinRight returns the far-side resource a join row points at
func (r *Relationship) JoinRight(row Identifiable) Identifiable {
	return r.joinRight(reflect.ValueOf(row))
}

func (r *Relationship) joinRight(row reflect.Value) Identifiable {
	for row.Kind() == reflect.Pointer || row.Kind() == reflect.Interface {
		if row.IsNil() {
			return nil
		}
		row = row.Elem()
	}
	right := row.FieldByName(r.ThroughRightField)
	if !right.IsValid() || isNilValue(right) {
		return nil
	}
	item, ok := right.Interface().(Identifiable)
	if !ok || IsNil(item) {
		return nil
	}
	return item
}

// fieldValue returns the settable struct field name of owner
func fieldValue(owner Identifiable, name string) reflect.Value {
	return reflect.ValueOf(owner).Elem().FieldByName(name)
}

// setField assigns value to the named field of s if the types allow it
func setField(s reflect.Value, name string, value Identifiable) {
	f := s.FieldByName(name)
	v := reflect.ValueOf(value)
	if f.IsValid() && f.CanSet() && v.Type().AssignableTo(f.Type()) {
		f.Set(v)
	}
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	}
	return false
}

func sliceItems(v reflect.Value) []Identifiable {
	items := make([]Identifiable, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		if isNilValue(elem) {
			continue
		}
		if item, ok := elem.Interface().(Identifiable); ok {
			items = append(items, item)
		}
	}
	return items
}

// makeSlice builds a slice of type t from values; nil values produce a nil slice
func makeSlice(t reflect.Type, values []Identifiable) reflect.Value {
	if values == nil {
		return reflect.Zero(t)
	}
	out := reflect.MakeSlice(t, 0, len(values))
	for _, v := range values {
		if IsNil(v) {
			continue
		}
		out = reflect.Append(out, reflect.ValueOf(v))
	}
	return out
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
