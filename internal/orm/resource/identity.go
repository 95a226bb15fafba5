// Package resource describes resource types, their identities and the relationships
// declared between them.
package resource

import (
	"reflect"
)

// Identifiable is implemented by every resource instance the hook engine can see.
// Resources are pointers to structs; the string ID is empty until the resource is stored.
type Identifiable interface {
	GetStringID() string
}

// Key identifies a resource instance by its runtime type and string ID.
// Unsaved instances (empty ID) fall back to their pointer address.
type Key struct {
	Type reflect.Type
	ID   string
	ptr  uintptr
}

// KeyOf returns the identity key of a resource
func KeyOf(r Identifiable) Key {
	t := reflect.TypeOf(r)
	id := r.GetStringID()
	if id != "" {
		return Key{Type: t, ID: id}
	}

	v := reflect.ValueOf(r)
	if v.Kind() == reflect.Pointer {
		return Key{Type: t, ptr: v.Pointer()}
	}
	return Key{Type: t}
}

// Equal reports whether two resources have the same type and identifier
func Equal(a, b Identifiable) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	return KeyOf(a) == KeyOf(b)
}

// IsNil reports whether r is nil or a typed nil pointer
func IsNil(r Identifiable) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// TypeOf returns the runtime type used to key hooks and relationships for r
func TypeOf(r Identifiable) reflect.Type {
	return reflect.TypeOf(r)
}

// Set is an insertion-ordered set of resources compared by identity.
type Set struct {
	keys  map[Key]struct{}
	items []Identifiable
}

// NewSet creates a set holding the distinct non-nil items, in order
func NewSet(items ...Identifiable) *Set {
	s := &Set{keys: make(map[Key]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add adds item and reports whether it was not present yet
func (s *Set) Add(item Identifiable) bool {
	if IsNil(item) {
		return false
	}
	k := KeyOf(item)
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Contains reports whether an item with the same identity is in the set
func (s *Set) Contains(item Identifiable) bool {
	if IsNil(item) {
		return false
	}
	_, ok := s.keys[KeyOf(item)]
	return ok
}

// Len returns the number of items
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns the items in insertion order
func (s *Set) Items() []Identifiable {
	out := make([]Identifiable, len(s.items))
	copy(out, s.items)
	return out
}

// Unique returns items without duplicates, keeping first occurrences
func Unique(items []Identifiable) []Identifiable {
	return NewSet(items...).Items()
}

// Except returns the items of a that have no identity match in b
func Except(a []Identifiable, b *Set) []Identifiable {
	out := make([]Identifiable, 0, len(a))
	for _, item := range a {
		if IsNil(item) || b.Contains(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Intersect returns the items of a that have an identity match in b
func Intersect(a []Identifiable, b *Set) []Identifiable {
	out := make([]Identifiable, 0, len(a))
	for _, item := range a {
		if b.Contains(item) {
			out = append(out, item)
		}
	}
	return out
}

// StringIDs returns the string IDs of items
func StringIDs(items []Identifiable) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.GetStringID())
	}
	return ids
}
