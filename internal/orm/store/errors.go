package store

import "errors"

var (
	// ErrUnmappedType is returned when a resource type has no table mapping
	ErrUnmappedType = errors.New("resource type has no table mapping")

	// ErrUnmappedRelationship is returned when a relationship has no column mapping
	ErrUnmappedRelationship = errors.New("relationship has no column mapping")

	// ErrInvalidRelationType is returned when an invalid relationship type is encountered
	ErrInvalidRelationType = errors.New("invalid relationship type")

	// ErrDuplicateMapping is returned when a type is mapped twice
	ErrDuplicateMapping = errors.New("resource type already mapped")
)
