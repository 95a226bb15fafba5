package resource

import "errors"

var (
	// ErrUnregisteredType is returned when a type is not registered on the graph
	ErrUnregisteredType = errors.New("resource type not registered")

	// ErrDuplicateType is returned when a type or resource name is registered twice
	ErrDuplicateType = errors.New("resource type already registered")

	// ErrUnknownRelationship is returned when a relationship name is not declared on a type
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrInvalidRelationship is returned when a relationship declaration does not match the
	// fields of its declaring type
	ErrInvalidRelationship = errors.New("invalid relationship")
)
