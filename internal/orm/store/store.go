// Package store provides repositories that load the stored state of resources, used by the
// hook engine for database values and implicitly affected relationships
package store

import (
	"context"
	"database/sql"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// Querier is an interface for executing SQL queries, allowing for testing and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Record is one scanned row, keyed by column name
type Record = map[string]interface{}

// RelationType describes how a relationship is stored
type RelationType int

const (
	// BelongsTo stores a to-one relationship as a foreign key on the owner table
	BelongsTo RelationType = iota
	// HasOne stores a to-one relationship as a foreign key on the related table
	HasOne
	// HasMany stores a to-many relationship as a foreign key on the related table
	HasMany
	// HasManyThrough stores a many-to-many relationship in a join table
	HasManyThrough
)

// String returns the string representation of the relation type
func (t RelationType) String() string {
	switch t {
	case BelongsTo:
		return "belongs_to"
	case HasOne:
		return "has_one"
	case HasMany:
		return "has_many"
	case HasManyThrough:
		return "has_many_through"
	default:
		return "unknown"
	}
}

// accepts returns true if a relationship of the given kind can be stored this way
func (t RelationType) accepts(kind resource.Kind) bool {
	switch t {
	case BelongsTo, HasOne:
		return kind == resource.ToOne
	case HasMany:
		return kind == resource.ToMany
	case HasManyThrough:
		return kind == resource.ManyToManyThrough
	}
	return false
}

// Relation maps one relationship onto columns
type Relation struct {
	Type RelationType

	// ForeignKey is the owner column for BelongsTo, the related column for HasOne and
	// HasMany, and the join table column pointing at the owner for HasManyThrough
	ForeignKey string

	// AssociationKey is the join table column pointing at the related table
	AssociationKey string

	// JoinTable is the join table of a HasManyThrough relation
	JoinTable string

	// OrderBy sorts to-many results (e.g. "created_at DESC")
	OrderBy string
}

// Table maps a resource type onto a table
type Table struct {
	// Name is the table name (default: the resource name in snake_case)
	Name string

	// Decode builds a resource from a scanned row
	Decode func(record Record) (resource.Identifiable, error)

	// Relations maps relationship names to their storage
	Relations map[string]*Relation
}
