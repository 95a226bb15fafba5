package hooks

import (
	"reflect"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

// RelationshipProxy gives the traversal uniform access to one relationship declaration.
//
// For many-to-many relationships whose join type is a registered resource the proxy works
// on the join rows, so hooks fire for them and the far side is reached one layer later.
// Otherwise the join rows are skipped and the proxy reads and writes far-side resources.
type RelationshipProxy struct {
	relationship    *resource.Relationship
	rightType       reflect.Type
	isContext       bool
	skipThroughType bool
}

func newRelationshipProxy(rel *resource.Relationship, rightType reflect.Type, isContext bool) *RelationshipProxy {
	return &RelationshipProxy{
		relationship:    rel,
		rightType:       rightType,
		isContext:       isContext,
		skipThroughType: rel.IsThrough() && rightType != rel.ThroughType,
	}
}

// Relationship returns the wrapped declaration
func (p *RelationshipProxy) Relationship() *resource.Relationship {
	return p.relationship
}

// LeftType returns the declaring type
func (p *RelationshipProxy) LeftType() reflect.Type {
	return p.relationship.LeftType
}

// RightType returns the type of the resources the proxy yields
func (p *RelationshipProxy) RightType() reflect.Type {
	return p.rightType
}

// IsContextRelation returns true if the current operation explicitly sets this relationship
func (p *RelationshipProxy) IsContextRelation() bool {
	return p.isContext
}

// IsToOne returns true if the proxy yields at most one resource per owner
func (p *RelationshipProxy) IsToOne() bool {
	return p.relationship.IsToOne()
}

// GetValue returns the related resources of owner, or nil if the relationship is unset
func (p *RelationshipProxy) GetValue(owner resource.Identifiable) []resource.Identifiable {
	if p.relationship.IsThrough() && !p.skipThroughType {
		return p.relationship.JoinRows(owner)
	}
	return p.relationship.Value(owner)
}

// SetValue writes values onto owner. When join rows are skipped only the existing join rows
// whose far side is among values are kept.
func (p *RelationshipProxy) SetValue(owner resource.Identifiable, values []resource.Identifiable) {
	if p.relationship.IsThrough() && !p.skipThroughType {
		p.relationship.SetJoinRows(owner, values)
		return
	}
	p.relationship.SetValue(owner, values)
}

// String returns the relationship name and effective right type
func (p *RelationshipProxy) String() string {
	return p.relationship.String() + " -> " + p.rightType.String()
}
