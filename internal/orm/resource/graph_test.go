package resource

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Register(t *testing.T) {
	g, err := newTestGraph()
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	orderType := TypeOf(&order{})
	assert.True(t, g.IsRegistered(orderType))
	assert.Equal(t, "orders", g.ResourceName(orderType))
	assert.Equal(t, "orderTag", g.ResourceName(reflect.TypeFor[*orderTag]()))

	rels := g.Relationships(orderType)
	require.Len(t, rels, 3)
	assert.Equal(t, "customer", rels[0].Name)
	assert.Equal(t, orderType, rels[0].LeftType)
	assert.Equal(t, "order.customer", rels[0].String())
}

func TestGraph_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(g *Graph) error
		wantErr error
	}{
		{
			name: "duplicate type",
			setup: func(g *Graph) error {
				_ = Register[*tag](g, "tags")
				return Register[*tag](g, "labels")
			},
			wantErr: ErrDuplicateType,
		},
		{
			name: "duplicate name",
			setup: func(g *Graph) error {
				_ = Register[*tag](g, "tags")
				return Register[*lineItem](g, "tags")
			},
			wantErr: ErrDuplicateType,
		},
		{
			name: "missing field",
			setup: func(g *Graph) error {
				return Register[*order](g, "orders", HasOne[*customer]("customer", "Buyer"))
			},
			wantErr: ErrInvalidRelationship,
		},
		{
			name: "field of wrong type",
			setup: func(g *Graph) error {
				return Register[*order](g, "orders", HasMany[*tag]("line-items", "LineItems"))
			},
			wantErr: ErrInvalidRelationship,
		},
		{
			name: "join field of wrong type",
			setup: func(g *Graph) error {
				return Register[*order](g, "orders", HasManyThrough[*lineItem, *orderTag]("tags", "OrderTags", "Order", "Tag"))
			},
			wantErr: ErrInvalidRelationship,
		},
		{
			name: "declared twice",
			setup: func(g *Graph) error {
				return Register[*order](g, "orders",
					HasOne[*customer]("customer", "Customer"),
					HasOne[*customer]("customer", "Customer"),
				)
			},
			wantErr: ErrInvalidRelationship,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup(NewGraph())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGraph_RegisterSharedDeclaration(t *testing.T) {
	g := NewGraph()
	orders := HasMany[*order]("orders", "Orders")
	require.NoError(t, Register[*customer](g, "customers", orders))

	err := Register[*customer](NewGraph(), "customers", orders)
	assert.ErrorIs(t, err, ErrInvalidRelationship)
	assert.Equal(t, TypeOf(&customer{}), orders.LeftType, "the first binding is kept")

	// A declaration from a failed registration can be used again
	tags := HasManyThrough[*tag, *orderTag]("tags", "OrderTags", "Order", "Tag")
	err = Register[*order](g, "orders", tags, HasOne[*customer]("customer", "Buyer"))
	assert.ErrorIs(t, err, ErrInvalidRelationship)
	assert.Nil(t, tags.LeftType)
	require.NoError(t, Register[*order](g, "orders", tags))
}

func TestGraph_ValidateInverse(t *testing.T) {
	g := NewGraph()
	require.NoError(t, Register[*customer](g, "customers",
		HasMany[*order]("orders", "Orders").WithInverse("buyer"),
	))
	require.NoError(t, Register[*order](g, "orders"))

	err := g.Validate()
	assert.ErrorIs(t, err, ErrUnknownRelationship)
}

func TestGraph_Inverse(t *testing.T) {
	g, err := newTestGraph()
	require.NoError(t, err)

	rel, err := g.Relationship(TypeOf(&order{}), "customer")
	require.NoError(t, err)

	inverse := g.Inverse(rel)
	require.NotNil(t, inverse)
	assert.Equal(t, "orders", inverse.Name)

	lineItems, err := g.Relationship(TypeOf(&order{}), "line-items")
	require.NoError(t, err)
	assert.Nil(t, g.Inverse(lineItems))
}

func TestGraph_Relationship_Unknown(t *testing.T) {
	g, err := newTestGraph()
	require.NoError(t, err)

	_, err = g.Relationship(TypeOf(&order{}), "shipments")
	assert.ErrorIs(t, err, ErrUnknownRelationship)

	_, err = g.Relationship(reflect.TypeFor[*orderTag](), "tag")
	assert.ErrorIs(t, err, ErrUnregisteredType)
}

func TestGraph_Reachable(t *testing.T) {
	g, err := newTestGraph()
	require.NoError(t, err)

	reachable := g.Reachable(TypeOf(&lineItem{}))
	assert.Equal(t, []reflect.Type{TypeOf(&lineItem{})}, reachable)

	reachable = g.Reachable(TypeOf(&customer{}))
	assert.ElementsMatch(t, []reflect.Type{
		TypeOf(&customer{}),
		TypeOf(&order{}),
		TypeOf(&lineItem{}),
		TypeOf(&tag{}),
		reflect.TypeFor[*orderTag](),
	}, reachable)
}
