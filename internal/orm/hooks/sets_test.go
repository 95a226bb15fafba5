package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

func TestRelationshipsDictionary(t *testing.T) {
	g := newTestGraph(t, false)
	customerRel := relationshipOf(t, g, orderType, "customer")
	itemsRel := relationshipOf(t, g, orderType, "line-items")
	tagsRel := relationshipOf(t, g, orderType, "tags")

	o1, o2 := &order{ID: "o1"}, &order{ID: "o2"}
	dict := newRelationshipsDictionary[*order]([]relationshipEntry{
		{relationship: itemsRel, resources: erase([]*order{o1})},
		{relationship: customerRel, resources: erase([]*order{o2})},
		{relationship: itemsRel, resources: erase([]*order{o2})},
		{relationship: tagsRel, resources: erase([]*order{o1})},
	})

	assert.Equal(t, 3, dict.Len())
	assert.Equal(t, []*resource.Relationship{itemsRel, customerRel, tagsRel}, dict.Relationships())
	assert.Equal(t, []*order{o1, o2}, dict.Get(itemsRel))
	assert.Equal(t, []*order{o2}, dict.GetAffected("customer"))
	assert.Nil(t, dict.GetAffected("invoices"))

	byCustomer := dict.GetByRelationship(customerType)
	assert.Equal(t, map[*resource.Relationship][]*order{customerRel: {o2}}, byCustomer)

	// Many-to-many relationships match both their far side and their join type
	assert.Len(t, dict.GetByRelationship(tagType), 1)
	assert.Len(t, dict.GetByRelationship(orderTagType), 1)

	_, err := dict.DatabaseValues()
	assert.ErrorIs(t, err, ErrDatabaseValuesDisabled)

	dict.databaseValues, dict.loaded = []*order{o1}, true
	values, err := dict.DatabaseValues()
	require.NoError(t, err)
	assert.Equal(t, []*order{o1}, values)
}

func TestResourceSet(t *testing.T) {
	g := newTestGraph(t, false)
	customerRel := relationshipOf(t, g, orderType, "customer")

	o1, o2 := &order{ID: "o1"}, &order{ID: "o2"}
	set := newResourceSet[*order](erase([]*order{o1, o2}), []relationshipEntry{
		{relationship: customerRel, resources: erase([]*order{o1})},
	})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []*order{o1}, set.GetAffected("customer"))
	assert.Len(t, set.GetByRelationship(customerType), 1)
	assert.Empty(t, set.GetByRelationship(lineItemType))

	// Callers get their own copy
	resources := set.Resources()
	resources[0] = nil
	assert.Same(t, o1, set.Resources()[0])
}

func TestDiffableResourceSet_GetDiffs(t *testing.T) {
	o1, o2 := &order{ID: "o1"}, &order{ID: "o2"}
	stored1, stored2 := &order{ID: "o1"}, &order{ID: "o2"}

	t.Run("not loaded", func(t *testing.T) {
		set := newDiffableResourceSet[*order](erase([]*order{o1}), nil, false, nil, nil)
		_, err := set.GetDiffs()
		assert.ErrorIs(t, err, ErrDatabaseValuesDisabled)
	})

	t.Run("paired by id", func(t *testing.T) {
		set := newDiffableResourceSet[*order](erase([]*order{o1, o2}), erase([]*order{stored2, stored1}), true, nil, nil)
		diffs, err := set.GetDiffs()
		require.NoError(t, err)
		assert.Equal(t, []DiffPair[*order]{
			{Resource: o1, DatabaseValue: stored1},
			{Resource: o2, DatabaseValue: stored2},
		}, diffs)
	})

	t.Run("missing stored value", func(t *testing.T) {
		set := newDiffableResourceSet[*order](erase([]*order{o1, o2}), erase([]*order{stored1}), true, nil, nil)
		_, err := set.GetDiffs()
		assert.ErrorContains(t, err, "no database value for resource o2")
	})

	t.Run("affected by attribute", func(t *testing.T) {
		set := newDiffableResourceSet[*order](erase([]*order{o1}), nil, false, nil, []string{"status"})
		assert.Equal(t, []*order{o1}, set.GetAffectedByAttribute("status"))
		assert.Nil(t, set.GetAffectedByAttribute("note"))
	})
}

func TestTypedAndErase(t *testing.T) {
	assert.Nil(t, erase[*order](nil))
	assert.Nil(t, typed[*order](nil))

	o := &order{ID: "o1"}
	assert.Equal(t, []*order{o}, typed[*order](erase([]*order{o})))
	assert.NotNil(t, typed[*order]([]resource.Identifiable{}))
}

func TestDiffPair_Changes(t *testing.T) {
	stored := &lineItem{ID: "l1", Quantity: 2, Order: &order{ID: "o1"}}
	updated := &lineItem{ID: "l1", Quantity: 5, Order: &order{ID: "o2"}}

	pair := DiffPair[*lineItem]{Resource: updated, DatabaseValue: stored}
	assert.Equal(t, []FieldChange{{Field: "Quantity", OldValue: 2, NewValue: 5}}, pair.Changes())
	assert.True(t, pair.Changed("Quantity"))
	assert.False(t, pair.Changed("Order"), "relationships are not attributes")
	assert.False(t, pair.Changed("ID"))

	var missing DiffPair[*lineItem]
	assert.Nil(t, missing.Changes())
}
