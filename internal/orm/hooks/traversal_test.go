package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

func TestTraversal_CreateRootNode(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	o1 := &order{ID: "o1", Customer: &customer{ID: "c1"}}
	o2 := &order{ID: "o2"}
	root := walk.createRootNode(orderType, erase([]*order{o1, o2, {ID: "o1"}}))

	assert.Equal(t, []string{"o1", "o2"}, resource.StringIDs(root.unique))
	assert.Same(t, o1, root.unique[0].(*order), "first occurrences are kept")
	assert.Len(t, root.original, 3)

	require.Len(t, root.populated, 1)
	assert.Equal(t, "customer", root.populated[0].Relationship().Name)
	assert.Len(t, root.all, 3)

	// A second root in the same traversal starts over
	again := walk.createRootNode(orderType, erase([]*order{o1}))
	assert.Equal(t, []string{"o1"}, resource.StringIDs(again.unique))
}

func TestTraversal_CreateNextLayer(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	c1 := &customer{ID: "c1"}
	o1 := &order{ID: "o1", Customer: c1, LineItems: []*lineItem{{ID: "l1"}, {ID: "l2"}}}
	o2 := &order{ID: "o2", Customer: &customer{ID: "c1"}, LineItems: []*lineItem{{ID: "l2"}}}
	o3 := &order{ID: "o3"}
	c1.Orders = []*order{o1, o2}

	root := walk.createRootNode(orderType, erase([]*order{o1, o2, o3}))
	next := walk.createNextLayer([]node{root})

	require.Len(t, next.nodes, 2)
	customers := next.nodes[0].(*childNode)
	items := next.nodes[1].(*childNode)

	assert.Equal(t, customerType, customers.typ, "nodes are created in discovery order")
	assert.Equal(t, []string{"c1"}, resource.StringIDs(customers.uniqueResources()))
	require.Len(t, customers.groups, 1)
	assert.Equal(t, []string{"o1", "o2"}, resource.StringIDs(customers.groups[0].lefts))

	assert.Equal(t, lineItemType, items.typ)
	assert.Equal(t, []string{"l1", "l2"}, resource.StringIDs(items.uniqueResources()))

	// c1 points back at the roots, which were already visited
	final := walk.createNextLayer(next.nodes)
	assert.False(t, final.anyResources())
	assert.Empty(t, final.nodes)
}

func TestTraversal_RegistryResetPerRoot(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	shared := &order{ID: "o1"}
	items := []*lineItem{{ID: "l1", Order: shared}}
	c := &customer{ID: "c1", Orders: []*order{shared}}
	shared.LineItems = items

	root := walk.createRootNode(lineItemType, erase(items))
	layer1 := walk.createNextLayer([]node{root})
	require.Len(t, layer1.nodes, 1)
	assert.Equal(t, []string{"o1"}, resource.StringIDs(layer1.nodes[0].uniqueResources()))

	// o1.Customer was never set: nothing below
	assert.Empty(t, walk.createNextLayer(layer1.nodes).nodes)

	// A new root starts with an empty registry, so l1 is reached again
	root = walk.createRootNode(customerType, erase([]*customer{c}))
	layer1 = walk.createNextLayer([]node{root})
	require.Len(t, layer1.nodes, 1)
	layer2 := walk.createNextLayer(layer1.nodes)
	require.Len(t, layer2.nodes, 1)
	assert.Equal(t, []string{"l1"}, resource.StringIDs(layer2.nodes[0].uniqueResources()))
	assert.Empty(t, walk.createNextLayer(layer2.nodes).nodes)
}

func TestTraversal_ContextRelationshipVisitedWhenEmpty(t *testing.T) {
	g := newTestGraph(t, false)
	lineItems := relationshipOf(t, g, orderType, "line-items")

	o := &order{ID: "o1"}

	walk := newTraversal(g, nil)
	root := walk.createRootNode(orderType, erase([]*order{o}))
	assert.Empty(t, root.populated)
	assert.Empty(t, walk.createNextLayer([]node{root}).nodes)

	walk = newTraversal(g, []*resource.Relationship{lineItems})
	root = walk.createRootNode(orderType, erase([]*order{o}))
	require.Len(t, root.populated, 1)
	assert.True(t, root.populated[0].IsContextRelation())

	next := walk.createNextLayer([]node{root})
	require.Len(t, next.nodes, 1)
	child := next.nodes[0].(*childNode)
	assert.Empty(t, child.uniqueResources())
	assert.Equal(t, []string{"o1"}, resource.StringIDs(child.groups[0].lefts))
	assert.False(t, next.anyResources())
}

func TestTraversal_ThroughRightType(t *testing.T) {
	tags := func(g *resource.Graph) *RelationshipProxy {
		walk := newTraversal(g, nil)
		walk.registerProxies(orderType)
		for _, p := range walk.relationshipsOf(orderType) {
			if p.Relationship().Name == "tags" {
				return p
			}
		}
		return nil
	}

	skipped := tags(newTestGraph(t, false))
	require.NotNil(t, skipped)
	assert.Equal(t, tagType, skipped.RightType())

	addressable := tags(newTestGraph(t, true))
	require.NotNil(t, addressable)
	assert.Equal(t, orderTagType, addressable.RightType())
}

func TestChildNode_UpdateAndReassign(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	l1, l2, l3 := &lineItem{ID: "l1"}, &lineItem{ID: "l2"}, &lineItem{ID: "l3"}
	o1 := &order{ID: "o1", LineItems: []*lineItem{l1, l2}}
	o2 := &order{ID: "o2", LineItems: []*lineItem{l3}}

	root := walk.createRootNode(orderType, erase([]*order{o1, o2}))
	child := walk.createNextLayer([]node{root}).nodes[0].(*childNode)

	child.updateUnique([]resource.Identifiable{l1, l3, &lineItem{ID: "unknown"}})
	assert.Equal(t, []string{"l1", "l3"}, resource.StringIDs(child.uniqueResources()))

	child.reassign()
	assert.Equal(t, []*lineItem{l1}, o1.LineItems)
	assert.Equal(t, []*lineItem{l3}, o2.LineItems)
}

func TestRootNode_Result(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	o1, o2, o3 := &order{ID: "o1"}, &order{ID: "o2"}, &order{ID: "o3"}
	original := erase([]*order{o1, o2, o3, o1})
	root := walk.createRootNode(orderType, original)

	out, changed := root.result()
	assert.False(t, changed)
	assert.Equal(t, original, out)

	root.updateUnique([]resource.Identifiable{o3, o1, &order{ID: "o4"}})
	assert.Equal(t, []string{"o1", "o3"}, resource.StringIDs(root.unique))

	out, changed = root.result()
	assert.True(t, changed)
	assert.Equal(t, []string{"o1", "o3", "o1"}, resource.StringIDs(out))
}

func TestRootNode_LeftsToNextLayerByRelationships(t *testing.T) {
	g := newTestGraph(t, false)
	walk := newTraversal(g, nil)

	root := walk.createRootNode(orderType, erase([]*order{{ID: "o1"}}))
	targets := root.leftsToNextLayerByRelationships()

	require.Len(t, targets, 3)
	assert.Equal(t, customerType, targets[0].rightType)
	assert.Equal(t, lineItemType, targets[1].rightType)
	assert.Equal(t, tagType, targets[2].rightType)
	for _, target := range targets {
		require.Len(t, target.entries, 1)
		assert.Equal(t, []string{"o1"}, resource.StringIDs(target.entries[0].resources))
	}
}
