package hooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

func TestRelationshipProxy_SkipsJoinRows(t *testing.T) {
	g := newTestGraph(t, false)
	rel := relationshipOf(t, g, orderType, "tags")
	proxy := newRelationshipProxy(rel, rel.RightType, false)

	rush, gift := &tag{ID: "rush"}, &tag{ID: "gift"}
	o := &order{ID: "o1"}
	assert.Nil(t, proxy.GetValue(o))

	o.OrderTags = []*orderTag{{ID: "ot1", Order: o, Tag: rush}, {ID: "ot2", Order: o, Tag: gift}}
	assert.Equal(t, []resource.Identifiable{rush, gift}, proxy.GetValue(o))
	assert.Equal(t, tagType, proxy.RightType())
	assert.Equal(t, orderType, proxy.LeftType())
	assert.False(t, proxy.IsToOne())

	proxy.SetValue(o, []resource.Identifiable{gift})
	require.Len(t, o.OrderTags, 1)
	assert.Equal(t, "ot2", o.OrderTags[0].ID)
}

func TestRelationshipProxy_JoinRows(t *testing.T) {
	g := newTestGraph(t, true)
	rel := relationshipOf(t, g, orderType, "tags")
	proxy := newRelationshipProxy(rel, rel.ThroughType, true)

	o := &order{ID: "o1"}
	ot1 := &orderTag{ID: "ot1", Order: o, Tag: &tag{ID: "rush"}}
	ot2 := &orderTag{ID: "ot2", Order: o, Tag: &tag{ID: "gift"}}
	o.OrderTags = []*orderTag{ot1, ot2}

	assert.True(t, proxy.IsContextRelation())
	assert.Equal(t, orderTagType, proxy.RightType())
	assert.Equal(t, []resource.Identifiable{ot1, ot2}, proxy.GetValue(o))

	proxy.SetValue(o, []resource.Identifiable{ot2})
	assert.Equal(t, []*orderTag{ot2}, o.OrderTags)
}

func TestRelationshipProxy_ToOne(t *testing.T) {
	g := newTestGraph(t, false)
	rel := relationshipOf(t, g, orderType, "customer")
	proxy := newRelationshipProxy(rel, rel.RightType, false)

	c := &customer{ID: "c1"}
	o := &order{ID: "o1", Customer: c}

	assert.True(t, proxy.IsToOne())
	assert.Equal(t, []resource.Identifiable{c}, proxy.GetValue(o))

	proxy.SetValue(o, nil)
	assert.Nil(t, o.Customer)
	assert.Nil(t, proxy.GetValue(o))
	assert.Contains(t, proxy.String(), "customer")
}
