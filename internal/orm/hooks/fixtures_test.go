package hooks

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

type customer struct {
	ID     string
	Name   string
	Orders []*order
}

func (c *customer) GetStringID() string { return c.ID }

type order struct {
	ID        string
	Customer  *customer
	LineItems []*lineItem
	OrderTags []*orderTag
}

func (o *order) GetStringID() string { return o.ID }

type lineItem struct {
	ID       string
	Quantity int
	Order    *order
}

func (l *lineItem) GetStringID() string { return l.ID }

type tag struct {
	ID string
}

func (t *tag) GetStringID() string { return t.ID }

type orderTag struct {
	ID    string
	Order *order
	Tag   *tag
}

func (o *orderTag) GetStringID() string { return o.ID }

var (
	customerType = reflect.TypeFor[*customer]()
	orderType    = reflect.TypeFor[*order]()
	lineItemType = reflect.TypeFor[*lineItem]()
	tagType      = reflect.TypeFor[*tag]()
	orderTagType = reflect.TypeFor[*orderTag]()
)

// newTestGraph registers customers, orders, line items and tags. With joinRows the order
// tag join type is registered too, which makes it hook addressable.
func newTestGraph(t *testing.T, joinRows bool) *resource.Graph {
	t.Helper()

	g := resource.NewGraph()
	require.NoError(t, resource.Register[*customer](g, "customers",
		resource.HasMany[*order]("orders", "Orders").WithInverse("customer"),
	))
	require.NoError(t, resource.Register[*order](g, "orders",
		resource.HasOne[*customer]("customer", "Customer").WithInverse("orders"),
		resource.HasMany[*lineItem]("line-items", "LineItems").WithInverse("order"),
		resource.HasManyThrough[*tag, *orderTag]("tags", "OrderTags", "Order", "Tag"),
	))
	require.NoError(t, resource.Register[*lineItem](g, "line-items",
		resource.HasOne[*order]("order", "Order").WithInverse("line-items"),
	))
	require.NoError(t, resource.Register[*tag](g, "tags"))
	if joinRows {
		require.NoError(t, resource.Register[*orderTag](g, "order-tags",
			resource.HasOne[*order]("order", "Order"),
			resource.HasOne[*tag]("tag", "Tag"),
		))
	}
	return g
}

func relationshipOf(t *testing.T, g *resource.Graph, typ reflect.Type, name string) *resource.Relationship {
	t.Helper()

	rel, err := g.Relationship(typ, name)
	require.NoError(t, err)
	return rel
}

func newTestExecutor(t *testing.T, g *resource.Graph, factory ContainerFactory, configure ...func(*Config)) *Executor {
	t.Helper()

	config := DefaultConfig(g, factory)
	for _, fn := range configure {
		fn(config)
	}
	e, err := NewExecutor(config)
	require.NoError(t, err)
	return e
}

// hookCall is one recorded hook invocation
type hookCall struct {
	hook     Kind
	resource string
	ids      []string
	included bool
}

// recorder collects hook invocations in call order
type recorder struct {
	calls []hookCall
}

func record[T resource.Identifiable](r *recorder, hook Kind, name string, items []T, included bool) {
	r.calls = append(r.calls, hookCall{hook: hook, resource: name, ids: ids(items), included: included})
}

func (r *recorder) count(hook Kind, resource string) int {
	n := 0
	for _, c := range r.calls {
		if c.hook == hook && c.resource == resource {
			n++
		}
	}
	return n
}

func (r *recorder) find(hook Kind, resource string) (hookCall, bool) {
	for _, c := range r.calls {
		if c.hook == hook && c.resource == resource {
			return c, true
		}
	}
	return hookCall{}, false
}

func ids[T resource.Identifiable](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.GetStringID())
	}
	return out
}

func without[T resource.Identifiable](items []T, drop ...string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		keep := true
		for _, id := range drop {
			if item.GetStringID() == id {
				keep = false
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out
}
