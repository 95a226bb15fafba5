package store

import (
	"fmt"

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
	Quantity int64
}

func (l *lineItem) GetStringID() string { return l.ID }

type tag struct {
	ID   string
	Name string
}

func (t *tag) GetStringID() string { return t.ID }

type orderTag struct {
	Order *order
	Tag   *tag
}

func newTestGraph() (*resource.Graph, error) {
	g := resource.NewGraph()
	if err := resource.Register[*customer](g, "customers",
		resource.HasMany[*order]("orders", "Orders").WithInverse("customer"),
	); err != nil {
		return nil, err
	}
	if err := resource.Register[*order](g, "orders",
		resource.HasOne[*customer]("customer", "Customer").WithInverse("orders"),
		resource.HasMany[*lineItem]("line-items", "LineItems"),
		resource.HasManyThrough[*tag, *orderTag]("tags", "OrderTags", "Order", "Tag"),
	); err != nil {
		return nil, err
	}
	if err := resource.Register[*lineItem](g, "line-items"); err != nil {
		return nil, err
	}
	if err := resource.Register[*tag](g, "tags"); err != nil {
		return nil, err
	}
	return g, nil
}

func decodeCustomer(record Record) (resource.Identifiable, error) {
	return &customer{ID: fmt.Sprint(record["id"]), Name: fmt.Sprint(record["name"])}, nil
}

func decodeOrder(record Record) (resource.Identifiable, error) {
	return &order{ID: fmt.Sprint(record["id"])}, nil
}

func decodeLineItem(record Record) (resource.Identifiable, error) {
	quantity, ok := record["quantity"].(int64)
	if !ok {
		return nil, fmt.Errorf("quantity must be an integer, got %T", record["quantity"])
	}
	return &lineItem{ID: fmt.Sprint(record["id"]), Quantity: quantity}, nil
}

func decodeTag(record Record) (resource.Identifiable, error) {
	return &tag{ID: fmt.Sprint(record["id"]), Name: fmt.Sprint(record["name"])}, nil
}
