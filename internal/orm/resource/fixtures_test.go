package resource

type customer struct {
	ID     string
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
}

func (l *lineItem) GetStringID() string { return l.ID }

type tag struct {
	ID string
}

func (t *tag) GetStringID() string { return t.ID }

type orderTag struct {
	Order *order
	Tag   *tag
}

func newTestGraph() (*Graph, error) {
	g := NewGraph()
	if err := Register[*customer](g, "customers",
		HasMany[*order]("orders", "Orders").WithInverse("customer"),
	); err != nil {
		return nil, err
	}
	if err := Register[*order](g, "orders",
		HasOne[*customer]("customer", "Customer").WithInverse("orders"),
		HasMany[*lineItem]("line-items", "LineItems"),
		HasManyThrough[*tag, *orderTag]("tags", "OrderTags", "Order", "Tag"),
	); err != nil {
		return nil, err
	}
	if err := Register[*lineItem](g, "line-items"); err != nil {
		return nil, err
	}
	if err := Register[*tag](g, "tags"); err != nil {
		return nil, err
	}
	return g, nil
}
