package main

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/resourcehooks/internal/config"
	"github.com/conduit-lang/resourcehooks/internal/orm/hooks"
	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
	"github.com/conduit-lang/resourcehooks/internal/orm/store"
)

// Customer is a shop customer
type Customer struct {
	ID     string
	Name   string
	Orders []*Order
}

func (c *Customer) GetStringID() string { return c.ID }

// Order is a placed order
type Order struct {
	ID        string
	Status    string
	Customer  *Customer
	LineItems []*LineItem
}

func (o *Order) GetStringID() string { return o.ID }

// LineItem is one product line of an order
type LineItem struct {
	ID       string
	SKU      string
	Quantity int64
	Order    *Order
}

func (l *LineItem) GetStringID() string { return l.ID }

var orderType = reflect.TypeFor[*Order]()

// shop wires the order domain to the hook engine
type shop struct {
	graph    *resource.Graph
	repo     *store.SQLRepository
	registry *hooks.Registry
	options  hooks.Options
	logger   *zap.Logger
}

func newShop(cfg *config.Config, db store.Querier, logger *zap.Logger) (*shop, error) {
	g := resource.NewGraph()
	if err := resource.Register[*Customer](g, "customers",
		resource.HasMany[*Order]("orders", "Orders").WithInverse("customer"),
	); err != nil {
		return nil, err
	}
	if err := resource.Register[*Order](g, "orders",
		resource.HasOne[*Customer]("customer", "Customer").WithInverse("orders"),
		resource.HasMany[*LineItem]("line-items", "LineItems").WithInverse("order"),
	); err != nil {
		return nil, err
	}
	if err := resource.Register[*LineItem](g, "line-items",
		resource.HasOne[*Order]("order", "Order").WithInverse("line-items"),
	); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	repo := store.NewSQLRepository(db, g, logger)
	if err := store.Map[*Customer](repo, &store.Table{
		Decode:    decodeCustomer,
		Relations: map[string]*store.Relation{"orders": {Type: store.HasMany}},
	}); err != nil {
		return nil, err
	}
	if err := store.Map[*Order](repo, &store.Table{
		Decode: decodeOrder,
		Relations: map[string]*store.Relation{
			"customer":   {Type: store.BelongsTo},
			"line-items": {Type: store.HasMany, OrderBy: "id"},
		},
	}); err != nil {
		return nil, err
	}
	if err := store.Map[*LineItem](repo, &store.Table{
		Decode:    decodeLineItem,
		Relations: map[string]*store.Relation{"order": {Type: store.BelongsTo}},
	}); err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry()
	if err := registerShopHooks(registry, logger); err != nil {
		return nil, err
	}

	return &shop{
		graph:    g,
		repo:     repo,
		registry: registry,
		options:  cfg.ExecutorOptions(),
		logger:   logger,
	}, nil
}

// registerShopHooks hides cancelled orders and empty order lines from every response
func registerShopHooks(r *hooks.Registry, logger *zap.Logger) error {
	if err := hooks.Register(r, hooks.Definition[*Order]{
		BeforeRead: func(_ context.Context, pipeline hooks.Pipeline, _ bool, id string) error {
			logger.Debug("reading orders", zap.String("pipeline", pipeline.String()), zap.String("id", id))
			return nil
		},
		OnReturn: func(_ context.Context, orders []*Order, _ hooks.Pipeline) ([]*Order, error) {
			visible := make([]*Order, 0, len(orders))
			for _, o := range orders {
				if o.Status != "cancelled" {
					visible = append(visible, o)
				}
			}
			return visible, nil
		},
	}); err != nil {
		return err
	}

	return hooks.Register(r, hooks.Definition[*LineItem]{
		AfterRead: func(_ context.Context, items []*LineItem, _ hooks.Pipeline, _ bool) ([]*LineItem, error) {
			kept := make([]*LineItem, 0, len(items))
			for _, item := range items {
				if item.Quantity > 0 {
					kept = append(kept, item)
				}
			}
			return kept, nil
		},
	})
}

// executor builds the hook executor of one request
func (s *shop) executor(targeted hooks.TargetedFields) (*hooks.Executor, error) {
	return hooks.NewExecutor(&hooks.Config{
		Graph:          s.graph,
		Factory:        s.registry,
		Repository:     s.repo,
		Logger:         s.logger,
		Options:        s.options,
		TargetedFields: targeted,
	})
}

func decodeCustomer(record store.Record) (resource.Identifiable, error) {
	return &Customer{ID: fmt.Sprint(record["id"]), Name: text(record, "name")}, nil
}

func decodeOrder(record store.Record) (resource.Identifiable, error) {
	return &Order{ID: fmt.Sprint(record["id"]), Status: text(record, "status")}, nil
}

func decodeLineItem(record store.Record) (resource.Identifiable, error) {
	quantity, ok := record["quantity"].(int64)
	if !ok {
		return nil, fmt.Errorf("line_items.quantity must be an integer, got %T", record["quantity"])
	}
	return &LineItem{ID: fmt.Sprint(record["id"]), SKU: text(record, "sku"), Quantity: quantity}, nil
}

func text(record store.Record, column string) string {
	if v, ok := record[column]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
