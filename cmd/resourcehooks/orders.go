package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/resourcehooks/internal/config"
	"github.com/conduit-lang/resourcehooks/internal/orm/hooks"
	"github.com/conduit-lang/resourcehooks/internal/orm/resource"
)

func newOrdersCmd(configPath *string) *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Read orders through the hook engine",
	}

	ordersCmd.AddCommand(&cobra.Command{
		Use:   "show <id>...",
		Short: "Show orders with their customer and line items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := cfg.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := newShop(cfg, db, logger)
			if err != nil {
				return err
			}
			return s.showOrders(cmd.Context(), args, cmd.OutOrStdout())
		},
	})

	return ordersCmd
}

// showOrders loads the orders with ids and prints what the hooks let through
func (s *shop) showOrders(ctx context.Context, ids []string, out io.Writer) error {
	customer, err := s.graph.Relationship(orderType, "customer")
	if err != nil {
		return err
	}
	lineItems, err := s.graph.Relationship(orderType, "line-items")
	if err != nil {
		return err
	}

	e, err := s.executor(hooks.TargetedFields{
		Includes: [][]*resource.Relationship{{customer}, {lineItems}},
	})
	if err != nil {
		return err
	}

	pipeline, single := hooks.PipelineGet, ""
	if len(ids) == 1 {
		pipeline, single = hooks.PipelineGetSingle, ids[0]
	}

	if err := hooks.ExecuteBeforeRead[*Order](ctx, e, pipeline, single); err != nil {
		return err
	}

	loaded, err := s.repo.LoadWithRelationships(ctx, orderType, ids, []*resource.Relationship{customer, lineItems})
	if err != nil {
		return err
	}
	orders := make([]*Order, 0, len(loaded))
	for _, r := range loaded {
		orders = append(orders, r.(*Order))
	}

	if orders, err = hooks.ExecuteAfterRead(ctx, e, orders, pipeline); err != nil {
		return err
	}
	if orders, err = hooks.ExecuteOnReturn(ctx, e, orders, pipeline); err != nil {
		return err
	}

	if len(orders) == 0 {
		fmt.Fprintln(out, "no orders found")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(out, "order %s (%s)", o.ID, o.Status)
		if o.Customer != nil {
			fmt.Fprintf(out, " customer %s %s", o.Customer.ID, o.Customer.Name)
		}
		fmt.Fprintln(out)
		for _, item := range o.LineItems {
			fmt.Fprintf(out, "  %s %s x%d\n", item.ID, item.SKU, item.Quantity)
		}
	}
	return nil
}
