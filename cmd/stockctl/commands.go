package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restodesk/api/internal/config"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
	"github.com/restodesk/api/internal/service"
	"github.com/spf13/cobra"
)

type options struct {
	databaseURL   string
	inventoryMode string
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &options{}

	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "Inspect and reconcile ingredient stock",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection URL")
	root.PersistentFlags().StringVar(&opts.inventoryMode, "inventory-mode", cfg.InventoryMode, "reconcile or rpc")

	root.AddCommand(newDemandCmd(opts), newReconcileCmd(opts), newLowStockCmd(opts))
	return root
}

func newDemandCmd(opts *options) *cobra.Command {
	var lines []string
	var restaurant, order string
	cmd := &cobra.Command{
		Use:   "demand (--line kind:id:qty ... | --restaurant <id> --order <id>)",
		Short: "Print the ingredient demand of order lines without touching stock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(lines) == 0 && order == "" {
				return fmt.Errorf("either --line or --order is required")
			}
			placed, err := parseLines(lines)
			if err != nil {
				return err
			}
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool) error {
				q := database.New(pool)
				if order != "" {
					evt, err := loadOrder(ctx, q, restaurant, order)
					if err != nil {
						return err
					}
					placed = append(placed, evt.Lines...)
				}
				demand, err := service.NewIngredientResolver(q).Resolve(ctx, placed)
				if err != nil {
					return err
				}
				printDemand(cmd.OutOrStdout(), demand)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&lines, "line", nil, "order line as kind:id:quantity (repeatable)")
	cmd.Flags().StringVar(&restaurant, "restaurant", "", "restaurant id of --order")
	cmd.Flags().StringVar(&order, "order", "", "existing order id")
	cmd.MarkFlagsRequiredTogether("restaurant", "order")
	return cmd
}

func newReconcileCmd(opts *options) *cobra.Command {
	var restaurant, order string
	cmd := &cobra.Command{
		Use:   "reconcile --restaurant <id> --order <id>",
		Short: "Consume stock for an existing order",
		Long:  "Consume stock for an existing order. Stock is decremented again even if the order was already reconciled.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool) error {
				q := database.New(pool)
				evt, err := loadOrder(ctx, q, restaurant, order)
				if err != nil {
					return err
				}
				consumer, err := service.NewQueriesInventoryConsumer(opts.inventoryMode, q, pool, service.LogLowStock)
				if err != nil {
					return err
				}
				if opts.inventoryMode == enum.InventoryModeRPC {
					return consumer.OrderPlaced(ctx, evt)
				}
				result, err := consumer.Reconcile(ctx, evt.Lines)
				printResult(cmd.OutOrStdout(), result)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&restaurant, "restaurant", "", "restaurant id")
	cmd.Flags().StringVar(&order, "order", "", "order id")
	cmd.MarkFlagRequired("restaurant") //nolint:errcheck
	cmd.MarkFlagRequired("order")      //nolint:errcheck
	return cmd
}

func newLowStockCmd(opts *options) *cobra.Command {
	var restaurant string
	cmd := &cobra.Command{
		Use:   "low-stock [--restaurant <id>]",
		Short: "Log every inventory item below its minimum",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool) error {
				var store service.LowStockStore = database.New(pool)
				if restaurant != "" {
					rid, err := uuid.Parse(restaurant)
					if err != nil {
						return fmt.Errorf("invalid restaurant id: %w", err)
					}
					store = restaurantLowStock{q: database.New(pool), restaurantID: rid}
				}
				n, err := service.NewLowStockSweeper(store, service.LogLowStock).Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d items below minimum\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&restaurant, "restaurant", "", "only this restaurant")
	return cmd
}

// restaurantLowStock narrows the sweep to one restaurant.
type restaurantLowStock struct {
	q            *database.Queries
	restaurantID uuid.UUID
}

func (s restaurantLowStock) ListAllLowStockInventory(ctx context.Context) ([]database.Inventory, error) {
	return s.q.ListLowStockInventory(ctx, s.restaurantID)
}

// --- Helpers ---

func withPool(ctx context.Context, opts *options, fn func(context.Context, *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func loadOrder(ctx context.Context, q *database.Queries, restaurant, order string) (service.OrderPlaced, error) {
	rid, err := uuid.Parse(restaurant)
	if err != nil {
		return service.OrderPlaced{}, fmt.Errorf("invalid restaurant id: %w", err)
	}
	oid, err := uuid.Parse(order)
	if err != nil {
		return service.OrderPlaced{}, fmt.Errorf("invalid order id: %w", err)
	}
	o, err := q.GetOrder(ctx, database.GetOrderParams{ID: oid, RestaurantID: rid})
	if err != nil {
		return service.OrderPlaced{}, fmt.Errorf("load order: %w", err)
	}
	items, err := q.ListOrderItemsByOrder(ctx, oid)
	if err != nil {
		return service.OrderPlaced{}, fmt.Errorf("load order items: %w", err)
	}
	return service.OrderPlaced{
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		OrderNumber:  o.OrderNumber,
		Lines:        service.PlacedLinesFromRows(items),
	}, nil
}

// parseLines parses kind:id:quantity triples.
func parseLines(raw []string) ([]service.PlacedLine, error) {
	lines := make([]service.PlacedLine, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %q: want kind:id:quantity", s)
		}
		kind := parts[0]
		if kind != enum.LineKindMenuItem && kind != enum.LineKindMenuSet {
			return nil, fmt.Errorf("line %q: kind must be %s or %s", s, enum.LineKindMenuItem, enum.LineKindMenuSet)
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return nil, fmt.Errorf("line %q: invalid id", s)
		}
		qty, err := strconv.Atoi(parts[2])
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("line %q: quantity must be > 0", s)
		}
		lines = append(lines, service.PlacedLine{Kind: kind, ID: id, Quantity: int32(qty)})
	}
	return lines, nil
}

func printDemand(w io.Writer, d service.Demand) {
	if len(d) == 0 {
		fmt.Fprintln(w, "no ingredients required")
		return
	}
	for _, id := range d.InventoryIDs() {
		fmt.Fprintf(w, "%s\t%s\n", id, d[id].String())
	}
}

func printResult(w io.Writer, r service.ReconcileResult) {
	for _, c := range r.Applied {
		fmt.Fprintf(w, "%s\t%s\t%s -> %s", c.InventoryID, c.Name, c.Previous.String(), c.New.String())
		if c.Shortfall.IsPositive() {
			fmt.Fprintf(w, "\tshort %s", c.Shortfall.String())
		}
		fmt.Fprintln(w)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "%s\tFAILED\t%v\n", f.InventoryID, f.Err)
	}
}
