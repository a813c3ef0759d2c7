package service

import (
	"context"
	"fmt"
	"log"

	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/enum"
)

// DemandResolver computes ingredient demand for placed lines.
// Satisfied by *IngredientResolver.
type DemandResolver interface {
	Resolve(ctx context.Context, lines []PlacedLine) (Demand, error)
}

// DemandApplier applies demand to stock.
// Satisfied by *StockReconciler.
type DemandApplier interface {
	Apply(ctx context.Context, demand Demand) ReconcileResult
}

// StockRPCStore calls the server-side decrement function.
// Satisfied by *database.Queries.
type StockRPCStore interface {
	DecreaseInventoryForMenuItem(ctx context.Context, arg database.DecreaseInventoryForMenuItemParams) error
}

// InventoryConsumer consumes stock for placed orders using one of two
// mutually exclusive strategies: resolve + reconcile in Go, or the
// decrease_inventory_for_menu_item SQL function per line.
type InventoryConsumer struct {
	mode       string
	resolver   DemandResolver
	reconciler DemandApplier
	rpc        StockRPCStore
}

// NewInventoryConsumer validates mode and returns a consumer for it.
func NewInventoryConsumer(mode string, resolver DemandResolver, reconciler DemandApplier, rpc StockRPCStore) (*InventoryConsumer, error) {
	switch mode {
	case enum.InventoryModeReconcile:
		if resolver == nil || reconciler == nil {
			return nil, fmt.Errorf("inventory mode %q needs a resolver and a reconciler", mode)
		}
	case enum.InventoryModeRPC:
		if rpc == nil {
			return nil, fmt.Errorf("inventory mode %q needs a stock RPC store", mode)
		}
	default:
		return nil, fmt.Errorf("unknown inventory mode %q", mode)
	}
	return &InventoryConsumer{mode: mode, resolver: resolver, reconciler: reconciler, rpc: rpc}, nil
}

// OrderPlaced implements OrderPlacedHook.
func (c *InventoryConsumer) OrderPlaced(ctx context.Context, evt OrderPlaced) error {
	if c.mode == enum.InventoryModeRPC {
		return c.consumeRPC(ctx, evt)
	}
	_, err := c.Reconcile(ctx, evt.Lines)
	if err != nil {
		return fmt.Errorf("order %s: %w", evt.OrderNumber, err)
	}
	return nil
}

// Reconcile resolves and applies demand for lines. Per-item failures are in
// the result; the error is set when the demand could not be computed or when
// any item failed.
func (c *InventoryConsumer) Reconcile(ctx context.Context, lines []PlacedLine) (ReconcileResult, error) {
	demand, err := c.resolver.Resolve(ctx, lines)
	if err != nil {
		return ReconcileResult{}, err
	}
	if len(demand) == 0 {
		return ReconcileResult{}, nil
	}
	result := c.reconciler.Apply(ctx, demand)
	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%d of %d inventory items not reconciled", len(result.Failed), len(demand))
	}
	return result, nil
}

func (c *InventoryConsumer) consumeRPC(ctx context.Context, evt OrderPlaced) error {
	failed := 0
	for i, l := range evt.Lines {
		if l.Kind != enum.LineKindMenuItem {
			continue
		}
		err := c.rpc.DecreaseInventoryForMenuItem(ctx, database.DecreaseInventoryForMenuItemParams{
			MenuItemID: l.ID,
			Qty:        l.Quantity,
		})
		if err != nil {
			log.Printf("ERROR: order %s line[%d]: decrease inventory for menu item %s: %v", evt.OrderNumber, i, l.ID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("order %s: %d lines failed to decrease inventory", evt.OrderNumber, failed)
	}
	return nil
}

// NewQueriesInventoryConsumer wires an InventoryConsumer to the database.
func NewQueriesInventoryConsumer(mode string, q *database.Queries, pool TxBeginner, notifier LowStockNotifier) (*InventoryConsumer, error) {
	reconciler := NewStockReconciler(pool, func(db database.DBTX) StockStore {
		return database.New(db)
	}, notifier)
	return NewInventoryConsumer(mode, NewIngredientResolver(q), reconciler, q)
}
