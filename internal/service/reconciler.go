package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/restodesk/api/internal/database"
	"github.com/shopspring/decimal"
)

// StockStore defines the DB methods needed to apply demand to one inventory row.
// Satisfied by *database.Queries (and its WithTx variant).
type StockStore interface {
	GetInventoryStockForUpdate(ctx context.Context, id uuid.UUID) (database.GetInventoryStockForUpdateRow, error)
	UpdateInventoryStock(ctx context.Context, arg database.UpdateInventoryStockParams) error
}

// NewStockStore creates a StockStore from a DBTX (pool or tx).
type NewStockStore func(db database.DBTX) StockStore

// LowStockNotifier is told when an item falls below its minimum.
type LowStockNotifier interface {
	LowStock(ctx context.Context, alert LowStockAlert)
}

// LowStockAlert describes an inventory item under its minimum stock.
type LowStockAlert struct {
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	InventoryID  uuid.UUID       `json:"inventory_id"`
	ItemName     string          `json:"item_name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
}

// StockChange records one applied decrement.
type StockChange struct {
	InventoryID uuid.UUID
	Name        string
	Previous    decimal.Decimal
	Required    decimal.Decimal
	New         decimal.Decimal
	// Shortfall is the part of Required that could not be taken because
	// stock ran out.
	Shortfall decimal.Decimal
}

// StockFailure records an item whose decrement did not happen.
type StockFailure struct {
	InventoryID uuid.UUID
	Required    decimal.Decimal
	Err         error
}

// ReconcileResult is the outcome of one Apply call.
type ReconcileResult struct {
	Applied []StockChange
	Failed  []StockFailure
}

// StockReconciler applies ingredient demand to inventory stock.
type StockReconciler struct {
	pool     TxBeginner
	newStore NewStockStore
	notifier LowStockNotifier
}

// NewStockReconciler creates a StockReconciler. notifier may be nil.
func NewStockReconciler(pool TxBeginner, newStore NewStockStore, notifier LowStockNotifier) *StockReconciler {
	return &StockReconciler{pool: pool, newStore: newStore, notifier: notifier}
}

// Apply decrements stock for every entry in demand, clamping at zero. Each item
// runs in its own transaction with the row locked, in ascending id order. A
// failing item is recorded and skipped; items already applied stay applied.
// Applying the same demand twice decrements twice.
func (r *StockReconciler) Apply(ctx context.Context, demand Demand) ReconcileResult {
	var result ReconcileResult
	for _, id := range demand.InventoryIDs() {
		required := demand[id]
		change, err := r.applyOne(ctx, id, required)
		if err != nil {
			log.Printf("ERROR: reconcile inventory %s: %v", id, err)
			result.Failed = append(result.Failed, StockFailure{InventoryID: id, Required: required, Err: err})
			continue
		}
		if change.Shortfall.IsPositive() {
			log.Printf("WARN: inventory %s (%s) short by %s, clamped to zero",
				change.Name, id, change.Shortfall.String())
		}
		result.Applied = append(result.Applied, change)
	}
	return result
}

func (r *StockReconciler) applyOne(ctx context.Context, id uuid.UUID, required decimal.Decimal) (StockChange, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return StockChange{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := r.newStore(tx)

	row, err := store.GetInventoryStockForUpdate(ctx, id)
	if err != nil {
		return StockChange{}, fmt.Errorf("read stock: %w", err)
	}

	previous := numericToDecimal(row.CurrentStock)
	next := previous.Sub(required)
	shortfall := decimal.Zero
	if next.IsNegative() {
		shortfall = next.Neg()
		next = decimal.Zero
	}

	if err := store.UpdateInventoryStock(ctx, database.UpdateInventoryStockParams{
		ID:           id,
		CurrentStock: stockToNumeric(next),
	}); err != nil {
		return StockChange{}, fmt.Errorf("write stock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return StockChange{}, fmt.Errorf("commit tx: %w", err)
	}

	minStock := numericToDecimal(row.MinStock)
	if r.notifier != nil && crossedBelow(previous, next, minStock) {
		r.notifier.LowStock(ctx, LowStockAlert{
			RestaurantID: row.RestaurantID,
			InventoryID:  id,
			ItemName:     row.ItemName,
			CurrentStock: next,
			MinStock:     minStock,
		})
	}

	return StockChange{
		InventoryID: id,
		Name:        row.ItemName,
		Previous:    previous,
		Required:    required,
		New:         next,
		Shortfall:   shortfall,
	}, nil
}

// crossedBelow reports whether stock went from at-or-above min to below it.
func crossedBelow(previous, next, minStock decimal.Decimal) bool {
	return previous.GreaterThanOrEqual(minStock) && next.LessThan(minStock)
}
