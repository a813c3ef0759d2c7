package service

import (
	"context"
	"fmt"
	"log"

	"github.com/restodesk/api/internal/database"
)

// LowStockNotifierFunc adapts a function to LowStockNotifier.
type LowStockNotifierFunc func(ctx context.Context, alert LowStockAlert)

func (f LowStockNotifierFunc) LowStock(ctx context.Context, alert LowStockAlert) {
	f(ctx, alert)
}

// LogLowStock writes low-stock alerts to the process log.
var LogLowStock = LowStockNotifierFunc(func(_ context.Context, a LowStockAlert) {
	log.Printf("WARN: low stock: %s (%s) at %s, minimum %s", a.ItemName, a.InventoryID, a.CurrentStock.String(), a.MinStock.String())
})

// LowStockStore lists inventory rows below their minimum.
// Satisfied by *database.Queries.
type LowStockStore interface {
	ListAllLowStockInventory(ctx context.Context) ([]database.Inventory, error)
}

// LowStockSweeper re-announces every item currently under its minimum.
type LowStockSweeper struct {
	store    LowStockStore
	notifier LowStockNotifier
}

func NewLowStockSweeper(store LowStockStore, notifier LowStockNotifier) *LowStockSweeper {
	return &LowStockSweeper{store: store, notifier: notifier}
}

// Sweep notifies once per low item and returns how many were found.
func (s *LowStockSweeper) Sweep(ctx context.Context) (int, error) {
	rows, err := s.store.ListAllLowStockInventory(ctx)
	if err != nil {
		return 0, fmt.Errorf("list low stock: %w", err)
	}
	for _, row := range rows {
		s.notifier.LowStock(ctx, LowStockAlert{
			RestaurantID: row.RestaurantID,
			InventoryID:  row.ID,
			ItemName:     row.ItemName,
			CurrentStock: numericToDecimal(row.CurrentStock),
			MinStock:     numericToDecimal(row.MinStock),
		})
	}
	return len(rows), nil
}

// MultiLowStock fans an alert out to every non-nil notifier.
func MultiLowStock(notifiers ...LowStockNotifier) LowStockNotifier {
	return LowStockNotifierFunc(func(ctx context.Context, a LowStockAlert) {
		for _, n := range notifiers {
			if n != nil {
				n.LowStock(ctx, a)
			}
		}
	})
}
