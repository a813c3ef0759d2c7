package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryColumns = `id, restaurant_id, item_name, category, current_stock, min_stock, unit, supplier, created_at, updated_at`

func scanInventory(row interface{ Scan(...interface{}) error }) (Inventory, error) {
	var i Inventory
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.ItemName,
		&i.Category,
		&i.CurrentStock,
		&i.MinStock,
		&i.Unit,
		&i.Supplier,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectInventory(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}) ([]Inventory, error) {
	defer rows.Close()
	var items []Inventory
	for rows.Next() {
		i, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listInventory = `-- name: ListInventory :many
SELECT ` + inventoryColumns + ` FROM inventory
WHERE restaurant_id = $1
ORDER BY item_name
`

func (q *Queries) ListInventory(ctx context.Context, restaurantID uuid.UUID) ([]Inventory, error) {
	rows, err := q.db.Query(ctx, listInventory, restaurantID)
	if err != nil {
		return nil, err
	}
	return collectInventory(rows)
}

const listLowStockInventory = `-- name: ListLowStockInventory :many
SELECT ` + inventoryColumns + ` FROM inventory
WHERE restaurant_id = $1 AND current_stock < min_stock
ORDER BY item_name
`

func (q *Queries) ListLowStockInventory(ctx context.Context, restaurantID uuid.UUID) ([]Inventory, error) {
	rows, err := q.db.Query(ctx, listLowStockInventory, restaurantID)
	if err != nil {
		return nil, err
	}
	return collectInventory(rows)
}

const listAllLowStockInventory = `-- name: ListAllLowStockInventory :many
SELECT ` + inventoryColumns + ` FROM inventory
WHERE current_stock < min_stock
ORDER BY restaurant_id, item_name
`

func (q *Queries) ListAllLowStockInventory(ctx context.Context) ([]Inventory, error) {
	rows, err := q.db.Query(ctx, listAllLowStockInventory)
	if err != nil {
		return nil, err
	}
	return collectInventory(rows)
}

const getInventoryItem = `-- name: GetInventoryItem :one
SELECT ` + inventoryColumns + ` FROM inventory
WHERE id = $1 AND restaurant_id = $2
`

type GetInventoryItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetInventoryItem(ctx context.Context, arg GetInventoryItemParams) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx, getInventoryItem, arg.ID, arg.RestaurantID))
}

const createInventoryItem = `-- name: CreateInventoryItem :one
INSERT INTO inventory (restaurant_id, item_name, category, current_stock, min_stock, unit, supplier)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + inventoryColumns

type CreateInventoryItemParams struct {
	RestaurantID uuid.UUID
	ItemName     string
	Category     pgtype.Text
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
	Unit         string
	Supplier     pgtype.Text
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx, createInventoryItem,
		arg.RestaurantID,
		arg.ItemName,
		arg.Category,
		arg.CurrentStock,
		arg.MinStock,
		arg.Unit,
		arg.Supplier,
	))
}

const updateInventoryItem = `-- name: UpdateInventoryItem :one
UPDATE inventory
SET item_name = $3, category = $4, current_stock = $5, min_stock = $6, unit = $7, supplier = $8, updated_at = now()
WHERE id = $1 AND restaurant_id = $2
RETURNING ` + inventoryColumns

type UpdateInventoryItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	ItemName     string
	Category     pgtype.Text
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
	Unit         string
	Supplier     pgtype.Text
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (Inventory, error) {
	return scanInventory(q.db.QueryRow(ctx, updateInventoryItem,
		arg.ID,
		arg.RestaurantID,
		arg.ItemName,
		arg.Category,
		arg.CurrentStock,
		arg.MinStock,
		arg.Unit,
		arg.Supplier,
	))
}

const deleteInventoryItem = `-- name: DeleteInventoryItem :execrows
DELETE FROM inventory WHERE id = $1 AND restaurant_id = $2
`

type DeleteInventoryItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteInventoryItem(ctx context.Context, arg DeleteInventoryItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteInventoryItem, arg.ID, arg.RestaurantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getInventoryStockForUpdate = `-- name: GetInventoryStockForUpdate :one
SELECT id, restaurant_id, item_name, current_stock, min_stock FROM inventory
WHERE id = $1
FOR UPDATE
`

type GetInventoryStockForUpdateRow struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	ItemName     string
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
}

// GetInventoryStockForUpdate reads one stock level and holds a row lock on it
// until the surrounding transaction ends.
func (q *Queries) GetInventoryStockForUpdate(ctx context.Context, id uuid.UUID) (GetInventoryStockForUpdateRow, error) {
	var i GetInventoryStockForUpdateRow
	err := q.db.QueryRow(ctx, getInventoryStockForUpdate, id).Scan(
		&i.ID,
		&i.RestaurantID,
		&i.ItemName,
		&i.CurrentStock,
		&i.MinStock,
	)
	return i, err
}

const updateInventoryStock = `-- name: UpdateInventoryStock :exec
UPDATE inventory SET current_stock = $2, updated_at = now()
WHERE id = $1
`

type UpdateInventoryStockParams struct {
	ID           uuid.UUID
	CurrentStock pgtype.Numeric
}

func (q *Queries) UpdateInventoryStock(ctx context.Context, arg UpdateInventoryStockParams) error {
	_, err := q.db.Exec(ctx, updateInventoryStock, arg.ID, arg.CurrentStock)
	return err
}

const adjustInventoryStock = `-- name: AdjustInventoryStock :one
WITH prev AS (
    SELECT id, current_stock FROM inventory
    WHERE id = $1 AND restaurant_id = $2
    FOR UPDATE
)
UPDATE inventory i SET current_stock = GREATEST(0, i.current_stock + $3::numeric), updated_at = now()
FROM prev
WHERE i.id = prev.id
RETURNING i.id, i.restaurant_id, i.item_name, i.category, i.current_stock, i.min_stock, i.unit, i.supplier, i.created_at, i.updated_at, prev.current_stock
`

type AdjustInventoryStockParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Delta        pgtype.Numeric
}

type AdjustInventoryStockRow struct {
	Inventory     Inventory
	PreviousStock pgtype.Numeric
}

// AdjustInventoryStock applies a delta clamped at zero and returns the row
// together with the stock it had before the update.
func (q *Queries) AdjustInventoryStock(ctx context.Context, arg AdjustInventoryStockParams) (AdjustInventoryStockRow, error) {
	var i AdjustInventoryStockRow
	err := q.db.QueryRow(ctx, adjustInventoryStock, arg.ID, arg.RestaurantID, arg.Delta).Scan(
		&i.Inventory.ID,
		&i.Inventory.RestaurantID,
		&i.Inventory.ItemName,
		&i.Inventory.Category,
		&i.Inventory.CurrentStock,
		&i.Inventory.MinStock,
		&i.Inventory.Unit,
		&i.Inventory.Supplier,
		&i.Inventory.CreatedAt,
		&i.Inventory.UpdatedAt,
		&i.PreviousStock,
	)
	return i, err
}

const decreaseInventoryForMenuItem = `-- name: DecreaseInventoryForMenuItem :exec
SELECT decrease_inventory_for_menu_item($1, $2)
`

type DecreaseInventoryForMenuItemParams struct {
	MenuItemID uuid.UUID
	Qty        int32
}

func (q *Queries) DecreaseInventoryForMenuItem(ctx context.Context, arg DecreaseInventoryForMenuItemParams) error {
	_, err := q.db.Exec(ctx, decreaseInventoryForMenuItem, arg.MenuItemID, arg.Qty)
	return err
}
