package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listIngredientsByMenuItem = `-- name: ListIngredientsByMenuItem :many
SELECT ing.id, ing.menu_item_id, ing.inventory_id, ing.quantity, inv.item_name, inv.unit
FROM menu_item_ingredients ing
JOIN inventory inv ON inv.id = ing.inventory_id
WHERE ing.menu_item_id = $1
ORDER BY inv.item_name
`

type ListIngredientsByMenuItemRow struct {
	ID          uuid.UUID
	MenuItemID  uuid.UUID
	InventoryID uuid.UUID
	Quantity    pgtype.Numeric
	ItemName    string
	Unit        string
}

func (q *Queries) ListIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]ListIngredientsByMenuItemRow, error) {
	rows, err := q.db.Query(ctx, listIngredientsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListIngredientsByMenuItemRow
	for rows.Next() {
		var i ListIngredientsByMenuItemRow
		if err := rows.Scan(
			&i.ID,
			&i.MenuItemID,
			&i.InventoryID,
			&i.Quantity,
			&i.ItemName,
			&i.Unit,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listIngredientsByMenuItems = `-- name: ListIngredientsByMenuItems :many
SELECT id, menu_item_id, inventory_id, quantity FROM menu_item_ingredients
WHERE menu_item_id = ANY($1::uuid[])
`

func (q *Queries) ListIngredientsByMenuItems(ctx context.Context, menuItemIDs []uuid.UUID) ([]MenuItemIngredient, error) {
	rows, err := q.db.Query(ctx, listIngredientsByMenuItems, menuItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItemIngredient
	for rows.Next() {
		var i MenuItemIngredient
		if err := rows.Scan(
			&i.ID,
			&i.MenuItemID,
			&i.InventoryID,
			&i.Quantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteIngredientsByMenuItem = `-- name: DeleteIngredientsByMenuItem :execrows
DELETE FROM menu_item_ingredients WHERE menu_item_id = $1
`

func (q *Queries) DeleteIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteIngredientsByMenuItem, menuItemID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createIngredient = `-- name: CreateIngredient :one
INSERT INTO menu_item_ingredients (menu_item_id, inventory_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, menu_item_id, inventory_id, quantity
`

type CreateIngredientParams struct {
	MenuItemID  uuid.UUID
	InventoryID uuid.UUID
	Quantity    pgtype.Numeric
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (MenuItemIngredient, error) {
	var i MenuItemIngredient
	err := q.db.QueryRow(ctx, createIngredient, arg.MenuItemID, arg.InventoryID, arg.Quantity).Scan(
		&i.ID,
		&i.MenuItemID,
		&i.InventoryID,
		&i.Quantity,
	)
	return i, err
}
