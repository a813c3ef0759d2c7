package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, restaurant_id, category_id, name, description, price, is_available, prep_time, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...interface{}) error }) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.IsAvailable,
		&i.PrepTime,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE restaurant_id = $1
  AND ($2::uuid IS NULL OR category_id = $2)
  AND (NOT $3::bool OR is_available = true)
ORDER BY name
`

type ListMenuItemsParams struct {
	RestaurantID  uuid.UUID
	CategoryID    pgtype.UUID
	AvailableOnly bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.RestaurantID, arg.CategoryID, arg.AvailableOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items
WHERE id = $1 AND restaurant_id = $2
`

type GetMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, arg.ID, arg.RestaurantID))
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (restaurant_id, category_id, name, description, price, is_available, prep_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	RestaurantID uuid.UUID
	CategoryID   pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	PrepTime     pgtype.Int4
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.RestaurantID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsAvailable,
		arg.PrepTime,
	))
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET category_id = $3, name = $4, description = $5, price = $6, is_available = $7, prep_time = $8, updated_at = now()
WHERE id = $1 AND restaurant_id = $2
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	CategoryID   pgtype.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	PrepTime     pgtype.Int4
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.RestaurantID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.IsAvailable,
		arg.PrepTime,
	))
}

const deleteMenuItem = `-- name: DeleteMenuItem :execrows
DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2
`

type DeleteMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMenuItem, arg.ID, arg.RestaurantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getMenuItemForOrder = `-- name: GetMenuItemForOrder :one
SELECT id, name, price, is_available FROM menu_items
WHERE id = $1 AND restaurant_id = $2
`

type GetMenuItemForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	var i GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.RestaurantID).Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.IsAvailable,
	)
	return i, err
}
