package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuSetColumns = `id, restaurant_id, name, price, status, created_at, updated_at`

func scanMenuSet(row interface{ Scan(...interface{}) error }) (MenuSet, error) {
	var i MenuSet
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Name,
		&i.Price,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listMenuSets = `-- name: ListMenuSets :many
SELECT ` + menuSetColumns + ` FROM menu_sets
WHERE restaurant_id = $1
ORDER BY name
`

func (q *Queries) ListMenuSets(ctx context.Context, restaurantID uuid.UUID) ([]MenuSet, error) {
	rows, err := q.db.Query(ctx, listMenuSets, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuSet
	for rows.Next() {
		i, err := scanMenuSet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMenuSet = `-- name: GetMenuSet :one
SELECT ` + menuSetColumns + ` FROM menu_sets
WHERE id = $1 AND restaurant_id = $2
`

type GetMenuSetParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetMenuSet(ctx context.Context, arg GetMenuSetParams) (MenuSet, error) {
	return scanMenuSet(q.db.QueryRow(ctx, getMenuSet, arg.ID, arg.RestaurantID))
}

const createMenuSet = `-- name: CreateMenuSet :one
INSERT INTO menu_sets (restaurant_id, name, price, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + menuSetColumns

type CreateMenuSetParams struct {
	RestaurantID uuid.UUID
	Name         string
	Price        pgtype.Numeric
	Status       MenuSetStatus
}

func (q *Queries) CreateMenuSet(ctx context.Context, arg CreateMenuSetParams) (MenuSet, error) {
	return scanMenuSet(q.db.QueryRow(ctx, createMenuSet,
		arg.RestaurantID,
		arg.Name,
		arg.Price,
		string(arg.Status),
	))
}

const updateMenuSet = `-- name: UpdateMenuSet :one
UPDATE menu_sets SET name = $3, price = $4, status = $5, updated_at = now()
WHERE id = $1 AND restaurant_id = $2
RETURNING ` + menuSetColumns

type UpdateMenuSetParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Price        pgtype.Numeric
	Status       MenuSetStatus
}

func (q *Queries) UpdateMenuSet(ctx context.Context, arg UpdateMenuSetParams) (MenuSet, error) {
	return scanMenuSet(q.db.QueryRow(ctx, updateMenuSet,
		arg.ID,
		arg.RestaurantID,
		arg.Name,
		arg.Price,
		string(arg.Status),
	))
}

const deleteMenuSet = `-- name: DeleteMenuSet :execrows
DELETE FROM menu_sets WHERE id = $1 AND restaurant_id = $2
`

type DeleteMenuSetParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteMenuSet(ctx context.Context, arg DeleteMenuSetParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMenuSet, arg.ID, arg.RestaurantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listMenuSetItems = `-- name: ListMenuSetItems :many
SELECT id, menu_set_id, menu_item_id, quantity FROM menu_set_items
WHERE menu_set_id = $1
`

func (q *Queries) ListMenuSetItems(ctx context.Context, menuSetID uuid.UUID) ([]MenuSetItem, error) {
	rows, err := q.db.Query(ctx, listMenuSetItems, menuSetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuSetItem
	for rows.Next() {
		var i MenuSetItem
		if err := rows.Scan(&i.ID, &i.MenuSetID, &i.MenuItemID, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteMenuSetItems = `-- name: DeleteMenuSetItems :execrows
DELETE FROM menu_set_items WHERE menu_set_id = $1
`

func (q *Queries) DeleteMenuSetItems(ctx context.Context, menuSetID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMenuSetItems, menuSetID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createMenuSetItem = `-- name: CreateMenuSetItem :one
INSERT INTO menu_set_items (menu_set_id, menu_item_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, menu_set_id, menu_item_id, quantity
`

type CreateMenuSetItemParams struct {
	MenuSetID  uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
}

func (q *Queries) CreateMenuSetItem(ctx context.Context, arg CreateMenuSetItemParams) (MenuSetItem, error) {
	var i MenuSetItem
	err := q.db.QueryRow(ctx, createMenuSetItem, arg.MenuSetID, arg.MenuItemID, arg.Quantity).Scan(
		&i.ID,
		&i.MenuSetID,
		&i.MenuItemID,
		&i.Quantity,
	)
	return i, err
}

const getMenuSetForOrder = `-- name: GetMenuSetForOrder :one
SELECT id, name, price, status FROM menu_sets
WHERE id = $1 AND restaurant_id = $2
`

type GetMenuSetForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

type GetMenuSetForOrderRow struct {
	ID     uuid.UUID
	Name   string
	Price  pgtype.Numeric
	Status MenuSetStatus
}

func (q *Queries) GetMenuSetForOrder(ctx context.Context, arg GetMenuSetForOrderParams) (GetMenuSetForOrderRow, error) {
	var i GetMenuSetForOrderRow
	err := q.db.QueryRow(ctx, getMenuSetForOrder, arg.ID, arg.RestaurantID).Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.Status,
	)
	return i, err
}
