package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, restaurant_id, name, description, sort_order, is_active, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (MenuCategory, error) {
	var i MenuCategory
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Name,
		&i.Description,
		&i.SortOrder,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listCategoriesByRestaurant = `-- name: ListCategoriesByRestaurant :many
SELECT c.id, c.restaurant_id, c.name, c.description, c.sort_order, c.is_active, c.created_at,
       COUNT(m.id) AS item_count
FROM menu_categories c
LEFT JOIN menu_items m ON m.category_id = c.id
WHERE c.restaurant_id = $1 AND c.is_active = true
GROUP BY c.id
ORDER BY c.sort_order, c.name
`

type ListCategoriesByRestaurantRow struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	SortOrder    int32
	IsActive     bool
	CreatedAt    time.Time
	ItemCount    int64
}

func (q *Queries) ListCategoriesByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]ListCategoriesByRestaurantRow, error) {
	rows, err := q.db.Query(ctx, listCategoriesByRestaurant, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCategoriesByRestaurantRow
	for rows.Next() {
		var i ListCategoriesByRestaurantRow
		if err := rows.Scan(
			&i.ID,
			&i.RestaurantID,
			&i.Name,
			&i.Description,
			&i.SortOrder,
			&i.IsActive,
			&i.CreatedAt,
			&i.ItemCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countMenuItemsInCategory = `-- name: CountMenuItemsInCategory :one
SELECT COUNT(*) FROM menu_items
WHERE category_id = $1 AND restaurant_id = $2
`

type CountMenuItemsInCategoryParams struct {
	CategoryID   uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) CountMenuItemsInCategory(ctx context.Context, arg CountMenuItemsInCategoryParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countMenuItemsInCategory, arg.CategoryID, arg.RestaurantID).Scan(&count)
	return count, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO menu_categories (restaurant_id, name, description, sort_order)
VALUES ($1, $2, $3, $4)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	SortOrder    int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (MenuCategory, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory,
		arg.RestaurantID,
		arg.Name,
		arg.Description,
		arg.SortOrder,
	))
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE menu_categories SET name = $3, description = $4, sort_order = $5
WHERE id = $1 AND restaurant_id = $2 AND is_active = true
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	SortOrder    int32
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (MenuCategory, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory,
		arg.ID,
		arg.RestaurantID,
		arg.Name,
		arg.Description,
		arg.SortOrder,
	))
}

const softDeleteCategory = `-- name: SoftDeleteCategory :one
UPDATE menu_categories SET is_active = false
WHERE id = $1 AND restaurant_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteCategoryParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, arg SoftDeleteCategoryParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteCategory, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}
