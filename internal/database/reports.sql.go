package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getDailySales = `-- name: GetDailySales :many
SELECT (created_at AT TIME ZONE 'UTC')::date AS sale_date,
       COUNT(*)::int8 AS order_count,
       COALESCE(SUM(total_amount), 0)::numeric AS total_revenue
FROM orders
WHERE restaurant_id = $1
  AND status <> 'cancelled'
  AND created_at >= $2 AND created_at < $3
GROUP BY sale_date
ORDER BY sale_date
`

type GetDailySalesParams struct {
	RestaurantID uuid.UUID
	CreatedAt    time.Time
	CreatedAt_2  time.Time
}

type GetDailySalesRow struct {
	SaleDate     pgtype.Date
	OrderCount   int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.RestaurantID, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDailySalesRow
	for rows.Next() {
		var i GetDailySalesRow
		if err := rows.Scan(&i.SaleDate, &i.OrderCount, &i.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTopItems = `-- name: GetTopItems :many
SELECT COALESCE(oi.menu_item_id, oi.menu_set_id)::uuid AS item_id,
       COALESCE(mi.name, ms.name, '')::text AS item_name,
       (oi.menu_set_id IS NOT NULL)::bool AS is_set,
       SUM(oi.quantity)::int8 AS quantity_sold,
       SUM(oi.total_price)::numeric AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
LEFT JOIN menu_sets ms ON ms.id = oi.menu_set_id
WHERE o.restaurant_id = $1
  AND o.status <> 'cancelled'
  AND o.created_at >= $2 AND o.created_at < $3
GROUP BY 1, 2, 3
ORDER BY quantity_sold DESC, total_revenue DESC
LIMIT $4
`

type GetTopItemsParams struct {
	RestaurantID uuid.UUID
	CreatedAt    time.Time
	CreatedAt_2  time.Time
	Limit        int32
}

type GetTopItemsRow struct {
	ItemID       uuid.UUID
	ItemName     string
	IsSet        bool
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetTopItems(ctx context.Context, arg GetTopItemsParams) ([]GetTopItemsRow, error) {
	rows, err := q.db.Query(ctx, getTopItems, arg.RestaurantID, arg.CreatedAt, arg.CreatedAt_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetTopItemsRow
	for rows.Next() {
		var i GetTopItemsRow
		if err := rows.Scan(
			&i.ItemID,
			&i.ItemName,
			&i.IsSet,
			&i.QuantitySold,
			&i.TotalRevenue,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getIngredientUsage = `-- name: GetIngredientUsage :many
SELECT inv.id AS inventory_id,
       inv.item_name,
       inv.unit,
       SUM(oi.quantity * mii.quantity)::numeric AS quantity_used,
       inv.current_stock,
       inv.min_stock
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
JOIN menu_item_ingredients mii ON mii.menu_item_id = oi.menu_item_id
JOIN inventory inv ON inv.id = mii.inventory_id
WHERE o.restaurant_id = $1
  AND o.created_at >= $2 AND o.created_at < $3
GROUP BY inv.id, inv.item_name, inv.unit, inv.current_stock, inv.min_stock
ORDER BY quantity_used DESC, inv.item_name
`

type GetIngredientUsageParams struct {
	RestaurantID uuid.UUID
	CreatedAt    time.Time
	CreatedAt_2  time.Time
}

type GetIngredientUsageRow struct {
	InventoryID  uuid.UUID
	ItemName     string
	Unit         string
	QuantityUsed pgtype.Numeric
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
}

func (q *Queries) GetIngredientUsage(ctx context.Context, arg GetIngredientUsageParams) ([]GetIngredientUsageRow, error) {
	rows, err := q.db.Query(ctx, getIngredientUsage, arg.RestaurantID, arg.CreatedAt, arg.CreatedAt_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetIngredientUsageRow
	for rows.Next() {
		var i GetIngredientUsageRow
		if err := rows.Scan(
			&i.InventoryID,
			&i.ItemName,
			&i.Unit,
			&i.QuantityUsed,
			&i.CurrentStock,
			&i.MinStock,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
