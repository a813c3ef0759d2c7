package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, order_number, customer_name, table_ref, status, total_amount, checkout_ref, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.OrderNumber,
		&i.CustomerName,
		&i.TableRef,
		&i.Status,
		&i.TotalAmount,
		&i.CheckoutRef,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getNextOrderNumber = `-- name: GetNextOrderNumber :one
SELECT (COALESCE(MAX(NULLIF(regexp_replace(order_number, '\D', '', 'g'), '')::int), 0) + 1)::int4
FROM orders
WHERE restaurant_id = $1
`

func (q *Queries) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, getNextOrderNumber, restaurantID).Scan(&next)
	return next, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (restaurant_id, order_number, customer_name, table_ref, status, total_amount, checkout_ref, created_by)
VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	RestaurantID uuid.UUID
	OrderNumber  string
	CustomerName string
	TableRef     string
	TotalAmount  pgtype.Numeric
	CheckoutRef  pgtype.Text
	CreatedBy    pgtype.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.RestaurantID,
		arg.OrderNumber,
		arg.CustomerName,
		arg.TableRef,
		arg.TotalAmount,
		arg.CheckoutRef,
		arg.CreatedBy,
	))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, menu_item_id, menu_set_id, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, menu_item_id, menu_set_id, quantity, unit_price, total_price, created_at
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID pgtype.UUID
	MenuSetID  pgtype.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.MenuItemID,
		arg.MenuSetID,
		arg.Quantity,
		arg.UnitPrice,
		arg.TotalPrice,
	).Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuItemID,
		&i.MenuSetID,
		&i.Quantity,
		&i.UnitPrice,
		&i.TotalPrice,
		&i.CreatedAt,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND restaurant_id = $2
`

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.RestaurantID))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE restaurant_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       NullOrderStatus
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
	Limit        int32
	Offset       int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	status := pgtype.Text{}
	if arg.Status.Valid {
		status = pgtype.Text{String: string(arg.Status.OrderStatus), Valid: true}
	}
	rows, err := q.db.Query(ctx, listOrders,
		arg.RestaurantID,
		status,
		arg.StartDate,
		arg.EndDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT oi.id, oi.order_id, oi.menu_item_id, oi.menu_set_id, oi.quantity, oi.unit_price, oi.total_price, oi.created_at,
       COALESCE(mi.name, ms.name, '')::text AS item_name
FROM order_items oi
LEFT JOIN menu_items mi ON mi.id = oi.menu_item_id
LEFT JOIN menu_sets ms ON ms.id = oi.menu_set_id
WHERE oi.order_id = $1
ORDER BY oi.created_at, oi.id
`

type ListOrderItemsByOrderRow struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID pgtype.UUID
	MenuSetID  pgtype.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	CreatedAt  time.Time
	ItemName   string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var i ListOrderItemsByOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuItemID,
			&i.MenuSetID,
			&i.Quantity,
			&i.UnitPrice,
			&i.TotalPrice,
			&i.CreatedAt,
			&i.ItemName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $3, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Status       OrderStatus
	Status_2     OrderStatus
}

// UpdateOrderStatus only matches while the row still has Status_2, so a
// concurrent change surfaces as pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.RestaurantID,
		string(arg.Status),
		string(arg.Status_2),
	))
}

const cancelOrder = `-- name: CancelOrder :one
UPDATE orders SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

type CancelOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.RestaurantID))
}

const deleteOrderItemsByOrder = `-- name: DeleteOrderItemsByOrder :execrows
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteOrder = `-- name: DeleteOrder :execrows
DELETE FROM orders WHERE id = $1 AND restaurant_id = $2
`

type DeleteOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteOrder(ctx context.Context, arg DeleteOrderParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrder, arg.ID, arg.RestaurantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
