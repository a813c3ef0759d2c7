package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SnapshotTable names a tenant table the assistant may read. Only the
// entries in snapshotQueries are accepted, so callers never splice
// user input into SQL.
type SnapshotTable string

const (
	SnapshotMenuItems SnapshotTable = "menu_items"
	SnapshotMenuSets  SnapshotTable = "menu_sets"
	SnapshotOrders    SnapshotTable = "orders"
	SnapshotInventory SnapshotTable = "inventory"
	SnapshotStaff     SnapshotTable = "users"
)

var snapshotQueries = map[SnapshotTable]string{
	SnapshotMenuItems: `SELECT id, name, description, price, is_available, prep_time, created_at
		FROM menu_items WHERE restaurant_id = $1 ORDER BY name LIMIT $2`,
	SnapshotMenuSets: `SELECT id, name, price, status, created_at
		FROM menu_sets WHERE restaurant_id = $1 ORDER BY name LIMIT $2`,
	SnapshotOrders: `SELECT id, order_number, customer_name, table_ref, status, total_amount, created_at
		FROM orders WHERE restaurant_id = $1 ORDER BY created_at DESC LIMIT $2`,
	SnapshotInventory: `SELECT id, item_name, category, current_stock, min_stock, unit, supplier
		FROM inventory WHERE restaurant_id = $1 ORDER BY item_name LIMIT $2`,
	SnapshotStaff: `SELECT id, full_name, email, role, is_active, created_at
		FROM users WHERE restaurant_id = $1 ORDER BY full_name LIMIT $2`,
}

var snapshotCounts = map[SnapshotTable]string{
	SnapshotMenuItems: `SELECT COUNT(*) FROM menu_items WHERE restaurant_id = $1`,
	SnapshotMenuSets:  `SELECT COUNT(*) FROM menu_sets WHERE restaurant_id = $1`,
	SnapshotOrders:    `SELECT COUNT(*) FROM orders WHERE restaurant_id = $1`,
	SnapshotInventory: `SELECT COUNT(*) FROM inventory WHERE restaurant_id = $1`,
	SnapshotStaff:     `SELECT COUNT(*) FROM users WHERE restaurant_id = $1 AND is_active = true`,
}

// SnapshotField is one column of a snapshot row.
type SnapshotField struct {
	Name  string
	Value any
}

// SnapshotRow keeps the columns in select-list order.
type SnapshotRow []SnapshotField

// SnapshotRows returns up to limit rows of table.
func (q *Queries) SnapshotRows(ctx context.Context, table SnapshotTable, restaurantID uuid.UUID, limit int32) ([]SnapshotRow, error) {
	query, ok := snapshotQueries[table]
	if !ok {
		return nil, fmt.Errorf("snapshot: unknown table %q", table)
	}
	rows, err := q.db.Query(ctx, query, restaurantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var items []SnapshotRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(SnapshotRow, len(values))
		for i, v := range values {
			row[i] = SnapshotField{Name: fields[i].Name, Value: v}
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

func (q *Queries) CountRows(ctx context.Context, table SnapshotTable, restaurantID uuid.UUID) (int64, error) {
	query, ok := snapshotCounts[table]
	if !ok {
		return 0, fmt.Errorf("snapshot: unknown table %q", table)
	}
	var n int64
	err := q.db.QueryRow(ctx, query, restaurantID).Scan(&n)
	return n, err
}
