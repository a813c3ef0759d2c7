package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const restaurantColumns = `id, name, slug, description, address, phone, email, is_active, created_at`

func scanRestaurant(row interface{ Scan(...interface{}) error }) (Restaurant, error) {
	var i Restaurant
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Address,
		&i.Phone,
		&i.Email,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const listRestaurants = `-- name: ListRestaurants :many
SELECT ` + restaurantColumns + ` FROM restaurants
ORDER BY name
`

func (q *Queries) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := q.db.Query(ctx, listRestaurants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Restaurant
	for rows.Next() {
		i, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getRestaurant = `-- name: GetRestaurant :one
SELECT ` + restaurantColumns + ` FROM restaurants
WHERE id = $1
`

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	return scanRestaurant(q.db.QueryRow(ctx, getRestaurant, id))
}

const createRestaurant = `-- name: CreateRestaurant :one
INSERT INTO restaurants (name, slug, description, address, phone, email)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + restaurantColumns

type CreateRestaurantParams struct {
	Name        string
	Slug        pgtype.Text
	Description pgtype.Text
	Address     pgtype.Text
	Phone       pgtype.Text
	Email       pgtype.Text
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	return scanRestaurant(q.db.QueryRow(ctx, createRestaurant,
		arg.Name,
		arg.Slug,
		arg.Description,
		arg.Address,
		arg.Phone,
		arg.Email,
	))
}

const listRestaurantAdmins = `-- name: ListRestaurantAdmins :many
SELECT ` + userColumns + ` FROM users
WHERE role IN ('super_admin', 'owner', 'admin', 'manager') AND is_active = true
ORDER BY restaurant_id, full_name
`

// ListRestaurantAdmins returns the management accounts of every restaurant.
func (q *Queries) ListRestaurantAdmins(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listRestaurantAdmins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const packageColumns = `p.id, p.name, p.description, p.price_monthly, p.price_yearly, p.is_active, p.created_at`

func scanPackage(dest *Package) []interface{} {
	return []interface{}{
		&dest.ID,
		&dest.Name,
		&dest.Description,
		&dest.PriceMonthly,
		&dest.PriceYearly,
		&dest.IsActive,
		&dest.CreatedAt,
	}
}

const listActivePackages = `-- name: ListActivePackages :many
SELECT ` + packageColumns + ` FROM packages p
WHERE p.is_active = true
ORDER BY p.name
`

func (q *Queries) ListActivePackages(ctx context.Context) ([]Package, error) {
	rows, err := q.db.Query(ctx, listActivePackages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Package
	for rows.Next() {
		var i Package
		if err := rows.Scan(scanPackage(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listRestaurantPackages = `-- name: ListRestaurantPackages :many
SELECT rp.restaurant_id, ` + packageColumns + `
FROM restaurant_packages rp
JOIN packages p ON p.id = rp.package_id
ORDER BY rp.restaurant_id, p.name
`

type ListRestaurantPackagesRow struct {
	RestaurantID uuid.UUID
	Package      Package
}

func (q *Queries) ListRestaurantPackages(ctx context.Context) ([]ListRestaurantPackagesRow, error) {
	rows, err := q.db.Query(ctx, listRestaurantPackages)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListRestaurantPackagesRow
	for rows.Next() {
		var i ListRestaurantPackagesRow
		dest := append([]interface{}{&i.RestaurantID}, scanPackage(&i.Package)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const addRestaurantPackage = `-- name: AddRestaurantPackage :exec
INSERT INTO restaurant_packages (restaurant_id, package_id)
SELECT $1, id FROM packages WHERE id = $2 AND is_active = true
`

type AddRestaurantPackageParams struct {
	RestaurantID uuid.UUID
	PackageID    uuid.UUID
}

// AddRestaurantPackage links an active package. It reports false when the
// package does not exist or is inactive.
func (q *Queries) AddRestaurantPackage(ctx context.Context, arg AddRestaurantPackageParams) (bool, error) {
	tag, err := q.db.Exec(ctx, addRestaurantPackage, arg.RestaurantID, arg.PackageID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
