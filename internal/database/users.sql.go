package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, restaurant_id, email, hashed_password, full_name, role, pin, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.RestaurantID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.Pin,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE email = $1 AND is_active = true
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByRestaurantAndPin = `-- name: GetUserByRestaurantAndPin :one
SELECT ` + userColumns + ` FROM users
WHERE restaurant_id = $1 AND pin = $2 AND is_active = true
`

type GetUserByRestaurantAndPinParams struct {
	RestaurantID uuid.UUID
	Pin          pgtype.Text
}

func (q *Queries) GetUserByRestaurantAndPin(ctx context.Context, arg GetUserByRestaurantAndPinParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByRestaurantAndPin, arg.RestaurantID, arg.Pin))
}

const listUsersByRestaurant = `-- name: ListUsersByRestaurant :many
SELECT ` + userColumns + ` FROM users
WHERE restaurant_id = $1 AND is_active = true
ORDER BY full_name
`

func (q *Queries) ListUsersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByRestaurant, restaurantID)
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

const createUser = `-- name: CreateUser :one
INSERT INTO users (restaurant_id, email, hashed_password, full_name, role, pin)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	RestaurantID   uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Pin            pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.RestaurantID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
		arg.Pin,
	))
}

const updateUser = `-- name: UpdateUser :one
UPDATE users SET email = $3, full_name = $4, role = $5, pin = $6, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND is_active = true
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Email        string
	FullName     string
	Role         string
	Pin          pgtype.Text
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.RestaurantID,
		arg.Email,
		arg.FullName,
		arg.Role,
		arg.Pin,
	))
}

const softDeleteUser = `-- name: SoftDeleteUser :one
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND restaurant_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteUserParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) SoftDeleteUser(ctx context.Context, arg SoftDeleteUserParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteUser, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}
