package database

import (
	"context"
)

const listPermissionsByRole = `-- name: ListPermissionsByRole :many
SELECT permission FROM role_permissions
WHERE role = $1
ORDER BY permission
`

func (q *Queries) ListPermissionsByRole(ctx context.Context, role string) ([]string, error) {
	rows, err := q.db.Query(ctx, listPermissionsByRole, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, err
		}
		items = append(items, permission)
	}
	return items, rows.Err()
}

const listRolePermissions = `-- name: ListRolePermissions :many
SELECT id, role, permission, created_at FROM role_permissions
ORDER BY role, permission
`

func (q *Queries) ListRolePermissions(ctx context.Context) ([]RolePermission, error) {
	rows, err := q.db.Query(ctx, listRolePermissions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RolePermission
	for rows.Next() {
		var i RolePermission
		if err := rows.Scan(&i.ID, &i.Role, &i.Permission, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteRolePermissions = `-- name: DeleteRolePermissions :execrows
DELETE FROM role_permissions WHERE role = $1
`

func (q *Queries) DeleteRolePermissions(ctx context.Context, role string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteRolePermissions, role)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createRolePermission = `-- name: CreateRolePermission :one
INSERT INTO role_permissions (role, permission)
VALUES ($1, $2)
RETURNING id, role, permission, created_at
`

type CreateRolePermissionParams struct {
	Role       string
	Permission string
}

func (q *Queries) CreateRolePermission(ctx context.Context, arg CreateRolePermissionParams) (RolePermission, error) {
	var i RolePermission
	err := q.db.QueryRow(ctx, createRolePermission, arg.Role, arg.Permission).Scan(
		&i.ID,
		&i.Role,
		&i.Permission,
		&i.CreatedAt,
	)
	return i, err
}
