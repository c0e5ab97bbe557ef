package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/platform/db"
	"github.com/helix-hms/helix-hms/internal/shared"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence for the RBAC graph.
// Membership edges live in explicit association tables keyed by identifier
// pairs; there is no object graph navigation.
type Repository struct {
	pool *pgxpool.Pool
	q    dbtx
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// WithTx runs fn against a transaction-bound store. Mutations applied inside
// are observed atomically by concurrent authorization reads.
func (r *Repository) WithTx(ctx context.Context, fn func(Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, q: tx})
	})
}

// CreatePermission inserts a permission. Duplicate names map to ErrDuplicate.
func (r *Repository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO permissions (name, description, resource, action)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, description, resource, action, created_at`,
		p.Name, p.Description, p.Resource, p.Action)
	created, err := scanPermission(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Permission{}, shared.ErrDuplicate
		}
		return Permission{}, err
	}
	return created, nil
}

// PermissionByName fetches a permission by its unique name.
func (r *Repository) PermissionByName(ctx context.Context, name string) (Permission, error) {
	row := r.q.QueryRow(ctx,
		`SELECT id, name, description, resource, action, created_at FROM permissions WHERE name = $1`, name)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// PermissionByID fetches a permission by ID.
func (r *Repository) PermissionByID(ctx context.Context, id int64) (Permission, error) {
	row := r.q.QueryRow(ctx,
		`SELECT id, name, description, resource, action, created_at FROM permissions WHERE id = $1`, id)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, description, resource, action, created_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// CreateRole inserts a role. Duplicate names map to ErrDuplicate.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO roles (name, description, priority)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, description, priority, created_at`,
		role.Name, role.Description, role.Priority)
	created, err := scanRole(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	return created, nil
}

// RoleByID fetches a role by ID.
func (r *Repository) RoleByID(ctx context.Context, id int64) (Role, error) {
	row := r.q.QueryRow(ctx,
		`SELECT id, name, description, priority, created_at FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// RoleByName fetches a role by its unique name.
func (r *Repository) RoleByName(ctx context.Context, name string) (Role, error) {
	row := r.q.QueryRow(ctx,
		`SELECT id, name, description, priority, created_at FROM roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles ordered by descending priority.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, description, priority, created_at FROM roles ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CountRoles reports how many roles exist. The seeder keys its no-op on this.
func (r *Repository) CountRoles(ctx context.Context) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&n)
	return n, err
}

// GrantPermission adds a permission to a role's set. Re-granting is a no-op.
func (r *Repository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

// RevokePermission removes a permission from a role's set. Revoking an absent
// permission is a no-op.
func (r *Repository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

// RolePermissions returns the permission set of a role.
func (r *Repository) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.q.Query(ctx,
		`SELECT p.id, p.name, p.description, p.resource, p.action, p.created_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// AssignRole adds a role to a user's set. Re-assignment is a no-op.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID)
	return err
}

// UnassignRole removes a role from a user's set, a no-op when absent.
func (r *Repository) UnassignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	return err
}

// UserExists reports whether an account row exists for the given id.
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// UserRoles returns all roles assigned to a user.
func (r *Repository) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.q.Query(ctx,
		`SELECT r.id, r.name, r.description, r.priority, r.created_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1
		 ORDER BY r.priority DESC, r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UserPermissionNames returns the deduplicated union of permission names
// across every role assigned to the user.
func (r *Repository) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT p.name
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN user_roles ur ON ur.role_id = rp.role_id
		 WHERE ur.user_id = $1
		 ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action, &p.CreatedAt)
	return p, err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Priority, &role.CreatedAt)
	return role, err
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
