package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/platform/db"
	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, email, full_name, phone, password_hash, is_active, created_at, updated_at`

// List returns accounts ordered by id with offset pagination.
func (r *Repository) List(ctx context.Context, params shared.ListParams) ([]User, error) {
	params = params.Normalize()
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2`,
		params.Skip, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get fetches an account by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts an account. Username and email collisions map to
// ErrDuplicate.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, full_name, phone, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.Username, u.Email, u.FullName, u.Phone, u.PasswordHash, u.IsActive)
	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return created, nil
}

// Update persists the full mutable field set of an account.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET email = $2, full_name = $3, phone = $4, password_hash = $5, is_active = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		u.ID, u.Email, u.FullName, u.Phone, u.PasswordHash, u.IsActive)
	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return updated, nil
}

// Delete removes an account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateAccount satisfies rbac.UserDirectory so the bootstrap seeder can
// install default accounts without depending on this package.
func (r *Repository) CreateAccount(ctx context.Context, account rbac.SeedAccount) (int64, error) {
	created, err := r.Create(ctx, User{
		Username:     account.Username,
		Email:        account.Email,
		FullName:     account.FullName,
		Phone:        account.Phone,
		PasswordHash: account.PasswordHash,
		IsActive:     true,
	})
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Phone,
		&u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
