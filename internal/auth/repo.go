package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// Repository defines account lookups the login flow needs.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
}

// PostgresRepository reads accounts from the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByUsername fetches an account by its unique username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, full_name, password_hash, is_active, created_at
		 FROM users WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByID fetches an account by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, full_name, password_hash, is_active, created_at
		 FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
