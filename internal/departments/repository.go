package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for departments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const departmentColumns = `id, name, description, phone, floor, capacity, head_doctor_id, is_active, created_at`

// List returns departments ordered by id.
func (r *Repository) List(ctx context.Context, params shared.ListParams) ([]Department, error) {
	params = params.Normalize()
	rows, err := r.pool.Query(ctx,
		`SELECT `+departmentColumns+` FROM departments ORDER BY id OFFSET $1 LIMIT $2`,
		params.Skip, params.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Get fetches a department by id.
func (r *Repository) Get(ctx context.Context, id int64) (Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id)
	d, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

// Create inserts a department.
func (r *Repository) Create(ctx context.Context, d Department) (Department, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO departments (name, description, phone, floor, capacity, head_doctor_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+departmentColumns,
		d.Name, d.Description, d.Phone, d.Floor, d.Capacity, d.HeadDoctorID, d.IsActive)
	return scanDepartment(row)
}

// Update persists the mutable field set.
func (r *Repository) Update(ctx context.Context, d Department) (Department, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE departments
		 SET name = $2, description = $3, phone = $4, floor = $5, capacity = $6,
			 head_doctor_id = $7, is_active = $8
		 WHERE id = $1
		 RETURNING `+departmentColumns,
		d.ID, d.Name, d.Description, d.Phone, d.Floor, d.Capacity, d.HeadDoctorID, d.IsActive)
	updated, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return updated, nil
}

// Delete removes a department.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanDepartment(row pgx.Row) (Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Phone, &d.Floor, &d.Capacity,
		&d.HeadDoctorID, &d.IsActive, &d.CreatedAt)
	return d, err
}
