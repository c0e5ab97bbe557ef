package patients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/platform/db"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for patients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, first_name, last_name, middle_name, birth_date, gender,
	phone, email, address, insurance_number, blood_type, allergies,
	chronic_diseases, emergency_name, emergency_phone, is_active, created_at, updated_at`

// List returns patients ordered by id, optionally filtered by a search term
// over names, phone and email.
func (r *Repository) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Patient, error) {
	params = params.Normalize()
	query := `SELECT ` + patientColumns + ` FROM patients`
	args := []any{params.Skip, params.Limit}
	if filter.Search != "" {
		query += ` WHERE first_name ILIKE $3 OR last_name ILIKE $3 OR phone ILIKE $3 OR email ILIKE $3`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a patient by id.
func (r *Repository) Get(ctx context.Context, id int64) (Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, shared.ErrNotFound
		}
		return Patient{}, err
	}
	return p, nil
}

// Create inserts a patient. Insurance number collisions map to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, p Patient) (Patient, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO patients (first_name, last_name, middle_name, birth_date, gender,
			phone, email, address, insurance_number, blood_type, allergies,
			chronic_diseases, emergency_name, emergency_phone, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+patientColumns,
		p.FirstName, p.LastName, p.MiddleName, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.Address, nullable(p.InsuranceNumber), p.BloodType, p.Allergies,
		p.ChronicDiseases, p.EmergencyName, p.EmergencyPhone, p.IsActive)
	created, err := scanPatient(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Patient{}, shared.ErrDuplicate
		}
		return Patient{}, err
	}
	return created, nil
}

// Update persists the full mutable field set.
func (r *Repository) Update(ctx context.Context, p Patient) (Patient, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE patients
		 SET first_name = $2, last_name = $3, middle_name = $4, birth_date = $5, gender = $6,
			 phone = $7, email = $8, address = $9, insurance_number = $10, blood_type = $11,
			 allergies = $12, chronic_diseases = $13, emergency_name = $14, emergency_phone = $15,
			 is_active = $16, updated_at = now()
		 WHERE id = $1
		 RETURNING `+patientColumns,
		p.ID, p.FirstName, p.LastName, p.MiddleName, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.Address, nullable(p.InsuranceNumber), p.BloodType,
		p.Allergies, p.ChronicDiseases, p.EmergencyName, p.EmergencyPhone, p.IsActive)
	updated, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return Patient{}, shared.ErrDuplicate
		}
		return Patient{}, err
	}
	return updated, nil
}

// Delete removes a patient.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// nullable maps empty strings to NULL so the partial unique index on
// insurance_number ignores patients without one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanPatient(row pgx.Row) (Patient, error) {
	var (
		p         Patient
		insurance *string
	)
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.MiddleName, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &insurance, &p.BloodType, &p.Allergies,
		&p.ChronicDiseases, &p.EmergencyName, &p.EmergencyPhone, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if insurance != nil {
		p.InsuranceNumber = *insurance
	}
	return p, err
}
