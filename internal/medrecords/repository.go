package medrecords

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for medical records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, patient_id, doctor_id, appointment_id, visit_date, diagnosis,
	symptoms, treatment, prescriptions, lab_results, notes, is_confidential,
	created_at, updated_at`

// List returns records matching the filter, most recent visit first. The
// filter carries any doctor restriction the caller's scope imposes.
func (r *Repository) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Record, error) {
	params = params.Normalize()
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE 1=1`
	args := []any{params.Skip, params.Limit}
	next := 3
	if filter.PatientID != nil {
		query += ` AND patient_id = $` + strconv.Itoa(next)
		args = append(args, *filter.PatientID)
		next++
	}
	if filter.DoctorID != nil {
		query += ` AND doctor_id = $` + strconv.Itoa(next)
		args = append(args, *filter.DoctorID)
		next++
	}
	query += ` ORDER BY visit_date DESC OFFSET $1 LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get fetches a record by id.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// Create inserts a record.
func (r *Repository) Create(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO medical_records (patient_id, doctor_id, appointment_id, visit_date,
			diagnosis, symptoms, treatment, prescriptions, lab_results, notes, is_confidential)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+recordColumns,
		rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.VisitDate,
		rec.Diagnosis, rec.Symptoms, rec.Treatment, rec.Prescriptions,
		rec.LabResults, rec.Notes, rec.IsConfidential)
	return scanRecord(row)
}

// Update persists the mutable field set.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE medical_records
		 SET diagnosis = $2, symptoms = $3, treatment = $4, prescriptions = $5,
			 lab_results = $6, notes = $7, is_confidential = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING `+recordColumns,
		rec.ID, rec.Diagnosis, rec.Symptoms, rec.Treatment, rec.Prescriptions,
		rec.LabResults, rec.Notes, rec.IsConfidential)
	updated, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	return updated, nil
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID,
		&rec.VisitDate, &rec.Diagnosis, &rec.Symptoms, &rec.Treatment,
		&rec.Prescriptions, &rec.LabResults, &rec.Notes, &rec.IsConfidential,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
