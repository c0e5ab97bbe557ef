package appointments

import (
	"context"
	"errors"
	"strconv"
	"time"

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

// Repository provides PostgreSQL backed persistence for appointments. The
// schedule table carries a partial unique index over (doctor_id, date, time)
// restricted to active statuses, so the transactional conflict check is
// backed by a hard constraint under concurrency.
type Repository struct {
	pool *pgxpool.Pool
	q    dbtx
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// WithTx runs fn against a transaction-bound store.
func (r *Repository) WithTx(ctx context.Context, fn func(Store) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, q: tx})
	})
}

const appointmentColumns = `id, patient_id, doctor_id, department_id, appointment_date,
	to_char(appointment_time, 'HH24:MI'), duration_minutes, status, reason, notes,
	created_by_id, created_at, updated_at`

// List returns appointments matching the filter, newest day first.
func (r *Repository) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Appointment, error) {
	params = params.Normalize()
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []any{params.Skip, params.Limit}
	next := 3
	add := func(clause string, value any) {
		query += ` AND ` + clause + `$` + strconv.Itoa(next)
		args = append(args, value)
		next++
	}
	if filter.PatientID != nil {
		add(`patient_id = `, *filter.PatientID)
	}
	if filter.DoctorID != nil {
		add(`doctor_id = `, *filter.DoctorID)
	}
	if filter.Date != nil {
		add(`appointment_date = `, *filter.Date)
	}
	if filter.Status != nil {
		add(`status = `, string(*filter.Status))
	}
	query += ` ORDER BY appointment_date DESC, appointment_time OFFSET $1 LIMIT $2`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get fetches an appointment by id.
func (r *Repository) Get(ctx context.Context, id int64) (Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, shared.ErrNotFound
		}
		return Appointment{}, err
	}
	return a, nil
}

// SlotTaken reports whether the doctor already holds an active appointment
// at the exact date and time. excludeID ignores one appointment, for
// reschedule checks.
func (r *Repository) SlotTaken(ctx context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error) {
	var taken bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3::time
			  AND status = ANY($4) AND id <> $5
		 )`,
		doctorID, date, slot, statusStrings(activeStatuses), excludeID).Scan(&taken)
	return taken, err
}

// Insert stores a new appointment. A race past the in-transaction check is
// caught by the partial unique index and surfaces as a booking conflict.
func (r *Repository) Insert(ctx context.Context, a Appointment) (Appointment, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO appointments (patient_id, doctor_id, department_id, appointment_date,
			appointment_time, duration_minutes, status, reason, notes, created_by_id)
		 VALUES ($1, $2, $3, $4, $5::time, $6, $7, $8, $9, $10)
		 RETURNING `+appointmentColumns,
		a.PatientID, a.DoctorID, a.DepartmentID, a.Date, a.Time,
		a.Duration, string(a.Status), a.Reason, a.Notes, a.CreatedByID)
	created, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Appointment{}, shared.Conflict(shared.ReasonDoubleBooking)
		}
		return Appointment{}, err
	}
	return created, nil
}

// Update persists the mutable field set.
func (r *Repository) Update(ctx context.Context, a Appointment) (Appointment, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE appointments
		 SET appointment_date = $2, appointment_time = $3::time, duration_minutes = $4,
			 status = $5, reason = $6, notes = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+appointmentColumns,
		a.ID, a.Date, a.Time, a.Duration, string(a.Status), a.Reason, a.Notes)
	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return Appointment{}, shared.Conflict(shared.ReasonDoubleBooking)
		}
		return Appointment{}, err
	}
	return updated, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID, &a.Date,
		&a.Time, &a.Duration, &status, &a.Reason, &a.Notes,
		&a.CreatedByID, &a.CreatedAt, &a.UpdatedAt)
	a.Status = Status(status)
	return a, err
}
