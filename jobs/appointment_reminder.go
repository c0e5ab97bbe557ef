package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/helix-hms/helix-hms/internal/jobs"
)

// AppointmentReminderJob notifies the patient about an upcoming visit. The
// task is scheduled at booking time; by the time it fires the appointment may
// have been cancelled or completed, so the handler re-reads the row and skips
// terminal statuses.
type AppointmentReminderJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAppointmentReminderJob initialises the reminder handler.
func NewAppointmentReminderJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AppointmentReminderJob {
	return &AppointmentReminderJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle executes the reminder logic.
func (j *AppointmentReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("appointment reminder: handler not configured")
	}
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeAppointmentReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var (
		status      string
		date        time.Time
		slot        string
		patientName string
		email       *string
	)
	err := j.Pool.QueryRow(ctx,
		`SELECT a.status, a.appointment_date, to_char(a.appointment_time, 'HH24:MI'),
			p.first_name || ' ' || p.last_name, p.email
		 FROM appointments a
		 JOIN patients p ON p.id = a.patient_id
		 WHERE a.id = $1`,
		payload.AppointmentID).Scan(&status, &date, &slot, &patientName, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The appointment was removed; nothing to remind about.
			return nil
		}
		resultErr = err
		return resultErr
	}

	switch status {
	case "completed", "cancelled", "no_show":
		j.log().Info("reminder skipped",
			slog.Int64("appointment_id", payload.AppointmentID),
			slog.String("status", status),
		)
		return nil
	}

	j.log().Info("appointment reminder",
		slog.Int64("appointment_id", payload.AppointmentID),
		slog.String("patient", patientName),
		slog.String("date", date.Format("2006-01-02")),
		slog.String("time", slot),
	)
	if email != nil && *email != "" {
		task, err := NewSendEmailTask(SendEmailPayload{
			To:      *email,
			Subject: "Appointment reminder",
			Body:    "You have an appointment on " + date.Format("2006-01-02") + " at " + slot + ".",
		})
		if err != nil {
			resultErr = err
			return resultErr
		}
		return HandleSendEmailTask(ctx, task)
	}
	return nil
}

func (j *AppointmentReminderJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
