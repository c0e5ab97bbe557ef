package appointments

import (
	"context"
	"log/slog"
	"time"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// Store is the persistence port. WithTx yields a transaction-bound store so
// the conflict check and the insert observe the same snapshot.
type Store interface {
	List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Appointment, error)
	Get(ctx context.Context, id int64) (Appointment, error)
	SlotTaken(ctx context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error)
	Insert(ctx context.Context, a Appointment) (Appointment, error)
	Update(ctx context.Context, a Appointment) (Appointment, error)
	WithTx(ctx context.Context, fn func(Store) error) error
}

// PatientChecker confirms a patient exists.
type PatientChecker interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
}

// DoctorChecker confirms a doctor account exists.
type DoctorChecker interface {
	DoctorExists(ctx context.Context, id int64) (bool, error)
}

// ReminderScheduler queues a reminder for an upcoming appointment.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, a Appointment) error
}

// Service wraps scheduling business rules.
type Service struct {
	store     Store
	patients  PatientChecker
	doctors   DoctorChecker
	reminders ReminderScheduler
	logger    *slog.Logger
}

// NewService constructs a Service. reminders may be nil when no queue is
// configured.
func NewService(store Store, patients PatientChecker, doctors DoctorChecker, reminders ReminderScheduler, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		patients:  patients,
		doctors:   doctors,
		reminders: reminders,
		logger:    logger,
	}
}

// List returns a page of appointments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Appointment, error) {
	return s.store.List(ctx, filter, params)
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, id int64) (Appointment, error) {
	return s.store.Get(ctx, id)
}

// Create schedules an appointment. The patient and doctor must exist, and
// the doctor's slot must be free of active bookings: the check and the
// insert share one transaction, with the partial unique index as a backstop
// so two concurrent requests cannot both win the slot.
func (s *Service) Create(ctx context.Context, createdBy int64, input CreateInput) (Appointment, error) {
	ok, err := s.patients.PatientExists(ctx, input.PatientID)
	if err != nil {
		return Appointment{}, err
	}
	if !ok {
		return Appointment{}, shared.ErrNotFound
	}
	ok, err = s.doctors.DoctorExists(ctx, input.DoctorID)
	if err != nil {
		return Appointment{}, err
	}
	if !ok {
		return Appointment{}, shared.ErrNotFound
	}

	duration := input.Duration
	if duration <= 0 {
		duration = 30
	}

	var created Appointment
	err = s.store.WithTx(ctx, func(tx Store) error {
		taken, err := tx.SlotTaken(ctx, input.DoctorID, input.Date, input.Time, 0)
		if err != nil {
			return err
		}
		if taken {
			return shared.Conflict(shared.ReasonDoubleBooking)
		}
		created, err = tx.Insert(ctx, Appointment{
			PatientID:    input.PatientID,
			DoctorID:     input.DoctorID,
			DepartmentID: input.DepartmentID,
			Date:         input.Date,
			Time:         input.Time,
			Duration:     duration,
			Status:       StatusScheduled,
			Reason:       input.Reason,
			Notes:        input.Notes,
			CreatedByID:  createdBy,
		})
		return err
	})
	if err != nil {
		return Appointment{}, err
	}

	s.scheduleReminder(ctx, created)
	return created, nil
}

// Update applies a partial update. Moving the slot, or bringing a terminal
// appointment back to an active status, re-runs the conflict check against
// other active appointments.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Appointment, error) {
	var updated Appointment
	err := s.store.WithTx(ctx, func(tx Store) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		wasTerminal := current.Status.Terminal()
		moved := false
		if input.Date != nil && !input.Date.Equal(current.Date) {
			current.Date = *input.Date
			moved = true
		}
		if input.Time != nil && *input.Time != current.Time {
			current.Time = *input.Time
			moved = true
		}
		if input.Duration != nil {
			current.Duration = *input.Duration
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return shared.ErrValidation
			}
			current.Status = *input.Status
		}
		if input.Reason != nil {
			current.Reason = *input.Reason
		}
		if input.Notes != nil {
			current.Notes = *input.Notes
		}
		reactivated := wasTerminal && !current.Status.Terminal()
		if (moved || reactivated) && !current.Status.Terminal() {
			taken, err := tx.SlotTaken(ctx, current.DoctorID, current.Date, current.Time, current.ID)
			if err != nil {
				return err
			}
			if taken {
				return shared.Conflict(shared.ReasonDoubleBooking)
			}
		}
		updated, err = tx.Update(ctx, current)
		return err
	})
	if err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

// Cancel is the delete operation: the row survives with status cancelled so
// history and reporting keep the visit.
func (s *Service) Cancel(ctx context.Context, id int64) (Appointment, error) {
	status := StatusCancelled
	return s.Update(ctx, id, UpdateInput{Status: &status})
}

func (s *Service) scheduleReminder(ctx context.Context, a Appointment) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.ScheduleReminder(ctx, a); err != nil && s.logger != nil {
		s.logger.Warn("schedule reminder",
			slog.Int64("appointment_id", a.ID),
			slog.Any("error", err),
		)
	}
}
