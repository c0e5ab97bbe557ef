package appointments

import "time"

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// activeStatuses hold a doctor's slot; terminal statuses free it.
var activeStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether the status no longer holds the slot.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a scheduled visit. Date carries the calendar day and Time
// the slot in HH:MM form.
type Appointment struct {
	ID           int64
	PatientID    int64
	DoctorID     int64
	DepartmentID *int64
	Date         time.Time
	Time         string
	Duration     int
	Status       Status
	Reason       string
	Notes        string
	CreatedByID  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Slot returns the absolute start of the appointment.
func (a Appointment) Slot() time.Time {
	t, err := time.Parse("15:04", a.Time)
	if err != nil {
		return a.Date
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, a.Date.Location())
}

// CreateInput carries validated fields for scheduling.
type CreateInput struct {
	PatientID    int64
	DoctorID     int64
	DepartmentID *int64
	Date         time.Time
	Time         string
	Duration     int
	Reason       string
	Notes        string
}

// UpdateInput carries partial updates. Nil fields are left unchanged.
type UpdateInput struct {
	Date     *time.Time
	Time     *string
	Duration *int
	Status   *Status
	Reason   *string
	Notes    *string
}

// ListFilter narrows an appointment listing.
type ListFilter struct {
	PatientID *int64
	DoctorID  *int64
	Date      *time.Time
	Status    *Status
}
