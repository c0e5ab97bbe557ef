package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-hms/helix-hms/internal/shared"
)

type mockStore struct {
	nextID       int64
	appointments map[int64]Appointment
}

func newMockStore() *mockStore {
	return &mockStore{nextID: 1, appointments: map[int64]Appointment{}}
}

func (m *mockStore) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Appointment, error) {
	var out []Appointment
	for _, a := range m.appointments {
		if filter.DoctorID != nil && a.DoctorID != *filter.DoctorID {
			continue
		}
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) Get(ctx context.Context, id int64) (Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return Appointment{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockStore) SlotTaken(ctx context.Context, doctorID int64, date time.Time, slot string, excludeID int64) (bool, error) {
	for _, a := range m.appointments {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == slot && !a.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) Insert(ctx context.Context, a Appointment) (Appointment, error) {
	a.ID = m.nextID
	m.nextID++
	m.appointments[a.ID] = a
	return a, nil
}

func (m *mockStore) Update(ctx context.Context, a Appointment) (Appointment, error) {
	if _, ok := m.appointments[a.ID]; !ok {
		return Appointment{}, shared.ErrNotFound
	}
	m.appointments[a.ID] = a
	return a, nil
}

func (m *mockStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

type existsSet struct {
	ids map[int64]bool
}

func (s existsSet) PatientExists(ctx context.Context, id int64) (bool, error) {
	return s.ids[id], nil
}

func (s existsSet) DoctorExists(ctx context.Context, id int64) (bool, error) {
	return s.ids[id], nil
}

type recordingScheduler struct {
	scheduled []Appointment
}

func (r *recordingScheduler) ScheduleReminder(ctx context.Context, a Appointment) error {
	r.scheduled = append(r.scheduled, a)
	return nil
}

func newTestService(store *mockStore) (*Service, *recordingScheduler) {
	directory := existsSet{ids: map[int64]bool{1: true, 2: true, 3: true}}
	scheduler := &recordingScheduler{}
	return NewService(store, directory, directory, scheduler, nil), scheduler
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCreateSchedulesAndEnqueuesReminder(t *testing.T) {
	store := newMockStore()
	svc, scheduler := newTestService(store)

	a, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1,
		DoctorID:  2,
		Date:      day("2026-09-15"),
		Time:      "10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, a.Status)
	assert.Equal(t, 30, a.Duration)
	assert.Equal(t, int64(9), a.CreatedByID)
	require.Len(t, scheduler.scheduled, 1)
	assert.Equal(t, a.ID, scheduler.scheduled[0].ID)
}

func TestCreateUnknownPatient(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	_, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 99,
		DoctorID:  2,
		Date:      day("2026-09-15"),
		Time:      "10:30",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRejectsDoubleBooking(t *testing.T) {
	store := newMockStore()
	svc, scheduler := newTestService(store)

	input := CreateInput{PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30"}
	_, err := svc.Create(context.Background(), 9, input)
	require.NoError(t, err)

	input.PatientID = 3
	_, err = svc.Create(context.Background(), 9, input)

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, shared.ReasonDoubleBooking, conflict.Reason)
	assert.Len(t, store.appointments, 1)
	assert.Len(t, scheduler.scheduled, 1)
}

func TestCreateAllowsDifferentDoctorSameSlot(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 3, Date: day("2026-09-15"), Time: "10:30",
	})
	assert.NoError(t, err)
}

func TestCreateReusesCancelledSlot(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	first, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 9, CreateInput{
		PatientID: 3, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	assert.NoError(t, err)
}

func TestCancelIsSoft(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	a, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// The row survives the cancellation.
	kept, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, kept.Status)
}

func TestUpdateMoveChecksConflict(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 3, DoctorID: 2, Date: day("2026-09-15"), Time: "11:00",
	})
	require.NoError(t, err)

	slot := "10:30"
	_, err = svc.Update(context.Background(), second.ID, UpdateInput{Time: &slot})

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, shared.ReasonDoubleBooking, conflict.Reason)
}

func TestUpdateReactivationChecksConflict(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	first, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	// The freed slot is booked by someone else.
	_, err = svc.Create(context.Background(), 9, CreateInput{
		PatientID: 3, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	// Bringing the cancelled appointment back must re-check the slot.
	status := StatusScheduled
	_, err = svc.Update(context.Background(), first.ID, UpdateInput{Status: &status})

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, shared.ReasonDoubleBooking, conflict.Reason)

	kept, err := svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, kept.Status)
}

func TestUpdateKeepingSlotDoesNotConflictWithItself(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	a, err := svc.Create(context.Background(), 9, CreateInput{
		PatientID: 1, DoctorID: 2, Date: day("2026-09-15"), Time: "10:30",
	})
	require.NoError(t, err)

	status := StatusConfirmed
	updated, err := svc.Update(context.Background(), a.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
}
