package medrecords

import (
	"context"
	"time"

	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// PatientChecker confirms a patient exists.
type PatientChecker interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
}

// Service wraps medical record business rules. Record-level policy runs here,
// after the coarse permission gate in the router: reads of confidential
// records, updates and deletes all consult the evaluator against the loaded
// instance.
type Service struct {
	repo      RepositoryPort
	patients  PatientChecker
	evaluator *rbac.Evaluator
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, patients PatientChecker, evaluator *rbac.Evaluator) *Service {
	return &Service{repo: repo, patients: patients, evaluator: evaluator}
}

// List returns records visible to the actor. Doctors without administrative
// authority see their own records unless they filter by doctor explicitly.
func (s *Service) List(ctx context.Context, actor *rbac.Principal, filter ListFilter, params shared.ListParams) ([]Record, error) {
	scope := s.evaluator.MedicalRecordScope(actor, filter.DoctorID)
	filter.DoctorID = scope.DoctorID
	return s.repo.List(ctx, filter, params)
}

// Get fetches one record, applying the confidentiality policy.
func (s *Service) Get(ctx context.Context, actor *rbac.Principal, id int64) (Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	decision := s.evaluator.CanReadMedicalRecord(actor, rbac.MedicalRecordRef{
		DoctorID:     rec.DoctorID,
		Confidential: rec.IsConfidential,
	})
	if !decision.Allowed {
		return Record{}, decision.Err()
	}
	return rec, nil
}

// Create stores a record authored by the acting principal.
func (s *Service) Create(ctx context.Context, actor *rbac.Principal, input CreateInput) (Record, error) {
	if actor == nil {
		return Record{}, shared.ErrUnauthenticated
	}
	ok, err := s.patients.PatientExists(ctx, input.PatientID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	visitDate := input.VisitDate
	if visitDate.IsZero() {
		visitDate = time.Now()
	}
	return s.repo.Create(ctx, Record{
		PatientID:      input.PatientID,
		DoctorID:       actor.ID,
		AppointmentID:  input.AppointmentID,
		VisitDate:      visitDate,
		Diagnosis:      input.Diagnosis,
		Symptoms:       input.Symptoms,
		Treatment:      input.Treatment,
		Prescriptions:  input.Prescriptions,
		LabResults:     input.LabResults,
		Notes:          input.Notes,
		IsConfidential: input.IsConfidential,
	})
}

// Update applies a partial update under the owner-or-admin policy.
func (s *Service) Update(ctx context.Context, actor *rbac.Principal, id int64, input UpdateInput) (Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	decision := s.evaluator.CanUpdateMedicalRecord(actor, rbac.MedicalRecordRef{
		DoctorID:     rec.DoctorID,
		Confidential: rec.IsConfidential,
	})
	if !decision.Allowed {
		return Record{}, decision.Err()
	}
	if input.Diagnosis != nil {
		rec.Diagnosis = *input.Diagnosis
	}
	if input.Symptoms != nil {
		rec.Symptoms = *input.Symptoms
	}
	if input.Treatment != nil {
		rec.Treatment = *input.Treatment
	}
	if input.Prescriptions != nil {
		rec.Prescriptions = *input.Prescriptions
	}
	if input.LabResults != nil {
		rec.LabResults = *input.LabResults
	}
	if input.Notes != nil {
		rec.Notes = *input.Notes
	}
	if input.IsConfidential != nil {
		rec.IsConfidential = *input.IsConfidential
	}
	return s.repo.Update(ctx, rec)
}

// Delete removes a record. Only administrators may delete, regardless of
// authorship.
func (s *Service) Delete(ctx context.Context, actor *rbac.Principal, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if decision := s.evaluator.CanDeleteMedicalRecord(actor); !decision.Allowed {
		return decision.Err()
	}
	return s.repo.Delete(ctx, id)
}
