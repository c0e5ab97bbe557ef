package patients

import (
	"context"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Patient, error)
	Get(ctx context.Context, id int64) (Patient, error)
	Create(ctx context.Context, p Patient) (Patient, error)
	Update(ctx context.Context, p Patient) (Patient, error)
	Delete(ctx context.Context, id int64) error
}

// Service wraps patient registry business rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a page of patients matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, params shared.ListParams) ([]Patient, error) {
	return s.repo.List(ctx, filter, params)
}

// Get fetches one patient.
func (s *Service) Get(ctx context.Context, id int64) (Patient, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a patient as active.
func (s *Service) Create(ctx context.Context, p Patient) (Patient, error) {
	p.IsActive = true
	return s.repo.Create(ctx, p)
}

// Update replaces the patient's mutable fields.
func (s *Service) Update(ctx context.Context, p Patient) (Patient, error) {
	return s.repo.Update(ctx, p)
}

// Delete removes a patient record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
