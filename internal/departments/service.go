package departments

import (
	"context"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, params shared.ListParams) ([]Department, error)
	Get(ctx context.Context, id int64) (Department, error)
	Create(ctx context.Context, d Department) (Department, error)
	Update(ctx context.Context, d Department) (Department, error)
	Delete(ctx context.Context, id int64) error
}

// Service wraps department business rules.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a page of departments.
func (s *Service) List(ctx context.Context, params shared.ListParams) ([]Department, error) {
	return s.repo.List(ctx, params)
}

// Get fetches one department.
func (s *Service) Get(ctx context.Context, id int64) (Department, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a department as active.
func (s *Service) Create(ctx context.Context, d Department) (Department, error) {
	d.IsActive = true
	return s.repo.Create(ctx, d)
}

// Update replaces the department's mutable fields.
func (s *Service) Update(ctx context.Context, d Department) (Department, error) {
	return s.repo.Update(ctx, d)
}

// Delete removes a department.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
