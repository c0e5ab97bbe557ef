package users

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context, params shared.ListParams) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
}

// RoleManager covers the role graph operations the service needs.
type RoleManager interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	UnassignRole(ctx context.Context, userID, roleID int64) error
	RolesOf(ctx context.Context, userID int64) ([]rbac.Role, error)
}

// Service wraps account management business rules.
type Service struct {
	repo      RepositoryPort
	roles     RoleManager
	evaluator *rbac.Evaluator
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, roles RoleManager, evaluator *rbac.Evaluator) *Service {
	return &Service{repo: repo, roles: roles, evaluator: evaluator}
}

// List returns a page of accounts.
func (s *Service) List(ctx context.Context, params shared.ListParams) ([]User, error) {
	return s.repo.List(ctx, params)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create hashes the password and inserts the account active.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		IsActive:     true,
	})
}

// Update applies a partial update. A new password is re-hashed; the username
// is immutable.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if input.Email != nil {
		current.Email = *input.Email
	}
	if input.FullName != nil {
		current.FullName = *input.FullName
	}
	if input.Phone != nil {
		current.Phone = *input.Phone
	}
	if input.IsActive != nil {
		current.IsActive = *input.IsActive
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		current.PasswordHash = string(hash)
	}
	return s.repo.Update(ctx, current)
}

// Delete removes an account. Actors cannot delete themselves regardless of
// how much authority they hold.
func (s *Service) Delete(ctx context.Context, actor *rbac.Principal, id int64) error {
	if decision := s.evaluator.CanDeleteUser(actor, id); !decision.Allowed {
		return decision.Err()
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AssignRole attaches a role to an account after confirming both exist.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.roles.AssignRole(ctx, userID, roleID)
}

// UnassignRole detaches a role from an account.
func (s *Service) UnassignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.roles.UnassignRole(ctx, userID, roleID)
}

// RolesOf lists the roles attached to an account.
func (s *Service) RolesOf(ctx context.Context, userID int64) ([]rbac.Role, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.roles.RolesOf(ctx, userID)
}
