package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// RoleSource resolves the role names assigned to an account.
type RoleSource interface {
	RolesOf(ctx context.Context, userID int64) ([]rbac.Role, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	roles  RoleSource
	tokens *TokenManager
}

// NewService constructs a Service.
func NewService(repo Repository, roles RoleSource, tokens *TokenManager) *Service {
	return &Service{repo: repo, roles: roles, tokens: tokens}
}

// Authenticate validates username/password credentials and issues an access
// token. Unknown accounts, wrong passwords and inactive accounts all collapse
// into ErrInvalidCredentials so the response leaks nothing.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, *Account, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// ResolvePrincipal turns verified token claims into a Principal with its role
// names attached. The active flag travels with the principal so the evaluator
// can surface the account-disabled signal instead of a generic denial.
func (s *Service) ResolvePrincipal(ctx context.Context, claims *Claims) (*rbac.Principal, error) {
	account, err := s.repo.FindByUsername(ctx, claims.Username)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	roles, err := s.roles.RolesOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return &rbac.Principal{
		ID:       account.ID,
		Username: account.Username,
		Active:   account.IsActive,
		Roles:    names,
	}, nil
}
