package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// Store defines data access over the RBAC graph.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	PermissionByName(ctx context.Context, name string) (Permission, error)
	PermissionByID(ctx context.Context, id int64) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)

	CreateRole(ctx context.Context, role Role) (Role, error)
	RoleByID(ctx context.Context, id int64) (Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CountRoles(ctx context.Context) (int64, error)

	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	UnassignRole(ctx context.Context, userID, roleID int64) error
	UserExists(ctx context.Context, userID int64) (bool, error)
	UserRoles(ctx context.Context, userID int64) ([]Role, error)
	UserPermissionNames(ctx context.Context, userID int64) ([]string, error)
}

// Invalidator drops cached permission resolutions after graph mutations so
// subsequent reads observe the post-mutation state.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
	InvalidateAll(ctx context.Context)
}

// Service orchestrates RBAC operations.
type Service struct {
	store Store
	cache Invalidator
}

// NewService constructs a Service backed by the provided store. cache may be
// nil when no permission cache is wired.
func NewService(store Store, cache Invalidator) *Service {
	return &Service{store: store, cache: cache}
}

// RegisterPermission adds a permission to the registry. The registry is
// append-only: names are unique and entries are never mutated afterwards.
func (s *Service) RegisterPermission(ctx context.Context, name, description, resource, action string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrValidation)
	}
	return s.store.CreatePermission(ctx, Permission{
		Name:        name,
		Description: strings.TrimSpace(description),
		Resource:    resource,
		Action:      action,
	})
}

// LookupPermission fetches a permission by name.
func (s *Service) LookupPermission(ctx context.Context, name string) (Permission, error) {
	return s.store.PermissionByName(ctx, name)
}

// ListPermissions returns the full permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string, priority int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	return s.store.CreateRole(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		Priority:    priority,
	})
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.store.RoleByID(ctx, id)
}

// Grant adds a permission to a role's set. Granting an already-held
// permission is a no-op. Fails with ErrNotFound when either side is missing.
func (s *Service) Grant(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.store.RoleByID(ctx, roleID); err != nil {
		return err
	}
	if _, err := s.store.PermissionByID(ctx, permissionID); err != nil {
		return err
	}
	if err := s.store.GrantPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// Revoke removes a permission from a role's set. Revoking an absent
// permission is a no-op. Fails with ErrNotFound when the role is missing.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.store.RoleByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.RevokePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// PermissionsOf returns the current permission set of a role.
func (s *Service) PermissionsOf(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := s.store.RoleByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.RolePermissions(ctx, roleID)
}

// AssignRole adds a role to a user. Idempotent; fails with ErrNotFound when
// the role or the user does not exist.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.store.RoleByID(ctx, roleID); err != nil {
		return err
	}
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	if err := s.store.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// UnassignRole removes a role from a user. Idempotent.
func (s *Service) UnassignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.store.RoleByID(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.UnassignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RolesOf returns all roles assigned to a user.
func (s *Service) RolesOf(ctx context.Context, userID int64) ([]Role, error) {
	return s.store.UserRoles(ctx, userID)
}

// EffectivePermissions computes the union of permissions across every role
// held by the principal. An inactive principal holds no effective permissions
// regardless of role membership.
func (s *Service) EffectivePermissions(ctx context.Context, p *Principal) ([]Permission, error) {
	if p == nil {
		return nil, shared.ErrUnauthenticated
	}
	if !p.Active {
		return []Permission{}, nil
	}
	roles, err := s.store.UserRoles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	var perms []Permission
	for _, role := range roles {
		rolePerms, err := s.store.RolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, perm := range rolePerms {
			if _, ok := seen[perm.ID]; ok {
				continue
			}
			seen[perm.ID] = struct{}{}
			perms = append(perms, perm)
		}
	}
	if perms == nil {
		perms = []Permission{}
	}
	return perms, nil
}

// HasPermission reports whether the permission name is in the principal's
// effective set.
func (s *Service) HasPermission(ctx context.Context, p *Principal, name string) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, p)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			return false, nil
		}
		return false, err
	}
	for _, perm := range perms {
		if perm.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// HasRole reports whether the principal holds the named role.
func (s *Service) HasRole(p *Principal, name string) bool {
	return p.HasRole(name)
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}
