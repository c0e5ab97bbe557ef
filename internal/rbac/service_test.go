package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-hms/helix-hms/internal/shared"
)

func TestRegisterPermissionDuplicateName(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.RegisterPermission(ctx, "patients.read", "View patients", "patients", "read")
	require.NoError(t, err)

	_, err = svc.RegisterPermission(ctx, "patients.read", "again", "patients", "read")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestLookupPermissionNotFound(t *testing.T) {
	svc := NewService(newMockStore(), nil)

	_, err := svc.LookupPermission(context.Background(), "no.such")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "Auditor", "read only", 10)
	require.NoError(t, err)

	_, err = svc.CreateRole(ctx, "Auditor", "again", 20)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestGrantIsIdempotent(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Auditor", "", 10)
	require.NoError(t, err)
	perm, err := svc.RegisterPermission(ctx, "patients.read", "", "patients", "read")
	require.NoError(t, err)

	require.NoError(t, svc.Grant(ctx, role.ID, perm.ID))
	require.NoError(t, svc.Grant(ctx, role.ID, perm.ID))

	perms, err := svc.PermissionsOf(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, perms, 1)
}

func TestGrantUnknownRoleOrPermission(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Auditor", "", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Grant(ctx, 999, 1), shared.ErrNotFound)
	assert.ErrorIs(t, svc.Grant(ctx, role.ID, 999), shared.ErrNotFound)
}

func TestRevokeIsIdempotent(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Auditor", "", 10)
	require.NoError(t, err)
	perm, err := svc.RegisterPermission(ctx, "patients.read", "", "patients", "read")
	require.NoError(t, err)
	require.NoError(t, svc.Grant(ctx, role.ID, perm.ID))

	require.NoError(t, svc.Revoke(ctx, role.ID, perm.ID))
	// Revoking an absent permission is a no-op, not an error.
	require.NoError(t, svc.Revoke(ctx, role.ID, perm.ID))

	perms, err := svc.PermissionsOf(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	assert.ErrorIs(t, svc.Revoke(ctx, 999, perm.ID), shared.ErrNotFound)
}

func TestAssignRoleIdempotent(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Auditor", "", 10)
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, 7, role.ID))
	require.NoError(t, svc.AssignRole(ctx, 7, role.ID))

	roles, err := svc.RolesOf(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	require.NoError(t, svc.UnassignRole(ctx, 7, role.ID))
	require.NoError(t, svc.UnassignRole(ctx, 7, role.ID))

	roles, err = svc.RolesOf(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, roles)

	assert.ErrorIs(t, svc.AssignRole(ctx, 7, 999), shared.ErrNotFound)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	store := newMockStore()
	store.unknownUsers = map[int64]struct{}{42: {}}
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Auditor", "", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AssignRole(ctx, 42, role.ID), shared.ErrNotFound)

	roles, err := svc.RolesOf(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestEffectivePermissionsUnionAcrossRoles(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	readers, err := svc.CreateRole(ctx, "Readers", "", 10)
	require.NoError(t, err)
	writers, err := svc.CreateRole(ctx, "Writers", "", 20)
	require.NoError(t, err)

	read, err := svc.RegisterPermission(ctx, "patients.read", "", "patients", "read")
	require.NoError(t, err)
	update, err := svc.RegisterPermission(ctx, "patients.update", "", "patients", "update")
	require.NoError(t, err)

	require.NoError(t, svc.Grant(ctx, readers.ID, read.ID))
	require.NoError(t, svc.Grant(ctx, writers.ID, update.ID))
	// Overlap: both roles carry read.
	require.NoError(t, svc.Grant(ctx, writers.ID, read.ID))

	require.NoError(t, svc.AssignRole(ctx, 7, readers.ID))
	require.NoError(t, svc.AssignRole(ctx, 7, writers.ID))

	p := &Principal{ID: 7, Active: true, Roles: []string{"Readers", "Writers"}}
	perms, err := svc.EffectivePermissions(ctx, p)
	require.NoError(t, err)

	names := make([]string, 0, len(perms))
	for _, perm := range perms {
		names = append(names, perm.Name)
	}
	// Union with set semantics: no duplicates, superset of each role's set.
	assert.ElementsMatch(t, []string{"patients.read", "patients.update"}, names)

	ok, err := svc.HasPermission(ctx, p, "patients.read")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasPermission(ctx, p, "patients.delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffectivePermissionsInactivePrincipal(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Readers", "", 10)
	require.NoError(t, err)
	perm, err := svc.RegisterPermission(ctx, "patients.read", "", "patients", "read")
	require.NoError(t, err)
	require.NoError(t, svc.Grant(ctx, role.ID, perm.ID))
	require.NoError(t, svc.AssignRole(ctx, 7, role.ID))

	p := &Principal{ID: 7, Active: false, Roles: []string{"Readers"}}
	perms, err := svc.EffectivePermissions(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, perms)

	ok, err := svc.HasPermission(ctx, p, "patients.read")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasRole(t *testing.T) {
	svc := NewService(newMockStore(), nil)
	p := &Principal{ID: 1, Active: true, Roles: []string{shared.RoleDoctor}}

	assert.True(t, svc.HasRole(p, shared.RoleDoctor))
	assert.False(t, svc.HasRole(p, shared.RoleAdministrator))
	assert.False(t, svc.HasRole(nil, shared.RoleDoctor))
}
