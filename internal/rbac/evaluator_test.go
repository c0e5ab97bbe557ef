package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helix-hms/helix-hms/internal/shared"
)

func seededEvaluator(t *testing.T) (*Evaluator, *Service, *mockStore) {
	t.Helper()
	store := newMockStore()
	svc := NewService(store, nil)
	return NewEvaluator(store), svc, store
}

func grantNamed(t *testing.T, svc *Service, roleName string, priority int, userID int64, permNames ...string) {
	t.Helper()
	ctx := context.Background()
	role, err := svc.CreateRole(ctx, roleName, "", priority)
	require.NoError(t, err)
	for _, name := range permNames {
		perm, err := svc.LookupPermission(ctx, name)
		if err != nil {
			perm, err = svc.RegisterPermission(ctx, name, "", "", "")
			require.NoError(t, err)
		}
		require.NoError(t, svc.Grant(ctx, role.ID, perm.ID))
	}
	require.NoError(t, svc.AssignRole(ctx, userID, role.ID))
}

func TestCheckPermissionUnauthenticated(t *testing.T) {
	eval, _, _ := seededEvaluator(t)

	decision, err := eval.CheckPermission(context.Background(), nil, shared.PermPatientsRead)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.ErrorIs(t, decision.Err(), shared.ErrUnauthenticated)
}

func TestCheckPermissionDisabledAccount(t *testing.T) {
	eval, svc, _ := seededEvaluator(t)
	grantNamed(t, svc, shared.RoleDoctor, 70, 7, shared.PermPatientsRead)

	p := &Principal{ID: 7, Active: false, Roles: []string{shared.RoleDoctor}}
	decision, err := eval.CheckPermission(context.Background(), p, shared.PermPatientsRead)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "account_disabled", decision.Reason)
	assert.ErrorIs(t, decision.Err(), shared.ErrAccountDisabled)
}

func TestCheckPermissionMembership(t *testing.T) {
	eval, svc, _ := seededEvaluator(t)
	grantNamed(t, svc, shared.RoleDoctor, 70, 7, shared.PermPatientsRead)

	p := &Principal{ID: 7, Active: true, Roles: []string{shared.RoleDoctor}}

	decision, err := eval.CheckPermission(context.Background(), p, shared.PermPatientsRead)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.NoError(t, decision.Err())

	decision, err = eval.CheckPermission(context.Background(), p, shared.PermUsersDelete)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, shared.ReasonMissingPermission, decision.Reason)

	var forbidden *shared.ForbiddenError
	require.ErrorAs(t, decision.Err(), &forbidden)
	assert.Equal(t, shared.ReasonMissingPermission, forbidden.Reason)
}

func TestConfidentialRecordRead(t *testing.T) {
	eval := NewEvaluator(newMockStore())

	rec := MedicalRecordRef{DoctorID: 7, Confidential: true}
	owner := &Principal{ID: 7, Active: true, Roles: []string{shared.RoleDoctor}}
	admin := &Principal{ID: 1, Active: true, Roles: []string{shared.RoleAdministrator}}
	other := &Principal{ID: 9, Active: true, Roles: []string{shared.RoleDoctor}}

	assert.True(t, eval.CanReadMedicalRecord(owner, rec).Allowed)
	assert.True(t, eval.CanReadMedicalRecord(admin, rec).Allowed)

	decision := eval.CanReadMedicalRecord(other, rec)
	assert.False(t, decision.Allowed)
	assert.Equal(t, shared.ReasonConfidentialAccess, decision.Reason)

	// Non-confidential records carry no instance policy.
	open := MedicalRecordRef{DoctorID: 7, Confidential: false}
	assert.True(t, eval.CanReadMedicalRecord(other, open).Allowed)
}

func TestMedicalRecordUpdatePolicy(t *testing.T) {
	eval := NewEvaluator(newMockStore())

	rec := MedicalRecordRef{DoctorID: 7}
	owner := &Principal{ID: 7, Active: true, Roles: []string{shared.RoleDoctor}}
	admin := &Principal{ID: 1, Active: true, Roles: []string{shared.RoleAdministrator}}
	other := &Principal{ID: 9, Active: true, Roles: []string{shared.RoleNurse}}

	assert.True(t, eval.CanUpdateMedicalRecord(owner, rec).Allowed)
	assert.True(t, eval.CanUpdateMedicalRecord(admin, rec).Allowed)

	decision := eval.CanUpdateMedicalRecord(other, rec)
	assert.False(t, decision.Allowed)
	assert.Equal(t, shared.ReasonNotOwner, decision.Reason)
}

func TestMedicalRecordDeleteAdminOnly(t *testing.T) {
	eval := NewEvaluator(newMockStore())

	admin := &Principal{ID: 1, Active: true, Roles: []string{shared.RoleAdministrator}}
	// Even the owning doctor may not delete.
	owner := &Principal{ID: 7, Active: true, Roles: []string{shared.RoleDoctor}}

	assert.True(t, eval.CanDeleteMedicalRecord(admin).Allowed)

	decision := eval.CanDeleteMedicalRecord(owner)
	assert.False(t, decision.Allowed)
	assert.Equal(t, shared.ReasonAdminOnly, decision.Reason)
}

func TestMedicalRecordScope(t *testing.T) {
	eval := NewEvaluator(newMockStore())

	doctor := &Principal{ID: 7, Active: true, Roles: []string{shared.RoleDoctor}}
	adminDoctor := &Principal{ID: 3, Active: true, Roles: []string{shared.RoleAdministrator, shared.RoleDoctor}}
	nurse := &Principal{ID: 5, Active: true, Roles: []string{shared.RoleNurse}}

	// Doctor with no explicit filter is scoped to own records.
	scope := eval.MedicalRecordScope(doctor, nil)
	require.NotNil(t, scope.DoctorID)
	assert.Equal(t, int64(7), *scope.DoctorID)

	// An explicit filter is honored, even for another doctor's records.
	otherID := int64(9)
	scope = eval.MedicalRecordScope(doctor, &otherID)
	require.NotNil(t, scope.DoctorID)
	assert.Equal(t, int64(9), *scope.DoctorID)

	// Administrators are never scoped implicitly.
	scope = eval.MedicalRecordScope(adminDoctor, nil)
	assert.Nil(t, scope.DoctorID)

	// Non-doctor roles are not scoped.
	scope = eval.MedicalRecordScope(nurse, nil)
	assert.Nil(t, scope.DoctorID)
}

func TestSelfDeletionGuard(t *testing.T) {
	eval := NewEvaluator(newMockStore())

	admin := &Principal{ID: 1, Active: true, Roles: []string{shared.RoleAdministrator}}

	assert.True(t, eval.CanDeleteUser(admin, 2).Allowed)

	decision := eval.CanDeleteUser(admin, 1)
	assert.False(t, decision.Allowed)
	assert.Equal(t, shared.ReasonSelfDelete, decision.Reason)

	var invalidOp *shared.InvalidOperationError
	require.ErrorAs(t, decision.Err(), &invalidOp)
	assert.Equal(t, shared.ReasonSelfDelete, invalidOp.Reason)
}
