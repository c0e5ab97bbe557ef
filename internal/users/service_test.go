package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

type mockRepo struct {
	nextID int64
	users  map[int64]User
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, users: map[int64]User{}}
}

func (m *mockRepo) List(ctx context.Context, params shared.ListParams) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) Create(ctx context.Context, u User) (User, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *mockRepo) Update(ctx context.Context, u User) (User, error) {
	if _, ok := m.users[u.ID]; !ok {
		return User{}, shared.ErrNotFound
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type mockRoleManager struct {
	assigned map[int64][]rbac.Role
}

func newMockRoleManager() *mockRoleManager {
	return &mockRoleManager{assigned: map[int64][]rbac.Role{}}
}

func (m *mockRoleManager) AssignRole(ctx context.Context, userID, roleID int64) error {
	m.assigned[userID] = append(m.assigned[userID], rbac.Role{ID: roleID})
	return nil
}

func (m *mockRoleManager) UnassignRole(ctx context.Context, userID, roleID int64) error {
	kept := m.assigned[userID][:0]
	for _, role := range m.assigned[userID] {
		if role.ID != roleID {
			kept = append(kept, role)
		}
	}
	m.assigned[userID] = kept
	return nil
}

func (m *mockRoleManager) RolesOf(ctx context.Context, userID int64) ([]rbac.Role, error) {
	return m.assigned[userID], nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, newMockRoleManager(), rbac.NewEvaluator(nil)), repo
}

func TestCreateHashesPassword(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "nurse",
		Email:    "nurse@hospital.local",
		FullName: "Nancy Nurse",
		Password: "nurse123",
	})
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "nurse123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("nurse123")))
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "nurse", Email: "a@hospital.local", FullName: "A", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "nurse", Email: "b@hospital.local", FullName: "B", Password: "secret1",
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdatePartialFields(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "nurse", Email: "nurse@hospital.local", FullName: "Nancy Nurse", Password: "nurse123",
	})
	require.NoError(t, err)

	email := "new@hospital.local"
	inactive := false
	updated, err := svc.Update(context.Background(), u.ID, UpdateUserInput{
		Email:    &email,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@hospital.local", updated.Email)
	assert.Equal(t, "Nancy Nurse", updated.FullName)
	assert.False(t, updated.IsActive)
	// Password untouched.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("nurse123")))
}

func TestUpdateRehashesPassword(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "nurse", Email: "nurse@hospital.local", FullName: "Nancy Nurse", Password: "nurse123",
	})
	require.NoError(t, err)

	password := "changed456"
	updated, err := svc.Update(context.Background(), u.ID, UpdateUserInput{Password: &password})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("changed456")))
}

func TestDeleteRejectsSelf(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "admin", Email: "admin@hospital.local", FullName: "Admin", Password: "admin123",
	})
	require.NoError(t, err)

	actor := &rbac.Principal{ID: u.ID, Username: "admin", Active: true}
	err = svc.Delete(context.Background(), actor, u.ID)

	var invalidOp *shared.InvalidOperationError
	require.ErrorAs(t, err, &invalidOp)
	assert.Equal(t, shared.ReasonSelfDelete, invalidOp.Reason)
	_, stillThere := repo.users[u.ID]
	assert.True(t, stillThere)
}

func TestDeleteOtherUser(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "nurse", Email: "nurse@hospital.local", FullName: "Nancy Nurse", Password: "nurse123",
	})
	require.NoError(t, err)

	actor := &rbac.Principal{ID: u.ID + 1, Username: "admin", Active: true}
	require.NoError(t, svc.Delete(context.Background(), actor, u.ID))
	assert.Empty(t, repo.users)
}

func TestDeleteMissingUser(t *testing.T) {
	svc, _ := newTestService()
	actor := &rbac.Principal{ID: 99, Active: true}
	err := svc.Delete(context.Background(), actor, 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	svc, _ := newTestService()
	err := svc.AssignRole(context.Background(), 42, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignAndListRoles(t *testing.T) {
	svc, _ := newTestService()
	u, err := svc.Create(context.Background(), CreateUserInput{
		Username: "doctor", Email: "doctor@hospital.local", FullName: "Doc", Password: "doctor123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), u.ID, 3))
	roles, err := svc.RolesOf(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, int64(3), roles[0].ID)

	require.NoError(t, svc.UnassignRole(context.Background(), u.ID, 3))
	roles, err = svc.RolesOf(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
