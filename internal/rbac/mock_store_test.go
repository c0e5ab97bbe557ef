package rbac

import (
	"context"
	"sort"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	perms       map[int64]Permission
	permsByName map[string]int64
	roles       map[int64]Role
	rolesByName map[string]int64
	rolePerms   map[int64]map[int64]struct{}
	userRoles   map[int64]map[int64]struct{}

	nextPermID int64
	nextRoleID int64

	// Error injection
	countRolesErr error

	// Users absent from the directory. Everything else is assumed to exist.
	unknownUsers map[int64]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{
		perms:       make(map[int64]Permission),
		permsByName: make(map[string]int64),
		roles:       make(map[int64]Role),
		rolesByName: make(map[string]int64),
		rolePerms:   make(map[int64]map[int64]struct{}),
		userRoles:   make(map[int64]map[int64]struct{}),
		nextPermID:  1,
		nextRoleID:  1,
	}
}

func (m *mockStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *mockStore) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	if _, ok := m.permsByName[p.Name]; ok {
		return Permission{}, shared.ErrDuplicate
	}
	p.ID = m.nextPermID
	m.nextPermID++
	m.perms[p.ID] = p
	m.permsByName[p.Name] = p.ID
	return p, nil
}

func (m *mockStore) PermissionByName(ctx context.Context, name string) (Permission, error) {
	id, ok := m.permsByName[name]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return m.perms[id], nil
}

func (m *mockStore) PermissionByID(ctx context.Context, id int64) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) CreateRole(ctx context.Context, role Role) (Role, error) {
	if _, ok := m.rolesByName[role.Name]; ok {
		return Role{}, shared.ErrDuplicate
	}
	role.ID = m.nextRoleID
	m.nextRoleID++
	m.roles[role.ID] = role
	m.rolesByName[role.Name] = role.ID
	return role, nil
}

func (m *mockStore) RoleByID(ctx context.Context, id int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockStore) RoleByName(ctx context.Context, name string) (Role, error) {
	id, ok := m.rolesByName[name]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return m.roles[id], nil
}

func (m *mockStore) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (m *mockStore) CountRoles(ctx context.Context) (int64, error) {
	if m.countRolesErr != nil {
		return 0, m.countRolesErr
	}
	return int64(len(m.roles)), nil
}

func (m *mockStore) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	set, ok := m.rolePerms[roleID]
	if !ok {
		set = make(map[int64]struct{})
		m.rolePerms[roleID] = set
	}
	set[permissionID] = struct{}{}
	return nil
}

func (m *mockStore) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	delete(m.rolePerms[roleID], permissionID)
	return nil
}

func (m *mockStore) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var out []Permission
	for id := range m.rolePerms[roleID] {
		out = append(out, m.perms[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) AssignRole(ctx context.Context, userID, roleID int64) error {
	set, ok := m.userRoles[userID]
	if !ok {
		set = make(map[int64]struct{})
		m.userRoles[userID] = set
	}
	set[roleID] = struct{}{}
	return nil
}

func (m *mockStore) UnassignRole(ctx context.Context, userID, roleID int64) error {
	delete(m.userRoles[userID], roleID)
	return nil
}

func (m *mockStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	_, missing := m.unknownUsers[userID]
	return !missing, nil
}

func (m *mockStore) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	var out []Role
	for id := range m.userRoles[userID] {
		out = append(out, m.roles[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (m *mockStore) UserPermissionNames(ctx context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	for roleID := range m.userRoles[userID] {
		for permID := range m.rolePerms[roleID] {
			seen[m.perms[permID].Name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// mockDirectory implements UserDirectory for seeder tests.
type mockDirectory struct {
	accounts []SeedAccount
	nextID   int64
}

func (d *mockDirectory) CreateAccount(ctx context.Context, account SeedAccount) (int64, error) {
	d.accounts = append(d.accounts, account)
	d.nextID++
	return d.nextID, nil
}
