package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// SeedAccount describes a default credentialed account installed on first run.
type SeedAccount struct {
	Username     string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
}

// UserDirectory creates user accounts on behalf of the seeder. Implemented by
// the users repository.
type UserDirectory interface {
	CreateAccount(ctx context.Context, account SeedAccount) (int64, error)
}

// Seeder populates the registry with the fixed permission catalog, the five
// starter roles and default credentialed accounts. The evaluator never
// assumes this catalog exists; it only relies on the graph invariants.
type Seeder struct {
	store  Store
	users  UserDirectory
	logger *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(store Store, users UserDirectory, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, users: users, logger: logger}
}

type seedPermission struct {
	name        string
	description string
	resource    string
	action      string
}

var permissionCatalog = []seedPermission{
	{shared.PermUsersCreate, "Create user accounts", "users", "create"},
	{shared.PermUsersRead, "View user accounts", "users", "read"},
	{shared.PermUsersUpdate, "Update user accounts", "users", "update"},
	{shared.PermUsersDelete, "Delete user accounts", "users", "delete"},

	{shared.PermPatientsCreate, "Register patients", "patients", "create"},
	{shared.PermPatientsRead, "View patients", "patients", "read"},
	{shared.PermPatientsUpdate, "Update patient details", "patients", "update"},
	{shared.PermPatientsDelete, "Delete patients", "patients", "delete"},

	{shared.PermAppointmentsCreate, "Schedule appointments", "appointments", "create"},
	{shared.PermAppointmentsRead, "View appointments", "appointments", "read"},
	{shared.PermAppointmentsUpdate, "Update appointments", "appointments", "update"},
	{shared.PermAppointmentsDelete, "Cancel appointments", "appointments", "delete"},

	{shared.PermMedicalRecordsCreate, "Create medical records", "medical_records", "create"},
	{shared.PermMedicalRecordsRead, "View medical records", "medical_records", "read"},
	{shared.PermMedicalRecordsUpdate, "Update medical records", "medical_records", "update"},
	{shared.PermMedicalRecordsDelete, "Delete medical records", "medical_records", "delete"},

	{shared.PermDepartmentsCreate, "Create departments", "departments", "create"},
	{shared.PermDepartmentsRead, "View departments", "departments", "read"},
	{shared.PermDepartmentsUpdate, "Update departments", "departments", "update"},
	{shared.PermDepartmentsDelete, "Delete departments", "departments", "delete"},

	{shared.PermRBACManage, "Manage roles and permissions", "rbac", "manage"},
}

type seedRole struct {
	name        string
	description string
	priority    int
	permissions []string // nil means every permission in the catalog
}

var roleCatalog = []seedRole{
	{shared.RoleAdministrator, "Full system access", 100, nil},
	{shared.RoleDoctor, "Attending physician", 70, []string{
		shared.PermPatientsRead,
		shared.PermPatientsUpdate,
		shared.PermAppointmentsRead,
		shared.PermAppointmentsUpdate,
		shared.PermMedicalRecordsCreate,
		shared.PermMedicalRecordsRead,
		shared.PermMedicalRecordsUpdate,
		shared.PermDepartmentsRead,
	}},
	{shared.RoleNurse, "Nursing staff", 50, []string{
		shared.PermPatientsRead,
		shared.PermPatientsUpdate,
		shared.PermAppointmentsRead,
		shared.PermAppointmentsUpdate,
		shared.PermMedicalRecordsRead,
		shared.PermDepartmentsRead,
	}},
	{shared.RoleRegistrar, "Front desk registration", 40, []string{
		shared.PermPatientsCreate,
		shared.PermPatientsRead,
		shared.PermPatientsUpdate,
		shared.PermAppointmentsCreate,
		shared.PermAppointmentsRead,
		shared.PermAppointmentsUpdate,
		shared.PermAppointmentsDelete,
		shared.PermDepartmentsRead,
	}},
	{shared.RoleDepartmentHead, "Head of a medical department", 80, []string{
		shared.PermPatientsRead,
		shared.PermPatientsUpdate,
		shared.PermAppointmentsRead,
		shared.PermAppointmentsCreate,
		shared.PermAppointmentsUpdate,
		shared.PermAppointmentsDelete,
		shared.PermMedicalRecordsCreate,
		shared.PermMedicalRecordsRead,
		shared.PermMedicalRecordsUpdate,
		shared.PermDepartmentsRead,
		shared.PermDepartmentsUpdate,
		shared.PermUsersRead,
	}},
}

type seedUser struct {
	username string
	email    string
	fullName string
	phone    string
	password string
	role     string
}

var defaultAccounts = []seedUser{
	{"admin", "admin@hospital.local", "System Administrator", "+380501234567", "admin123", shared.RoleAdministrator},
	{"doctor", "doctor@hospital.local", "Ivan Ivanov", "+380502345678", "doctor123", shared.RoleDoctor},
	{"nurse", "nurse@hospital.local", "Maria Petrova", "+380503456789", "nurse123", shared.RoleNurse},
	{"registrar", "registrar@hospital.local", "Olena Sydorenko", "+380504567890", "registrar123", shared.RoleRegistrar},
}

// EnsureInitialized installs the starter catalog on first run. Idempotent: if
// any role already exists it performs no action.
func (s *Seeder) EnsureInitialized(ctx context.Context) error {
	count, err := s.store.CountRoles(ctx)
	if err != nil {
		return fmt.Errorf("rbac: count roles: %w", err)
	}
	if count > 0 {
		return nil
	}

	roleIDs := make(map[string]int64, len(roleCatalog))
	err = s.store.WithTx(ctx, func(tx Store) error {
		permIDs := make(map[string]int64, len(permissionCatalog))
		for _, sp := range permissionCatalog {
			perm, err := tx.CreatePermission(ctx, Permission{
				Name:        sp.name,
				Description: sp.description,
				Resource:    sp.resource,
				Action:      sp.action,
			})
			if err != nil {
				return fmt.Errorf("rbac: seed permission %s: %w", sp.name, err)
			}
			permIDs[perm.Name] = perm.ID
		}

		for _, sr := range roleCatalog {
			role, err := tx.CreateRole(ctx, Role{
				Name:        sr.name,
				Description: sr.description,
				Priority:    sr.priority,
			})
			if err != nil {
				return fmt.Errorf("rbac: seed role %s: %w", sr.name, err)
			}
			roleIDs[role.Name] = role.ID

			names := sr.permissions
			if names == nil {
				names = make([]string, 0, len(permissionCatalog))
				for _, sp := range permissionCatalog {
					names = append(names, sp.name)
				}
			}
			for _, name := range names {
				if err := tx.GrantPermission(ctx, role.ID, permIDs[name]); err != nil {
					return fmt.Errorf("rbac: seed grant %s to %s: %w", name, sr.name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, su := range defaultAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("rbac: hash seed password: %w", err)
		}
		userID, err := s.users.CreateAccount(ctx, SeedAccount{
			Username:     su.username,
			Email:        su.email,
			FullName:     su.fullName,
			Phone:        su.phone,
			PasswordHash: string(hash),
		})
		if err != nil {
			return fmt.Errorf("rbac: seed account %s: %w", su.username, err)
		}
		if err := s.store.AssignRole(ctx, userID, roleIDs[su.role]); err != nil {
			return fmt.Errorf("rbac: seed role assignment %s: %w", su.username, err)
		}
		if s.logger != nil {
			s.logger.Info("seeded account", slog.String("username", su.username), slog.String("role", su.role))
		}
	}

	if s.logger != nil {
		s.logger.Info("rbac catalog installed",
			slog.Int("permissions", len(permissionCatalog)),
			slog.Int("roles", len(roleCatalog)),
		)
	}
	return nil
}
