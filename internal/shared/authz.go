package shared

// Permission catalog. Names follow the "<resource>.<action>" convention and
// match what the seeder installs.
const (
	PermUsersCreate = "users.create"
	PermUsersRead   = "users.read"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermPatientsCreate = "patients.create"
	PermPatientsRead   = "patients.read"
	PermPatientsUpdate = "patients.update"
	PermPatientsDelete = "patients.delete"

	PermAppointmentsCreate = "appointments.create"
	PermAppointmentsRead   = "appointments.read"
	PermAppointmentsUpdate = "appointments.update"
	PermAppointmentsDelete = "appointments.delete"

	PermMedicalRecordsCreate = "medical_records.create"
	PermMedicalRecordsRead   = "medical_records.read"
	PermMedicalRecordsUpdate = "medical_records.update"
	PermMedicalRecordsDelete = "medical_records.delete"

	PermDepartmentsCreate = "departments.create"
	PermDepartmentsRead   = "departments.read"
	PermDepartmentsUpdate = "departments.update"
	PermDepartmentsDelete = "departments.delete"

	PermRBACManage = "rbac.manage"
)

// Starter role names installed by the seeder.
const (
	RoleAdministrator  = "Administrator"
	RoleDoctor         = "Doctor"
	RoleNurse          = "Nurse"
	RoleRegistrar      = "Registrar"
	RoleDepartmentHead = "Department Head"
)
