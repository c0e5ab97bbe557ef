package medrecords

import "time"

// Record is a medical record. Confidential records are readable only by the
// authoring doctor and administrators.
type Record struct {
	ID             int64
	PatientID      int64
	DoctorID       int64
	AppointmentID  *int64
	VisitDate      time.Time
	Diagnosis      string
	Symptoms       string
	Treatment      string
	Prescriptions  string
	LabResults     string
	Notes          string
	IsConfidential bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateInput carries validated fields for record creation. The authoring
// doctor is stamped from the acting principal, never from the payload.
type CreateInput struct {
	PatientID      int64
	AppointmentID  *int64
	VisitDate      time.Time
	Diagnosis      string
	Symptoms       string
	Treatment      string
	Prescriptions  string
	LabResults     string
	Notes          string
	IsConfidential bool
}

// UpdateInput carries partial updates. Nil fields are left unchanged.
type UpdateInput struct {
	Diagnosis      *string
	Symptoms       *string
	Treatment      *string
	Prescriptions  *string
	LabResults     *string
	Notes          *string
	IsConfidential *bool
}

// ListFilter narrows a record listing.
type ListFilter struct {
	PatientID *int64
	DoctorID  *int64
}
