package patients

import "time"

// Patient is a registered patient record.
type Patient struct {
	ID              int64
	FirstName       string
	LastName        string
	MiddleName      string
	BirthDate       time.Time
	Gender          string
	Phone           string
	Email           string
	Address         string
	InsuranceNumber string
	BloodType       string
	Allergies       string
	ChronicDiseases string
	EmergencyName   string
	EmergencyPhone  string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ListFilter narrows a patient listing.
type ListFilter struct {
	// Search matches against name, phone and email, case-insensitive.
	Search string
}
