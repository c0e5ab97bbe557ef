package departments

import "time"

// Department is a hospital unit. HeadDoctorID references a user account and
// may be zero when the post is vacant.
type Department struct {
	ID           int64
	Name         string
	Description  string
	Phone        string
	Floor        int
	Capacity     int
	HeadDoctorID *int64
	IsActive     bool
	CreatedAt    time.Time
}
