package users

import "time"

// User is a staff account. Credentials live on the same row; the password
// hash never leaves the package boundary in API responses.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput carries validated fields for account creation.
type CreateUserInput struct {
	Username string
	Email    string
	FullName string
	Phone    string
	Password string
}

// UpdateUserInput carries partial updates. Nil fields are left unchanged.
type UpdateUserInput struct {
	Email    *string
	FullName *string
	Phone    *string
	Password *string
	IsActive *bool
}
