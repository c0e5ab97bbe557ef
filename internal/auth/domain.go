package auth

import "time"

// Account is the credentialed view of a user as the login flow needs it.
// The password hash is opaque to everything outside this package.
type Account struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}
