package auth

import "time"

// User represents an authenticated user account. Role holds one of
// the enumerated role identifiers and is assigned at account
// creation; only an administrator may change it afterwards.
type User struct {
	ID           int64
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
