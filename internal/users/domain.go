package users

import "time"

// User is the account record managed from the accounts area.
type User struct {
	ID        int64
	Username  string
	FullName  string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries the fields accepted when creating an account.
type CreateInput struct {
	Username string
	FullName string
	Email    string
	Password string
	Role     string
	IsActive bool
}

// UpdateInput carries the editable profile fields. Role changes go
// through ChangeRole so they stay restricted to administrators.
type UpdateInput struct {
	Username string
	FullName string
	Email    string
	IsActive bool
}
