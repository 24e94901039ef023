package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	CompanyID    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
