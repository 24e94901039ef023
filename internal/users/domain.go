package users

import "time"

// User represents a user account. CompanyID is the tenant the user belongs
// to; nil for superusers and system accounts that float above tenants.
type User struct {
	ID          int64
	Email       string
	Name        string
	IsSuperuser bool
	IsActive    bool
	CompanyID   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
