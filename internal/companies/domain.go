package companies

import "time"

// CompanyProfile represents one tenant of the system.
type CompanyProfile struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
