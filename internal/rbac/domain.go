package rbac

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleType is the machine-stable key identifying a role. The set is closed;
// exactly one role may exist per type.
type RoleType string

const (
	RoleSuperAdmin        RoleType = "super_admin"
	RoleCompanyAdmin      RoleType = "company_admin"
	RoleManager           RoleType = "manager"
	RoleProductionManager RoleType = "production_manager"
	RoleAccountant        RoleType = "accountant"
	RoleMarketer          RoleType = "marketer"
	RoleStoreKeeper       RoleType = "store_keeper"
	RoleViewer            RoleType = "viewer"
)

// RoleTypes enumerates every valid role type in catalog order.
func RoleTypes() []RoleType {
	return []RoleType{
		RoleSuperAdmin,
		RoleCompanyAdmin,
		RoleManager,
		RoleProductionManager,
		RoleAccountant,
		RoleMarketer,
		RoleStoreKeeper,
		RoleViewer,
	}
}

// Valid reports whether t is a member of the closed role type enumeration.
func (t RoleType) Valid() bool {
	switch t {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleManager, RoleProductionManager,
		RoleAccountant, RoleMarketer, RoleStoreKeeper, RoleViewer:
		return true
	}
	return false
}

var roleTitler = cases.Title(language.English)

// DisplayName renders the human-readable form of the role type.
func (t RoleType) DisplayName() string {
	return roleTitler.String(strings.ReplaceAll(string(t), "_", " "))
}

// Role represents a named bundle of permissions keyed by an immutable type.
type Role struct {
	ID          int64
	Name        string
	Type        RoleType
	Description string
	IsActive    bool
	// Permissions holds qualified "<area>.<codename>" tokens. Set semantics;
	// order is not significant.
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasCodename reports whether the role carries a permission whose trailing
// codename matches the given short codename, regardless of area.
func (r Role) HasCodename(codename string) bool {
	for _, perm := range r.Permissions {
		if ShortCodename(perm) == codename {
			return true
		}
	}
	return false
}

// Assignment binds a user to a role within one company. Records are never
// deleted; revocation flips IsActive so the grant history stays intact.
type Assignment struct {
	ID         int64
	UserID     int64
	CompanyID  int64
	RoleID     int64
	RoleType   RoleType
	AssignedBy *int64
	AssignedAt time.Time
	IsActive   bool
	ExpiresAt  *time.Time
}

// Expired reports whether the assignment has crossed its expiry instant.
// Expiry is computed, never stored: an expired assignment stays visible in
// history but no longer authorizes anything.
func (a Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// Actor describes the acting user presented to the authorization core. The
// company binding is an explicit, always-present field; nil means the user is
// not attached to any tenant.
type Actor struct {
	ID          int64
	IsSuperuser bool
	CompanyID   *int64
}

// ShortCodename returns the trailing segment of a possibly qualified
// permission token ("inventory.view_product" -> "view_product").
func ShortCodename(permission string) string {
	if idx := strings.LastIndex(permission, "."); idx >= 0 {
		return permission[idx+1:]
	}
	return permission
}
