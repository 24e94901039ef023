package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrRoleNotFound indicates a role_type that does not resolve in the
	// registry. This is a caller bug, not an access denial.
	ErrRoleNotFound = errors.New("rbac: role not found")
	// ErrAuthenticationRequired indicates the request carries no
	// authenticated user.
	ErrAuthenticationRequired = errors.New("rbac: authentication required")
	// ErrCompanyContextRequired indicates a guarded operation needs a tenant
	// scope and none could be resolved.
	ErrCompanyContextRequired = errors.New("rbac: company context required")
)

// PermissionDeniedError reports a failed permission check, carrying the
// permission that was required.
type PermissionDeniedError struct {
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("rbac: permission %q denied", e.Permission)
}

// InsufficientRoleError reports a failed role or rank check.
type InsufficientRoleError struct {
	Role RoleType
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("rbac: role %q required", e.Role)
}
