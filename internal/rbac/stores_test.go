package rbac

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory RoleStore + AssignmentStore with the same
// semantics as the PostgreSQL repository, including the uniqueness of the
// (user, company, role) triple across active and revoked records.
type memStore struct {
	mu           sync.Mutex
	roles        []Role
	nextRoleID   int64
	assignments  []Assignment
	nextAssignID int64
}

func newMemStore() *memStore {
	return &memStore{nextRoleID: 1, nextAssignID: 1}
}

func (s *memStore) GetOrCreateRole(ctx context.Context, role Role) (Role, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Type == role.Type {
			return existing, false, nil
		}
	}
	role.ID = s.nextRoleID
	s.nextRoleID++
	role.IsActive = true
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	s.roles = append(s.roles, role)
	return role, true, nil
}

func (s *memStore) RoleByType(ctx context.Context, t RoleType) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if role.Type == t {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (s *memStore) RoleByID(ctx context.Context, id int64) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, role := range s.roles {
		if role.ID == id {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (s *memStore) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Role(nil), s.roles...), nil
}

func (s *memStore) SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.roles {
		if s.roles[i].ID == roleID {
			s.roles[i].Permissions = append([]string(nil), permissions...)
			return nil
		}
	}
	return ErrRoleNotFound
}

func (s *memStore) GetOrCreateAssignment(ctx context.Context, a Assignment) (Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if existing.UserID == a.UserID && existing.CompanyID == a.CompanyID && existing.RoleID == a.RoleID {
			return existing, false, nil
		}
	}
	a.ID = s.nextAssignID
	s.nextAssignID++
	a.AssignedAt = time.Now()
	a.IsActive = true
	a.RoleType = s.roleType(a.RoleID)
	s.assignments = append(s.assignments, a)
	return a, true, nil
}

func (s *memStore) DeactivateAssignment(ctx context.Context, userID, companyID, roleID int64) (*Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		a := &s.assignments[i]
		if a.UserID == userID && a.CompanyID == companyID && a.RoleID == roleID && a.IsActive {
			a.IsActive = false
			out := *a
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListActive(ctx context.Context, userID int64, companyID *int64) ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Assignment
	for _, a := range s.assignments {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		if companyID != nil && a.CompanyID != *companyID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) ListActiveByRole(ctx context.Context, roleID int64, companyID *int64) ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Assignment
	for _, a := range s.assignments {
		if a.RoleID != roleID || !a.IsActive {
			continue
		}
		if companyID != nil && a.CompanyID != *companyID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) ListExpiringWithin(ctx context.Context, within time.Duration) ([]Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(within)
	var out []Assignment
	for _, a := range s.assignments {
		if !a.IsActive || a.ExpiresAt == nil {
			continue
		}
		if a.ExpiresAt.After(now) && a.ExpiresAt.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) roleType(roleID int64) RoleType {
	for _, role := range s.roles {
		if role.ID == roleID {
			return role.Type
		}
	}
	return ""
}

var (
	_ RoleStore       = (*memStore)(nil)
	_ AssignmentStore = (*memStore)(nil)
)
