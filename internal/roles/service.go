package roles

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Service fronts the authorization core for the management API.
type Service struct {
	registry *rbac.Registry
	ledger   *rbac.Ledger
	eval     *rbac.Evaluator
	audit    *shared.AuditLogger
}

// NewService builds Service instance. audit may be nil; History then reports
// an empty trail.
func NewService(registry *rbac.Registry, ledger *rbac.Ledger, eval *rbac.Evaluator, audit *shared.AuditLogger) *Service {
	return &Service{registry: registry, ledger: ledger, eval: eval, audit: audit}
}

// History returns the newest role grant and revocation audit entries.
func (s *Service) History(ctx context.Context, limit int) ([]shared.AuditLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.Recent(ctx, "user_role", limit)
}

// ListRoles returns every role with its permission set.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return s.registry.ListRoles(ctx)
}

// Assign grants a role to a user within a company.
func (s *Service) Assign(ctx context.Context, userID, companyID int64, t rbac.RoleType, assignedBy *int64, expiresAt *time.Time) (rbac.Assignment, bool, error) {
	return s.ledger.Assign(ctx, userID, companyID, t, rbac.AssignParams{AssignedBy: assignedBy, ExpiresAt: expiresAt})
}

// Revoke deactivates a user's role within a company.
func (s *Service) Revoke(ctx context.Context, userID, companyID int64, t rbac.RoleType, revokedBy *int64) (*rbac.Assignment, error) {
	return s.ledger.Revoke(ctx, userID, companyID, t, revokedBy)
}

// UsersWithRole returns the active assignments of one role type.
func (s *Service) UsersWithRole(ctx context.Context, t rbac.RoleType, companyID *int64) ([]rbac.Assignment, error) {
	return s.ledger.UsersWithRole(ctx, t, companyID)
}

// MyAccess bundles what an actor can see about their own authorization state.
type MyAccess struct {
	Permissions []string
	Assignments []rbac.Assignment
	MaxRank     int
}

// MyAccess resolves the actor's effective permissions, active assignments and
// hierarchy rank in one shot.
func (s *Service) MyAccess(ctx context.Context, actor rbac.Actor, companyID *int64) (MyAccess, error) {
	var access MyAccess
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		perms, err := s.eval.AllPermissions(ctx, actor, companyID)
		if err != nil {
			return err
		}
		access.Permissions = perms
		return nil
	})
	g.Go(func() error {
		assignments, err := s.ledger.ListActive(ctx, actor.ID, companyID)
		if err != nil {
			return err
		}
		access.Assignments = assignments
		return nil
	})
	g.Go(func() error {
		rank, err := s.eval.MaxRank(ctx, actor, companyID)
		if err != nil {
			return err
		}
		access.MaxRank = rank
		return nil
	})
	if err := g.Wait(); err != nil {
		return MyAccess{}, err
	}
	return access, nil
}

// RoleSummary is one row of the roles overview.
type RoleSummary struct {
	Type            rbac.RoleType
	Name            string
	Rank            int
	PermissionCount int
	ActiveHolders   int
}

// Overview assembles a per-role summary, fanning the holder lookups out
// concurrently.
func (s *Service) Overview(ctx context.Context, companyID *int64) ([]RoleSummary, error) {
	roles, err := s.registry.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]RoleSummary, len(roles))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			holders, err := s.ledger.UsersWithRole(ctx, role.Type, companyID)
			if err != nil {
				return err
			}
			rank, err := rbac.Rank(role.Type)
			if err != nil {
				return err
			}
			mu.Lock()
			summaries[i] = RoleSummary{
				Type:            role.Type,
				Name:            role.Name,
				Rank:            rank,
				PermissionCount: len(role.Permissions),
				ActiveHolders:   len(holders),
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
