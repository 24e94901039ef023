package rbac

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Ledger manages the assignment history: granting roles to users within a
// company and revoking them. Grants are append-or-reuse; revocations flip
// is_active and leave the record in place.
type Ledger struct {
	assignments AssignmentStore
	roles       RoleStore
	audit       *shared.AuditLogger
	cache       *PermissionCache
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewLedger constructs a Ledger. audit, cache and metrics may be nil.
func NewLedger(assignments AssignmentStore, roles RoleStore, audit *shared.AuditLogger, cache *PermissionCache, metrics *observability.Metrics, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{assignments: assignments, roles: roles, audit: audit, cache: cache, metrics: metrics, logger: logger}
}

// AssignParams carries the optional attributes of a grant.
type AssignParams struct {
	AssignedBy *int64
	ExpiresAt  *time.Time
}

// Assign grants the role identified by role type to a user within a company.
// When a record for the (user, company, role) triple already exists it is
// returned as-is with created=false; a revoked record is not revived and an
// existing record's expiry is not rewritten. An unknown role type returns
// ErrRoleNotFound.
func (l *Ledger) Assign(ctx context.Context, userID, companyID int64, t RoleType, params AssignParams) (Assignment, bool, error) {
	if !t.Valid() {
		return Assignment{}, false, ErrRoleNotFound
	}
	role, err := l.roles.RoleByType(ctx, t)
	if err != nil {
		return Assignment{}, false, err
	}
	assignment, created, err := l.assignments.GetOrCreateAssignment(ctx, Assignment{
		UserID:     userID,
		CompanyID:  companyID,
		RoleID:     role.ID,
		AssignedBy: params.AssignedBy,
		ExpiresAt:  params.ExpiresAt,
	})
	if err != nil {
		return Assignment{}, false, err
	}
	assignment.RoleType = t
	if created {
		l.cache.Invalidate(ctx, userID)
		l.metrics.RoleChange("assign")
		l.record(ctx, "rbac.assign", assignment, params.AssignedBy)
	}
	return assignment, created, nil
}

// Revoke deactivates the user's assignment of the given role type within a
// company. Absent or already-revoked assignments return (nil, nil), as does an
// unknown role type: revocation of what was never granted is a no-op.
func (l *Ledger) Revoke(ctx context.Context, userID, companyID int64, t RoleType, revokedBy *int64) (*Assignment, error) {
	if !t.Valid() {
		return nil, nil
	}
	role, err := l.roles.RoleByType(ctx, t)
	if err != nil {
		return nil, err
	}
	assignment, err := l.assignments.DeactivateAssignment(ctx, userID, companyID, role.ID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, nil
	}
	l.cache.Invalidate(ctx, userID)
	l.metrics.RoleChange("revoke")
	l.record(ctx, "rbac.revoke", *assignment, revokedBy)
	return assignment, nil
}

// ListActive returns the user's nominally active assignments, optionally
// narrowed to one company. Expired records are included; callers deciding
// access must consult the evaluator instead.
func (l *Ledger) ListActive(ctx context.Context, userID int64, companyID *int64) ([]Assignment, error) {
	return l.assignments.ListActive(ctx, userID, companyID)
}

// UsersWithRole returns the active assignments of one role type, optionally
// narrowed to one company. An unknown role type returns ErrRoleNotFound.
func (l *Ledger) UsersWithRole(ctx context.Context, t RoleType, companyID *int64) ([]Assignment, error) {
	if !t.Valid() {
		return nil, ErrRoleNotFound
	}
	role, err := l.roles.RoleByType(ctx, t)
	if err != nil {
		return nil, err
	}
	return l.assignments.ListActiveByRole(ctx, role.ID, companyID)
}

func (l *Ledger) record(ctx context.Context, action string, a Assignment, actorID *int64) {
	if l.audit == nil {
		return
	}
	meta := map[string]any{
		"user_id":    a.UserID,
		"company_id": a.CompanyID,
		"role_type":  string(a.RoleType),
	}
	if a.ExpiresAt != nil {
		meta["expires_at"] = a.ExpiresAt.Format(time.RFC3339)
	}
	err := l.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_role",
		EntityID: strconv.FormatInt(a.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		l.logger.Warn("record role audit entry",
			slog.String("action", action),
			slog.Int64("assignment_id", a.ID),
			slog.Any("error", err))
	}
}
