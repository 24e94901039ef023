package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycrm-app/mycrm/internal/platform/db"
)

const uniqueViolation = "23505"

// RoleStore persists roles and their permission sets.
type RoleStore interface {
	GetOrCreateRole(ctx context.Context, role Role) (Role, bool, error)
	RoleByType(ctx context.Context, t RoleType) (Role, error)
	RoleByID(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error
}

// AssignmentStore persists the assignment ledger. Implementations must make
// GetOrCreateAssignment atomic: two concurrent calls for the same
// (user, company, role) triple both succeed and exactly one observes created.
type AssignmentStore interface {
	GetOrCreateAssignment(ctx context.Context, a Assignment) (Assignment, bool, error)
	DeactivateAssignment(ctx context.Context, userID, companyID, roleID int64) (*Assignment, error)
	ListActive(ctx context.Context, userID int64, companyID *int64) ([]Assignment, error)
	ListActiveByRole(ctx context.Context, roleID int64, companyID *int64) ([]Assignment, error)
	ListExpiringWithin(ctx context.Context, within time.Duration) ([]Assignment, error)
}

// PGRepository implements RoleStore and AssignmentStore using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetOrCreateRole inserts the role when no role with its type exists yet.
// The existing row wins on conflict; permission sets of existing roles are
// never touched here.
func (r *PGRepository) GetOrCreateRole(ctx context.Context, role Role) (Role, bool, error) {
	var created Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, role_type, description, is_active) VALUES ($1, $2, $3, TRUE)
		 ON CONFLICT (role_type) DO NOTHING
		 RETURNING id, name, role_type, description, is_active, created_at, updated_at`,
		role.Name, string(role.Type), role.Description).
		Scan(&created.ID, &created.Name, &created.Type, &created.Description, &created.IsActive, &created.CreatedAt, &created.UpdatedAt)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Role{}, false, err
	}
	existing, err := r.RoleByType(ctx, role.Type)
	return existing, false, err
}

// RoleByType fetches a role and its permission set by role type.
func (r *PGRepository) RoleByType(ctx context.Context, t RoleType) (Role, error) {
	return r.fetchRole(ctx, `SELECT id, name, role_type, description, is_active, created_at, updated_at FROM roles WHERE role_type = $1`, string(t))
}

// RoleByID fetches a role and its permission set by ID.
func (r *PGRepository) RoleByID(ctx context.Context, id int64) (Role, error) {
	return r.fetchRole(ctx, `SELECT id, name, role_type, description, is_active, created_at, updated_at FROM roles WHERE id = $1`, id)
}

func (r *PGRepository) fetchRole(ctx context.Context, query string, arg any) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&role.ID, &role.Name, &role.Type, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	perms, err := r.rolePermissions(ctx, role.ID)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

// ListRoles returns all roles with permission sets, ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, role_type, description, is_active, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Type, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		perms, err := r.rolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}
	return roles, nil
}

// SetRolePermissions replaces the permission set of a role with the given
// qualified tokens. Tokens that do not resolve in the catalog are ignored.
func (r *PGRepository) SetRolePermissions(ctx context.Context, roleID int64, permissions []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id)
			 SELECT $1, p.id FROM permissions p WHERE p.area || '.' || p.codename = ANY($2)
			 ON CONFLICT DO NOTHING`,
			roleID, permissions)
		return err
	})
}

func (r *PGRepository) rolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.area || '.' || p.codename
		 FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = $1 ORDER BY p.area, p.codename`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

const assignmentColumns = `ur.id, ur.user_id, ur.company_id, ur.role_id, r.role_type, ur.assigned_by, ur.assigned_at, ur.is_active, ur.expires_at`

// GetOrCreateAssignment inserts the assignment, falling back to the existing
// record when the (user, company, role) triple is already present. The
// unique constraint makes the insert race-free: a concurrent writer hits
// SQLSTATE 23505 and re-reads the winner's row instead of failing.
func (r *PGRepository) GetOrCreateAssignment(ctx context.Context, a Assignment) (Assignment, bool, error) {
	var id int64
	var assignedAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_roles (user_id, company_id, role_id, assigned_by, assigned_at, is_active, expires_at)
		 VALUES ($1, $2, $3, $4, NOW(), TRUE, $5)
		 RETURNING id, assigned_at`,
		a.UserID, a.CompanyID, a.RoleID, a.AssignedBy, a.ExpiresAt).
		Scan(&id, &assignedAt)
	if err == nil {
		a.ID = id
		a.AssignedAt = assignedAt
		a.IsActive = true
		return a, true, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return Assignment{}, false, err
	}
	existing, err := r.findAssignment(ctx, a.UserID, a.CompanyID, a.RoleID)
	if err != nil {
		return Assignment{}, false, err
	}
	return existing, false, nil
}

func (r *PGRepository) findAssignment(ctx context.Context, userID, companyID, roleID int64) (Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+`
		 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1 AND ur.company_id = $2 AND ur.role_id = $3`,
		userID, companyID, roleID).
		Scan(&a.ID, &a.UserID, &a.CompanyID, &a.RoleID, &a.RoleType, &a.AssignedBy, &a.AssignedAt, &a.IsActive, &a.ExpiresAt)
	return a, err
}

// DeactivateAssignment flips is_active off on the matching active record.
// Returns nil without error when no active assignment matches.
func (r *PGRepository) DeactivateAssignment(ctx context.Context, userID, companyID, roleID int64) (*Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx,
		`UPDATE user_roles ur SET is_active = FALSE
		 FROM roles r
		 WHERE r.id = ur.role_id AND ur.user_id = $1 AND ur.company_id = $2 AND ur.role_id = $3 AND ur.is_active
		 RETURNING `+assignmentColumns,
		userID, companyID, roleID).
		Scan(&a.ID, &a.UserID, &a.CompanyID, &a.RoleID, &a.RoleType, &a.AssignedBy, &a.AssignedAt, &a.IsActive, &a.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListActive returns nominally active assignments for a user, optionally
// narrowed to one company. Expired-but-active records are included; the
// evaluator filters expiry.
func (r *PGRepository) ListActive(ctx context.Context, userID int64, companyID *int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1 AND ur.is_active AND ($2::BIGINT IS NULL OR ur.company_id = $2)
		 ORDER BY ur.assigned_at DESC`, userID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ListActiveByRole is the reverse lookup: active assignments of one role,
// optionally narrowed to one company.
func (r *PGRepository) ListActiveByRole(ctx context.Context, roleID int64, companyID *int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		 WHERE ur.role_id = $1 AND ur.is_active AND ($2::BIGINT IS NULL OR ur.company_id = $2)
		 ORDER BY ur.assigned_at DESC`, roleID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

// ListExpiringWithin returns active assignments whose expiry falls inside the
// upcoming window, used by the notification job.
func (r *PGRepository) ListExpiringWithin(ctx context.Context, within time.Duration) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		 WHERE ur.is_active AND ur.expires_at IS NOT NULL AND ur.expires_at BETWEEN NOW() AND NOW() + $1
		 ORDER BY ur.expires_at`, within)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func scanAssignments(rows pgx.Rows) ([]Assignment, error) {
	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.CompanyID, &a.RoleID, &a.RoleType, &a.AssignedBy, &a.AssignedAt, &a.IsActive, &a.ExpiresAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

var (
	_ RoleStore       = (*PGRepository)(nil)
	_ AssignmentStore = (*PGRepository)(nil)
)
