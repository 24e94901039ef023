package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycrm-app/mycrm/internal/shared"
)

const userColumns = `id, email, name, is_superuser, is_active, company_id, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of users, optionally narrowed to one company.
func (r *Repository) ListUsers(ctx context.Context, companyID *int64, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE ($1::BIGINT IS NULL OR company_id = $1) ORDER BY id LIMIT $2 OFFSET $3`,
		companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.IsSuperuser, &user.IsActive, &user.CompanyID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers counts users, optionally narrowed to one company.
func (r *Repository) CountUsers(ctx context.Context, companyID *int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE ($1::BIGINT IS NULL OR company_id = $1)`, companyID).Scan(&total)
	return total, err
}

// UserByID fetches one user, returning shared.ErrNotFound when absent.
func (r *Repository) UserByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.IsSuperuser, &user.IsActive, &user.CompanyID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// UserPermissions returns the qualified permissions granted to the user
// directly, outside any role.
func (r *Repository) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.area || '.' || p.codename
		 FROM user_permissions up JOIN permissions p ON p.id = up.permission_id
		 WHERE up.user_id = $1 ORDER BY p.area, p.codename`, userID)
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
