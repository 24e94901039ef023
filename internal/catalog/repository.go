package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycrm-app/mycrm/internal/shared"
)

// PGRepository implements Catalog backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// All returns every permission ordered by area then codename.
func (r *PGRepository) All(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, area, codename, name FROM permissions ORDER BY area, codename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// ByArea returns the permissions belonging to one resource area.
func (r *PGRepository) ByArea(ctx context.Context, area string) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, area, codename, name FROM permissions WHERE area = $1 ORDER BY codename`, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// Find resolves one permission by area and codename.
func (r *PGRepository) Find(ctx context.Context, area, codename string) (Permission, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `SELECT id, area, codename, name FROM permissions WHERE area = $1 AND codename = $2`, area, codename).
		Scan(&perm.ID, &perm.Area, &perm.Codename, &perm.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// Ensure inserts the permission when missing and reports whether a row was
// created. Safe under concurrent invocation.
func (r *PGRepository) Ensure(ctx context.Context, area, codename, name string) (Permission, bool, error) {
	var perm Permission
	err := r.pool.QueryRow(ctx, `INSERT INTO permissions (area, codename, name) VALUES ($1, $2, $3) ON CONFLICT (area, codename) DO NOTHING RETURNING id, area, codename, name`, area, codename, name).
		Scan(&perm.ID, &perm.Area, &perm.Codename, &perm.Name)
	if err == nil {
		return perm, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, false, err
	}
	perm, err = r.Find(ctx, area, codename)
	return perm, false, err
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Area, &perm.Codename, &perm.Name); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

var _ Catalog = (*PGRepository)(nil)
