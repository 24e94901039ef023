package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycrm-app/mycrm/internal/shared"
)

const companyColumns = `id, name, email, phone, address, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCompanies returns all companies ordered by name.
func (r *Repository) ListCompanies(ctx context.Context) ([]CompanyProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var companies []CompanyProfile
	for rows.Next() {
		var company CompanyProfile
		if err := rows.Scan(&company.ID, &company.Name, &company.Email, &company.Phone, &company.Address, &company.IsActive, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

// CompanyByID fetches one company, returning shared.ErrNotFound when absent.
func (r *Repository) CompanyByID(ctx context.Context, id int64) (CompanyProfile, error) {
	var company CompanyProfile
	err := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id).
		Scan(&company.ID, &company.Name, &company.Email, &company.Phone, &company.Address, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanyProfile{}, shared.ErrNotFound
		}
		return CompanyProfile{}, err
	}
	return company, nil
}
