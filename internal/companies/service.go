package companies

import "context"

// RepositoryPort defines data access methods for companies.
type RepositoryPort interface {
	ListCompanies(ctx context.Context) ([]CompanyProfile, error)
	CompanyByID(ctx context.Context, id int64) (CompanyProfile, error)
}

// Service handles company business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListCompanies returns all companies.
func (s *Service) ListCompanies(ctx context.Context) ([]CompanyProfile, error) {
	return s.repo.ListCompanies(ctx)
}

// GetCompany returns one company by ID.
func (s *Service) GetCompany(ctx context.Context, id int64) (CompanyProfile, error) {
	return s.repo.CompanyByID(ctx, id)
}
