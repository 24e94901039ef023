package users

import (
	"context"

	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, companyID *int64, limit, offset int) ([]User, error)
	CountUsers(ctx context.Context, companyID *int64) (int, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// Service handles user business logic. It doubles as the authorization
// core's actor source and its ambient permission source.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns one page of users, optionally narrowed to one company,
// together with pagination metadata.
func (s *Service) ListUsers(ctx context.Context, companyID *int64, page, perPage int) ([]User, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	total, err := s.repo.CountUsers(ctx, companyID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	users, err := s.repo.ListUsers(ctx, companyID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(page, perPage, total), nil
}

// GetUser returns one user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.UserByID(ctx, id)
}

// ActorByID resolves a user into the actor shape the authorization core
// consumes. Inactive users resolve like absent ones.
func (s *Service) ActorByID(ctx context.Context, userID int64) (rbac.Actor, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return rbac.Actor{}, err
	}
	if !user.IsActive {
		return rbac.Actor{}, shared.ErrNotFound
	}
	return rbac.Actor{ID: user.ID, IsSuperuser: user.IsSuperuser, CompanyID: user.CompanyID}, nil
}

// UserPermissions returns the user's direct permission grants.
func (s *Service) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserPermissions(ctx, userID)
}

var (
	_ rbac.ActorSource        = (*Service)(nil)
	_ rbac.AmbientPermissions = (*Service)(nil)
)
