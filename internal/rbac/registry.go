package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Registry provisions and serves roles. Role permission tokens are resolved
// against the injected catalog at provisioning time; wildcard tokens snapshot
// the catalog as it exists then, so widening the catalog requires a refresh.
type Registry struct {
	roles   RoleStore
	catalog catalog.Catalog
	logger  *slog.Logger
}

// NewRegistry constructs a Registry.
func NewRegistry(roles RoleStore, cat catalog.Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{roles: roles, catalog: cat, logger: logger}
}

// CreateOrGetDefaultRoles idempotently ensures the bootstrap role catalog
// exists. Each role is an independent unit of work: a failure on one role is
// logged and does not abort the rest. Roles that already exist (matched by
// role_type) are returned untouched. Safe under concurrent invocation.
func (g *Registry) CreateOrGetDefaultRoles(ctx context.Context) ([]Role, error) {
	var provisioned []Role
	var errs []error
	for _, def := range defaultRoles() {
		role, err := g.ensureRole(ctx, def)
		if err != nil {
			g.logger.Error("provision default role",
				slog.String("role_type", string(def.Type)),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("role %s: %w", def.Type, err))
			continue
		}
		provisioned = append(provisioned, role)
	}
	return provisioned, errors.Join(errs...)
}

func (g *Registry) ensureRole(ctx context.Context, def defaultRole) (Role, error) {
	role, created, err := g.roles.GetOrCreateRole(ctx, Role{
		Name:        def.Name,
		Type:        def.Type,
		Description: def.Description,
	})
	if err != nil {
		return Role{}, err
	}
	if !created {
		return role, nil
	}
	perms, err := g.resolveTokens(ctx, def)
	if err != nil {
		return Role{}, err
	}
	if err := g.roles.SetRolePermissions(ctx, role.ID, perms); err != nil {
		return Role{}, err
	}
	role.Permissions = perms
	return role, nil
}

// RefreshRolePermissions re-resolves the default token list of one role
// against the current catalog and rewrites its permission set. This is how a
// wildcard role picks up permissions added to the catalog after it was first
// provisioned.
func (g *Registry) RefreshRolePermissions(ctx context.Context, t RoleType) error {
	if !t.Valid() {
		return ErrRoleNotFound
	}
	role, err := g.roles.RoleByType(ctx, t)
	if err != nil {
		return err
	}
	for _, def := range defaultRoles() {
		if def.Type != t {
			continue
		}
		perms, err := g.resolveTokens(ctx, def)
		if err != nil {
			return err
		}
		return g.roles.SetRolePermissions(ctx, role.ID, perms)
	}
	return nil
}

// ListRoles returns all roles with their permission sets.
func (g *Registry) ListRoles(ctx context.Context) ([]Role, error) {
	return g.roles.ListRoles(ctx)
}

// RoleByType fetches a single role by its type.
func (g *Registry) RoleByType(ctx context.Context, t RoleType) (Role, error) {
	if !t.Valid() {
		return Role{}, ErrRoleNotFound
	}
	return g.roles.RoleByType(ctx, t)
}

func (g *Registry) resolveTokens(ctx context.Context, def defaultRole) ([]string, error) {
	if len(def.ViewerModels) > 0 {
		return g.viewPermissions(ctx, def.ViewerModels)
	}
	var resolved []string
	seen := make(map[string]struct{})
	add := func(perm string) {
		if _, ok := seen[perm]; ok {
			return
		}
		seen[perm] = struct{}{}
		resolved = append(resolved, perm)
	}
	for _, token := range def.Tokens {
		switch {
		case token == "*":
			all, err := g.catalog.All(ctx)
			if err != nil {
				return nil, err
			}
			for _, p := range all {
				add(p.Qualified())
			}
		case strings.HasSuffix(token, ".*"):
			area := strings.TrimSuffix(token, ".*")
			perms, err := g.catalog.ByArea(ctx, area)
			if err != nil {
				return nil, err
			}
			for _, p := range perms {
				add(p.Qualified())
			}
		default:
			area, codename, ok := strings.Cut(token, ".")
			if !ok {
				g.logger.Warn("skipping malformed permission token", slog.String("token", token))
				continue
			}
			perm, err := g.catalog.Find(ctx, area, codename)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					g.logger.Warn("skipping unresolved permission token", slog.String("token", token))
					continue
				}
				return nil, err
			}
			add(perm.Qualified())
		}
	}
	return resolved, nil
}

// viewPermissions assembles whatever view_<model> permissions the catalog
// currently exposes for the given models, across all areas.
func (g *Registry) viewPermissions(ctx context.Context, models []string) ([]string, error) {
	all, err := g.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(models))
	for _, model := range models {
		wanted["view_"+model] = struct{}{}
	}
	var resolved []string
	for _, p := range all {
		if _, ok := wanted[p.Codename]; ok {
			resolved = append(resolved, p.Qualified())
		}
	}
	return resolved, nil
}
