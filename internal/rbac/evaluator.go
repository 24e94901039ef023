package rbac

import (
	"context"
	"sort"
	"time"

	"github.com/mycrm-app/mycrm/internal/catalog"
)

// AmbientPermissions reports permissions granted to a user directly, outside
// the role system. Implementations return qualified "<area>.<codename>"
// tokens.
type AmbientPermissions interface {
	UserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// Evaluator answers permission and role questions about an actor. Expiry is
// evaluated lazily against the clock at query time; nothing in the ledger is
// mutated by reads.
type Evaluator struct {
	assignments AssignmentStore
	roles       RoleStore
	catalog     catalog.Catalog
	ambient     AmbientPermissions
	cache       *PermissionCache
	now         func() time.Time
}

// NewEvaluator constructs an Evaluator. ambient and cache may be nil.
func NewEvaluator(assignments AssignmentStore, roles RoleStore, cat catalog.Catalog, ambient AmbientPermissions, cache *PermissionCache) *Evaluator {
	return &Evaluator{
		assignments: assignments,
		roles:       roles,
		catalog:     cat,
		ambient:     ambient,
		cache:       cache,
		now:         time.Now,
	}
}

// IsAllowed reports whether the actor holds the given qualified permission
// within the company scope. Superusers are allowed everything. Ambient grants
// match on the full qualified token; role grants match on the trailing
// codename, so any role carrying "view_product" satisfies a check for
// "inventory.view_product". Expired assignments grant nothing.
func (e *Evaluator) IsAllowed(ctx context.Context, actor Actor, permission string, companyID *int64) (bool, error) {
	if actor.IsSuperuser {
		return true, nil
	}
	ambient, err := e.ambientPermissions(ctx, actor.ID)
	if err != nil {
		return false, err
	}
	for _, perm := range ambient {
		if perm == permission {
			return true, nil
		}
	}
	union, err := e.rolePermissionUnion(ctx, actor.ID, companyID)
	if err != nil {
		return false, err
	}
	codename := ShortCodename(permission)
	for _, perm := range union {
		if ShortCodename(perm) == codename {
			return true, nil
		}
	}
	return false, nil
}

// HasRole reports whether the actor holds an active assignment of the given
// role type within the company scope. Superusers implicitly hold every role.
// Expiry is deliberately not consulted here; HasRole answers "was this role
// granted and not revoked", matching the ledger rather than the evaluator's
// permission view.
func (e *Evaluator) HasRole(ctx context.Context, actor Actor, t RoleType, companyID *int64) (bool, error) {
	if !t.Valid() {
		return false, ErrRoleNotFound
	}
	if actor.IsSuperuser {
		return true, nil
	}
	assignments, err := e.assignments.ListActive(ctx, actor.ID, companyID)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if a.RoleType == t {
			return true, nil
		}
	}
	return false, nil
}

// AllPermissions returns the actor's effective permission set within the
// company scope as sorted qualified tokens. Superusers receive the entire
// catalog; everyone else receives their ambient grants unioned with the
// permissions of their unexpired active roles.
func (e *Evaluator) AllPermissions(ctx context.Context, actor Actor, companyID *int64) ([]string, error) {
	if actor.IsSuperuser {
		all, err := e.catalog.All(ctx)
		if err != nil {
			return nil, err
		}
		perms := make([]string, 0, len(all))
		for _, p := range all {
			perms = append(perms, p.Qualified())
		}
		sort.Strings(perms)
		return perms, nil
	}
	ambient, err := e.ambientPermissions(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	union, err := e.rolePermissionUnion(ctx, actor.ID, companyID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ambient)+len(union))
	perms := make([]string, 0, len(ambient)+len(union))
	for _, set := range [][]string{ambient, union} {
		for _, perm := range set {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			perms = append(perms, perm)
		}
	}
	sort.Strings(perms)
	return perms, nil
}

// MaxRank returns the highest hierarchy rank among the actor's active
// assignments within the company scope. Superusers rank at the top of the
// hierarchy regardless of assignments. Like HasRole, expiry is not consulted.
func (e *Evaluator) MaxRank(ctx context.Context, actor Actor, companyID *int64) (int, error) {
	if actor.IsSuperuser {
		return roleRanks[RoleSuperAdmin], nil
	}
	assignments, err := e.assignments.ListActive(ctx, actor.ID, companyID)
	if err != nil {
		return 0, err
	}
	return maxRank(assignments), nil
}

// HasMinRank reports whether the actor's highest rank meets or exceeds the
// rank of the given role type. An unknown role type returns ErrRoleNotFound.
func (e *Evaluator) HasMinRank(ctx context.Context, actor Actor, t RoleType, companyID *int64) (bool, error) {
	required, err := Rank(t)
	if err != nil {
		return false, err
	}
	highest, err := e.MaxRank(ctx, actor, companyID)
	if err != nil {
		return false, err
	}
	return highest >= required, nil
}

func (e *Evaluator) ambientPermissions(ctx context.Context, userID int64) ([]string, error) {
	if e.ambient == nil {
		return nil, nil
	}
	return e.ambient.UserPermissions(ctx, userID)
}

// rolePermissionUnion assembles the qualified permissions of the actor's
// unexpired active assignments, served from cache when warm.
func (e *Evaluator) rolePermissionUnion(ctx context.Context, userID int64, companyID *int64) ([]string, error) {
	if perms, ok := e.cache.Get(ctx, userID, companyID); ok {
		return perms, nil
	}
	assignments, err := e.assignments.ListActive(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	seen := make(map[string]struct{})
	union := []string{}
	for _, a := range assignments {
		if a.Expired(now) {
			continue
		}
		role, err := e.roles.RoleByID(ctx, a.RoleID)
		if err != nil {
			return nil, err
		}
		for _, perm := range role.Permissions {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			union = append(union, perm)
		}
	}
	sort.Strings(union)
	e.cache.Put(ctx, userID, companyID, union)
	return union, nil
}
