package rbac

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/shared"
)

type stubAmbient map[int64][]string

func (s stubAmbient) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return s[userID], nil
}

type evalFixture struct {
	store  *memStore
	cat    *catalog.Memory
	ledger *Ledger
	eval   *Evaluator
}

func newEvalFixture(t *testing.T, ambient AmbientPermissions, cache *PermissionCache) *evalFixture {
	t.Helper()
	store := newMemStore()
	cat := seededCatalog(t)
	registry := NewRegistry(store, cat, slog.Default())
	_, err := registry.CreateOrGetDefaultRoles(context.Background())
	require.NoError(t, err)
	return &evalFixture{
		store:  store,
		cat:    cat,
		ledger: NewLedger(store, store, nil, cache, nil, slog.Default()),
		eval:   NewEvaluator(store, store, cat, ambient, cache),
	}
}

func TestSuperuserBypassesEverything(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	root := Actor{ID: 1, IsSuperuser: true}

	allowed, err := fx.eval.IsAllowed(ctx, root, "invoices.delete_invoice", nil)
	require.NoError(t, err)
	assert.True(t, allowed)

	held, err := fx.eval.HasRole(ctx, root, RoleCompanyAdmin, nil)
	require.NoError(t, err)
	assert.True(t, held)

	perms, err := fx.eval.AllPermissions(ctx, root, nil)
	require.NoError(t, err)
	all, err := fx.cat.All(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(all), "superuser sees the whole catalog")
}

func TestGrantThenRevoke(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}
	company := int64(1)

	allowed, err := fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	assert.False(t, allowed, "no grant, no access")

	_, _, err = fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	allowed, err = fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = fx.ledger.Revoke(ctx, 7, 1, RoleManager, nil)
	require.NoError(t, err)

	allowed, err = fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	assert.False(t, allowed, "revocation takes effect immediately")
}

func TestExpiredAssignmentGrantsNothing(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}
	company := int64(1)

	expired := time.Now().Add(-time.Hour)
	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleAccountant, AssignParams{ExpiresAt: &expired})
	require.NoError(t, err)

	allowed, err := fx.eval.IsAllowed(ctx, user, shared.PermAddReceipt, &company)
	require.NoError(t, err)
	assert.False(t, allowed, "expired-on-arrival grant authorizes nothing")

	// The ledger still shows the assignment and HasRole still reports it:
	// expiry narrows the permission view, it does not rewrite history.
	held, err := fx.eval.HasRole(ctx, user, RoleAccountant, &company)
	require.NoError(t, err)
	assert.True(t, held)

	perms, err := fx.eval.AllPermissions(ctx, user, &company)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestShortCodenameMatching(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}
	company := int64(1)

	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleStoreKeeper, AssignParams{})
	require.NoError(t, err)

	// Role grants match on the trailing codename regardless of the area the
	// caller spells out.
	allowed, err := fx.eval.IsAllowed(ctx, user, "reports.view_product", &company)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAmbientPermissionsMatchExactly(t *testing.T) {
	ctx := context.Background()
	ambient := stubAmbient{7: {"reports.view_dashboard"}}
	fx := newEvalFixture(t, ambient, nil)
	user := Actor{ID: 7}
	company := int64(1)

	allowed, err := fx.eval.IsAllowed(ctx, user, "reports.view_dashboard", &company)
	require.NoError(t, err)
	assert.True(t, allowed)

	// Ambient grants are exact-match only; no codename fallback.
	allowed, err = fx.eval.IsAllowed(ctx, user, "other.view_dashboard", &company)
	require.NoError(t, err)
	assert.False(t, allowed)

	perms, err := fx.eval.AllPermissions(ctx, user, &company)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.view_dashboard"}, perms)
}

func TestTenantScopedEvaluation(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}

	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	companyOne, companyTwo := int64(1), int64(2)
	allowed, err := fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &companyOne)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &companyTwo)
	require.NoError(t, err)
	assert.False(t, allowed, "a grant in one company carries nothing into another")
}

func TestRankHierarchy(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}
	company := int64(1)

	rank, err := fx.eval.MaxRank(ctx, user, &company)
	require.NoError(t, err)
	assert.Equal(t, 0, rank, "no assignments ranks zero")

	_, _, err = fx.ledger.Assign(ctx, 7, 1, RoleAccountant, AssignParams{})
	require.NoError(t, err)
	_, _, err = fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	rank, err = fx.eval.MaxRank(ctx, user, &company)
	require.NoError(t, err)
	assert.Equal(t, 5, rank, "highest held role wins")

	ok, err := fx.eval.HasMinRank(ctx, user, RoleProductionManager, &company)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.eval.HasMinRank(ctx, user, RoleCompanyAdmin, &company)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fx.eval.HasMinRank(ctx, user, RoleType("director"), &company)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestViewerRanksZero(t *testing.T) {
	ctx := context.Background()
	fx := newEvalFixture(t, nil, nil)
	user := Actor{ID: 7}
	company := int64(1)

	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleViewer, AssignParams{})
	require.NoError(t, err)

	rank, err := fx.eval.MaxRank(ctx, user, &company)
	require.NoError(t, err)
	assert.Equal(t, 0, rank, "viewer sits outside the management hierarchy")
}

func TestPermissionCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewPermissionCache(client, time.Minute)

	fx := newEvalFixture(t, nil, cache)
	user := Actor{ID: 7}
	company := int64(1)

	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	allowed, err := fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	require.True(t, allowed)

	// The union is now cached; a revoke through the ledger must invalidate it
	// rather than letting the stale entry keep answering.
	_, err = fx.ledger.Revoke(ctx, 7, 1, RoleManager, nil)
	require.NoError(t, err)

	allowed, err = fx.eval.IsAllowed(ctx, user, shared.PermAddInvoice, &company)
	require.NoError(t, err)
	assert.False(t, allowed)
}
