package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycrm-app/mycrm/internal/shared"
)

type stubActors map[int64]Actor

func (s stubActors) ActorByID(ctx context.Context, userID int64) (Actor, error) {
	actor, ok := s[userID]
	if !ok {
		return Actor{}, shared.ErrNotFound
	}
	return actor, nil
}

type guardFixture struct {
	*evalFixture
	guard *Guard
}

func newGuardFixture(t *testing.T, actors stubActors) *guardFixture {
	t.Helper()
	fx := newEvalFixture(t, nil, nil)
	return &guardFixture{
		evalFixture: fx,
		guard:       NewGuard(actors, fx.eval, nil, slog.Default()),
	}
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(t *testing.T, sawActor *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ActorFromContext(r.Context())
		assert.True(t, ok, "guarded handler sees the resolved actor")
		if sawActor != nil {
			*sawActor = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestGuardRequiresAuthentication(t *testing.T) {
	fx := newGuardFixture(t, stubActors{})
	handler := fx.guard.RequirePermission(shared.PermViewInvoice)(okHandler(t, nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no session at all")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "anonymous session")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("42"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "session user no longer exists")
}

func TestGuardRequirePermission(t *testing.T) {
	ctx := context.Background()
	company := int64(1)
	fx := newGuardFixture(t, stubActors{7: {ID: 7, CompanyID: &company}})
	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	saw := false
	allowed := fx.guard.RequirePermission(shared.PermAddInvoice)(okHandler(t, &saw))
	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, saw)

	denied := fx.guard.RequirePermission("invoices.delete_invoice")(okHandler(t, nil))
	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardSuperuserSkipsTenantResolution(t *testing.T) {
	// A superuser with no company binding passes a permission guard that
	// would refuse anyone else for lack of tenant scope.
	fx := newGuardFixture(t, stubActors{
		1: {ID: 1, IsSuperuser: true},
		7: {ID: 7},
	})

	handler := fx.guard.RequirePermission(shared.PermViewInvoice)(okHandler(t, nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusForbidden, rec.Code, "no company scope, no access")
}

func TestGuardExplicitCompanyScopeWins(t *testing.T) {
	ctx := context.Background()
	home := int64(1)
	fx := newGuardFixture(t, stubActors{7: {ID: 7, CompanyID: &home}})
	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	handler := fx.guard.RequirePermission(shared.PermAddInvoice)(okHandler(t, nil))

	// The request targets company 2 where the user holds nothing; the
	// actor's home company must not leak into the check.
	req := requestWithUser("7")
	req = req.WithContext(shared.ContextWithCompany(req.Context(), 2))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardRequireRole(t *testing.T) {
	ctx := context.Background()
	company := int64(1)
	fx := newGuardFixture(t, stubActors{7: {ID: 7, CompanyID: &company}})
	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleAccountant, AssignParams{})
	require.NoError(t, err)

	anyOf := fx.guard.RequireRole(RoleCompanyAdmin, RoleAccountant)(okHandler(t, nil))
	rec := httptest.NewRecorder()
	anyOf.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	adminOnly := fx.guard.RequireRole(RoleCompanyAdmin)(okHandler(t, nil))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardRequireMinRank(t *testing.T) {
	ctx := context.Background()
	company := int64(1)
	fx := newGuardFixture(t, stubActors{7: {ID: 7, CompanyID: &company}})
	_, _, err := fx.ledger.Assign(ctx, 7, 1, RoleManager, AssignParams{})
	require.NoError(t, err)

	atLeastAccountant := fx.guard.RequireMinRank(RoleAccountant)(okHandler(t, nil))
	rec := httptest.NewRecorder()
	atLeastAccountant.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	atLeastAdmin := fx.guard.RequireMinRank(RoleCompanyAdmin)(okHandler(t, nil))
	rec = httptest.NewRecorder()
	atLeastAdmin.ServeHTTP(rec, requestWithUser("7"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
