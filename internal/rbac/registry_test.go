package rbac

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/shared"
)

func seededCatalog(t *testing.T) *catalog.Memory {
	t.Helper()
	mem := catalog.NewMemory()
	_, err := catalog.NewSyncer(mem, slog.Default()).Sync(context.Background())
	require.NoError(t, err)
	return mem
}

func TestCreateOrGetDefaultRolesProvisionsCatalog(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cat := seededCatalog(t)
	registry := NewRegistry(store, cat, slog.Default())

	roles, err := registry.CreateOrGetDefaultRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(RoleTypes()))

	byType := make(map[RoleType]Role, len(roles))
	for _, role := range roles {
		byType[role.Type] = role
	}

	all, err := cat.All(ctx)
	require.NoError(t, err)
	assert.Len(t, byType[RoleSuperAdmin].Permissions, len(all),
		"super admin carries the whole catalog")

	admin := byType[RoleCompanyAdmin]
	assert.Contains(t, admin.Permissions, shared.PermAddProduct)
	assert.Contains(t, admin.Permissions, "invoices.delete_invoice")
	assert.Contains(t, admin.Permissions, shared.PermViewUser)
	assert.NotContains(t, admin.Permissions, "accounts.delete_user",
		"user management is explicit, not wildcarded")

	manager := byType[RoleManager]
	assert.Contains(t, manager.Permissions, shared.PermAddInvoice)
	assert.NotContains(t, manager.Permissions, "invoices.delete_invoice")

	viewer := byType[RoleViewer]
	require.NotEmpty(t, viewer.Permissions)
	for _, perm := range viewer.Permissions {
		assert.True(t, strings.HasPrefix(ShortCodename(perm), "view_"),
			"viewer holds only view permissions, got %s", perm)
	}
	assert.Contains(t, viewer.Permissions, shared.PermViewInvoice)
	assert.NotContains(t, viewer.Permissions, shared.PermViewUser,
		"viewer sees documents, not account records")
}

func TestCreateOrGetDefaultRolesIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	registry := NewRegistry(store, seededCatalog(t), slog.Default())

	first, err := registry.CreateOrGetDefaultRoles(ctx)
	require.NoError(t, err)
	second, err := registry.CreateOrGetDefaultRoles(ctx)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	ids := make(map[RoleType]int64)
	for _, role := range first {
		ids[role.Type] = role.ID
	}
	for _, role := range second {
		assert.Equal(t, ids[role.Type], role.ID, "existing role %s reused", role.Type)
	}
}

func TestCreateOrGetDefaultRolesEmptyCatalog(t *testing.T) {
	// Provisioning against an empty catalog still creates every role; the
	// unresolvable tokens are skipped with a warning, not treated as errors.
	ctx := context.Background()
	store := newMemStore()
	registry := NewRegistry(store, catalog.NewMemory(), slog.Default())

	roles, err := registry.CreateOrGetDefaultRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(RoleTypes()))
	for _, role := range roles {
		assert.Empty(t, role.Permissions)
	}
}

func TestRefreshRolePermissionsWidens(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cat := seededCatalog(t)
	registry := NewRegistry(store, cat, slog.Default())

	_, err := registry.CreateOrGetDefaultRoles(ctx)
	require.NoError(t, err)

	before, err := registry.RoleByType(ctx, RoleCompanyAdmin)
	require.NoError(t, err)
	assert.NotContains(t, before.Permissions, "inventory.export_product")

	_, _, err = cat.Ensure(ctx, shared.AreaInventory, "export_product", "Can export Product")
	require.NoError(t, err)

	require.NoError(t, registry.RefreshRolePermissions(ctx, RoleCompanyAdmin))
	after, err := registry.RoleByType(ctx, RoleCompanyAdmin)
	require.NoError(t, err)
	assert.Contains(t, after.Permissions, "inventory.export_product",
		"area wildcard picks up catalog additions on refresh")
}

func TestRoleByTypeUnknown(t *testing.T) {
	registry := NewRegistry(newMemStore(), catalog.NewMemory(), slog.Default())
	_, err := registry.RoleByType(context.Background(), RoleType("director"))
	assert.ErrorIs(t, err, ErrRoleNotFound)
}
