package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/mycrm-app/mycrm/testing"
)

func TestSyncCreatesPermissionsForDeclaredModels(t *testing.T) {
	mem := NewMemory()
	syncer := NewSyncer(mem, nil)

	created, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.Greater(t, created, 0)

	perm, err := mem.Find(context.Background(), "job_orders", "view_joborder")
	require.NoError(t, err)
	require.Equal(t, "job_orders.view_joborder", perm.Qualified())
	require.Equal(t, "Can view Joborder", perm.Name)
}

func TestSyncIsIdempotent(t *testing.T) {
	mem := NewMemory()
	syncer := NewSyncer(mem, nil)

	first, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	second, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.Zero(t, second)

	all, err := mem.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, first)
}

func TestSyncWidensAfterNewPermissionAppears(t *testing.T) {
	mem := NewMemory()
	syncer := NewSyncer(mem, nil)

	_, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	// A permission added out-of-band stays put on the next sync run.
	_, created, err := mem.Ensure(context.Background(), "inventory", "export_product", "Can export Product")
	require.NoError(t, err)
	require.True(t, created)

	again, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	require.Zero(t, again)

	perm, err := mem.Find(context.Background(), "inventory", "export_product")
	require.NoError(t, err)
	require.Equal(t, "inventory.export_product", perm.Qualified())
}
