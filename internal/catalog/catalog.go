// Package catalog provides the permission catalog the authorization core
// resolves role permission tokens against. The catalog is read-only from the
// core's point of view; only the sync process writes to it.
package catalog

import "context"

// Catalog is the read-only permission lookup injected into the RBAC core.
type Catalog interface {
	// All returns every permission ordered by area then codename.
	All(ctx context.Context) ([]Permission, error)
	// ByArea returns the permissions belonging to one resource area.
	ByArea(ctx context.Context, area string) ([]Permission, error)
	// Find resolves one permission, returning shared.ErrNotFound when absent.
	Find(ctx context.Context, area, codename string) (Permission, error)
}
