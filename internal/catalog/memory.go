package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/mycrm-app/mycrm/internal/shared"
)

// Memory is an in-memory Catalog implementation used by tests and by tooling
// that runs without a database.
type Memory struct {
	mu     sync.RWMutex
	perms  []Permission
	nextID int64
}

// NewMemory seeds an in-memory catalog with the given permissions.
func NewMemory(perms ...Permission) *Memory {
	m := &Memory{nextID: 1}
	for _, p := range perms {
		_, _, _ = m.Ensure(context.Background(), p.Area, p.Codename, p.Name)
	}
	return m
}

// All returns every permission ordered by area then codename.
func (m *Memory) All(ctx context.Context) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Permission(nil), m.perms...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area != out[j].Area {
			return out[i].Area < out[j].Area
		}
		return out[i].Codename < out[j].Codename
	})
	return out, nil
}

// ByArea returns the permissions belonging to one resource area.
func (m *Memory) ByArea(ctx context.Context, area string) ([]Permission, error) {
	all, _ := m.All(ctx)
	var out []Permission
	for _, p := range all {
		if p.Area == area {
			out = append(out, p)
		}
	}
	return out, nil
}

// Find resolves one permission by area and codename.
func (m *Memory) Find(ctx context.Context, area, codename string) (Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.perms {
		if p.Area == area && p.Codename == codename {
			return p, nil
		}
	}
	return Permission{}, shared.ErrNotFound
}

// Ensure inserts the permission when missing.
func (m *Memory) Ensure(ctx context.Context, area, codename, name string) (Permission, bool, error) {
	if p, err := m.Find(ctx, area, codename); err == nil {
		return p, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Permission{ID: m.nextID, Area: area, Codename: codename, Name: name}
	m.nextID++
	m.perms = append(m.perms, p)
	return p, true, nil
}

var (
	_ Catalog     = (*Memory)(nil)
	_ EnsureStore = (*Memory)(nil)
)
