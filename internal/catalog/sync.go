package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mycrm-app/mycrm/internal/shared"
)

// defaultActions are the codename prefixes derived for every declared model.
var defaultActions = []string{"add", "change", "delete", "view"}

// EnsureStore is the writable side of the catalog, used only by sync.
type EnsureStore interface {
	Ensure(ctx context.Context, area, codename, name string) (Permission, bool, error)
}

// Syncer materialises the declared permission areas into the catalog.
type Syncer struct {
	store  EnsureStore
	logger *slog.Logger
}

// NewSyncer constructs a Syncer.
func NewSyncer(store EnsureStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, logger: logger}
}

// Sync ensures a permission exists for every (model, action) pair declared in
// shared.PermissionAreas. Invoking it again after new models are declared
// widens the catalog; existing rows are left untouched. Returns the number of
// permissions created.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	titler := cases.Title(language.English)
	created := 0
	for _, area := range shared.PermissionAreas() {
		for _, model := range area.Models {
			for _, action := range defaultActions {
				codename := action + "_" + model
				name := fmt.Sprintf("Can %s %s", action, titler.String(model))
				_, wasCreated, err := s.store.Ensure(ctx, area.Area, codename, name)
				if err != nil {
					return created, fmt.Errorf("catalog: ensure %s.%s: %w", area.Area, codename, err)
				}
				if wasCreated {
					created++
				}
			}
		}
	}
	if created > 0 {
		s.logger.Info("permission catalog synced", slog.Int("created", created))
	}
	return created, nil
}
