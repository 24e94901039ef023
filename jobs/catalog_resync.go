package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/rbac"
)

// CatalogResyncJob re-derives the permission catalog from the declared
// resource areas and, when anything new appeared, refreshes the role
// permission sets so wildcard roles pick the additions up.
type CatalogResyncJob struct {
	Syncer   *catalog.Syncer
	Registry *rbac.Registry
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewCatalogResyncJob wires dependencies for the resync handler.
func NewCatalogResyncJob(syncer *catalog.Syncer, registry *rbac.Registry, logger *slog.Logger, metrics *observability.Metrics) *CatalogResyncJob {
	return &CatalogResyncJob{Syncer: syncer, Registry: registry, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCatalogResync tasks.
func (j *CatalogResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Syncer == nil || j.Registry == nil {
		return errors.New("catalog resync: handler not configured")
	}
	logger := j.logger()

	created, err := j.Syncer.Sync(ctx)
	if err != nil {
		j.Metrics.JobRun(TaskCatalogResync, "error")
		logger.Error("sync permission catalog", slog.Any("error", err))
		return err
	}
	if created == 0 {
		j.Metrics.JobRun(TaskCatalogResync, "ok")
		logger.Info("catalog already up to date")
		return nil
	}

	var errs []error
	for _, roleType := range rbac.RoleTypes() {
		if err := j.Registry.RefreshRolePermissions(ctx, roleType); err != nil {
			logger.Error("refresh role permissions",
				slog.String("role_type", string(roleType)),
				slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		j.Metrics.JobRun(TaskCatalogResync, "error")
		return errors.Join(errs...)
	}

	j.Metrics.JobRun(TaskCatalogResync, "ok")
	logger.Info("catalog resynced", slog.Int("created", created))
	return nil
}

func (j *CatalogResyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogResync))
	}
	return slog.Default().With(slog.String("job", TaskCatalogResync))
}
