package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mycrm-app/mycrm/internal/app"
	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/platform/db"
	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(pool)
	syncer := catalog.NewSyncer(catalogRepo, logger)
	rbacRepo := rbac.NewRepository(pool)
	registry := rbac.NewRegistry(rbacRepo, catalogRepo, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	expiryJob := jobs.NewExpiryNoticeJob(rbacRepo, pool, client, logger, metrics)
	resyncJob := jobs.NewCatalogResyncJob(syncer, registry, logger, metrics)

	expiryTask, err := jobs.NewExpiryNoticeTask(jobs.ExpiryNoticePayload{})
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRoleExpiryNotice, Handler: expiryJob.Handle},
			{Type: jobs.TaskCatalogResync, Handler: resyncJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpiryNoticeSpec, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CatalogResyncSpec, Task: jobs.NewCatalogResyncTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
