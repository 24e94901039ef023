package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mycrm-app/mycrm/internal/app"
	"github.com/mycrm-app/mycrm/internal/auth"
	"github.com/mycrm-app/mycrm/internal/catalog"
	"github.com/mycrm-app/mycrm/internal/companies"
	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/platform/cache"
	"github.com/mycrm-app/mycrm/internal/platform/db"
	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/roles"
	"github.com/mycrm-app/mycrm/internal/shared"
	"github.com/mycrm-app/mycrm/internal/users"
	"github.com/mycrm-app/mycrm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "mycrm_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	// Authorization core: catalog first, then the default roles resolved
	// against it.
	catalogRepo := catalog.NewRepository(pool)
	if _, err := catalog.NewSyncer(catalogRepo, logger).Sync(ctx); err != nil {
		logger.Error("sync permission catalog", slog.Any("error", err))
		os.Exit(1)
	}
	rbacRepo := rbac.NewRepository(pool)
	registry := rbac.NewRegistry(rbacRepo, catalogRepo, logger)
	if _, err := registry.CreateOrGetDefaultRoles(ctx); err != nil {
		logger.Warn("provision default roles", slog.Any("error", err))
	}

	permCache := rbac.NewPermissionCache(redisClient, cfg.PermissionCacheTTL)
	ledger := rbac.NewLedger(rbacRepo, rbacRepo, auditLogger, permCache, metrics, logger)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)

	evaluator := rbac.NewEvaluator(rbacRepo, rbacRepo, catalogRepo, usersService, permCache)
	guard := rbac.NewGuard(usersService, evaluator, metrics, logger)

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	usersHandler := users.NewHandler(logger, usersService, guard)
	companiesService := companies.NewService(companies.NewRepository(pool))
	companiesHandler := companies.NewHandler(logger, companiesService, guard)
	rolesService := roles.NewService(registry, ledger, evaluator, auditLogger)
	rolesHandler := roles.NewHandler(logger, rolesService, guard)

	jobInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobInspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		UsersHandler:     usersHandler,
		CompaniesHandler: companiesHandler,
		RolesHandler:     rolesHandler,
		JobHandler:       jobs.NewHandler(jobInspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
