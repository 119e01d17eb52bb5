package main

import (
	"context"
	"time"

	"github.com/tchtranslate/portal/internal/config"
	"github.com/tchtranslate/portal/internal/handlers"
	"github.com/tchtranslate/portal/internal/models"
	"github.com/tchtranslate/portal/internal/services"
	"github.com/tchtranslate/portal/internal/utils"
	"github.com/tchtranslate/portal/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg        *config.Config
	taskQueue  services.TaskQueue
	worker     *services.BlobWorker
	reconciler *services.CounterReconciler

	authService *services.AuthService

	authHandler      *handlers.AuthHandler
	projectHandler   *handlers.ProjectHandler
	documentHandler  *handlers.DocumentHandler
	tenantHandler    *handlers.TenantHandler
	userHandler      *handlers.UserHandler
	counterHandler   *handlers.CounterHandler
	systemLogHandler *handlers.SystemLogHandler
	functionsHandler *handlers.FunctionsHandler
	healthHandler    *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, storage,
// queue, schedulers and handlers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	loc, err := cfg.ProjectCode.Location()
	if err != nil {
		logger.Fatalf("Invalid project code timezone: %v", err)
	}

	if err := models.InitDB(&cfg.Database, cfg.Log.SQL); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}
	db := models.GetDB()

	services.InitSystemLogger(db)

	// Storage stays a nil interface when disabled so services can detect it.
	var blobs services.BlobStore
	if cfg.Storage.Enabled {
		store, err := services.NewMinioBlobStore(&cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to create storage client: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Failed to ensure storage bucket")
		}
		cancel()
		blobs = store
	} else {
		logger.Warn().Msg("[Storage] disabled, document uploads will be rejected")
	}

	cleaner := services.NewBlobCleaner(blobs)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(cleaner.Process)
	}

	var worker *services.BlobWorker
	if taskQueue.IsAsync() {
		worker = services.NewBlobWorker(&cfg.Redis, cleaner)
		if err := worker.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start worker")
			worker = nil
		}
	}

	codes, err := services.NewCodeAssigner(&cfg.ProjectCode)
	if err != nil {
		logger.Fatalf("Invalid project code strategy: %v", err)
	}

	counters := services.NewCounterService(db)
	reconciler := services.NewCounterReconciler(counters, cfg.Counter.ReconcileCron).
		WithLocker(services.NewJobLocker(db))
	if err := reconciler.Start(); err != nil {
		logger.Fatalf("Invalid counter reconcile schedule: %v", err)
	}

	tenants := services.NewTenantService(db, blobs)
	users := services.NewUserService(db, tenants)
	authService := services.NewAuthService(db, &cfg.JWT)
	projects := services.NewProjectService(db, codes, counters, tenants, taskQueue)
	queries := services.NewProjectQueryService(
		services.NewPredicateBuilder(loc),
		services.NewQueryExecutor(services.NewGormProjectStore(db)),
		users,
	)
	documents := services.NewDocumentService(db, blobs, projects, taskQueue, loc)

	if err := authService.CreateAdminIfNotExists(&cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:         cfg,
		taskQueue:   taskQueue,
		worker:      worker,
		reconciler:  reconciler,
		authService: authService,

		authHandler:      handlers.NewAuthHandler(authService, users),
		projectHandler:   handlers.NewProjectHandler(projects, queries),
		documentHandler:  handlers.NewDocumentHandler(documents),
		tenantHandler:    handlers.NewTenantHandler(tenants),
		userHandler:      handlers.NewUserHandler(users),
		counterHandler:   handlers.NewCounterHandler(counters),
		systemLogHandler: handlers.NewSystemLogHandler(services.NewSystemLogService(db)),
		functionsHandler: handlers.NewFunctionsHandler(queries, users, tenants, authService),
		healthHandler:    handlers.NewHealthHandler(db, taskQueue, blobs),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.reconciler.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
