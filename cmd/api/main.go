package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tork-crm/tork-api/docs"
	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/cache"
	"github.com/tork-crm/tork-api/internal/config"
	"github.com/tork-crm/tork-api/internal/database"
	"github.com/tork-crm/tork-api/internal/events"
	"github.com/tork-crm/tork-api/internal/helpdesk"
	"github.com/tork-crm/tork-api/internal/http/handler"
	"github.com/tork-crm/tork-api/internal/http/middleware"
	"github.com/tork-crm/tork-api/internal/http/router"
	"github.com/tork-crm/tork-api/internal/jobs"
	"github.com/tork-crm/tork-api/internal/logger"
	"github.com/tork-crm/tork-api/internal/notify"
	"github.com/tork-crm/tork-api/internal/repository"
	"github.com/tork-crm/tork-api/internal/service"
	"github.com/tork-crm/tork-api/internal/storage"
	"github.com/tork-crm/tork-api/internal/syncer"
	"go.uber.org/zap"
)

// @title Tork CRM API
// @version 1.0
// @description Lead ingestion, contact deduplication and sales pipeline for an insurance brokerage, integrated with the Chatwoot helpdesk

// @contact.name API Support
// @contact.email suporte@tork-crm.com.br

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations and webhooks

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	} else {
		docs.SwaggerInfo.Host = ""
	}

	// In staging/production secrets come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		// sqlite has no goose migrations; build the schema from the models
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}
	if err := database.SeedDefaultStages(db); err != nil {
		return fmt.Errorf("failed to seed pipeline stages: %w", err)
	}

	// Lead payload archive
	var archive storage.LeadArchiver = storage.NoopArchive{}
	if cfg.Storage.ArchiveLeads {
		store, err := storage.NewStorage(&cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		archive = storage.NewLeadArchive(store, log)
		log.Info("Lead archive enabled", zap.String("mode", cfg.Storage.Mode))
	}

	publisher, err := events.NewPublisher(&cfg.Events, log)
	if err != nil {
		// lead events are best effort; the API runs without them
		log.Warn("Event publisher unavailable, continuing without it", zap.Error(err))
		publisher = events.NoopPublisher{}
	}
	notifier := notify.NewNotifier(&cfg.Mail)
	revocations := cache.NewRevocationStore(&cfg.Redis)

	// Repositories
	contactRepo := repository.NewContactRepository(db)
	dealRepo := repository.NewDealRepository(db)
	historyRepo := repository.NewDealStageHistoryRepository(db)
	stageRepo := repository.NewPipelineStageRepository(db)
	userRepo := repository.NewUserRepository(db)
	syncTaskRepo := repository.NewSyncTaskRepository(db)

	// Helpdesk mirror: the dispatcher writes outbox rows, the worker delivers them
	helpdeskClient := helpdesk.NewClient(&cfg.Helpdesk, log)
	syncEnabled := cfg.Sync.Enabled && helpdeskClient.Enabled()
	dispatcher := syncer.NewDispatcher(syncTaskRepo, syncEnabled, log)
	worker := syncer.NewWorker(syncTaskRepo, helpdeskClient, syncer.WorkerConfigFromConfig(&cfg.Sync, &cfg.Helpdesk), log)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	if syncEnabled {
		go func() {
			defer close(workerDone)
			worker.Run(workerCtx, dispatcher.Wake())
		}()
	} else {
		close(workerDone)
		log.Info("Helpdesk sync disabled",
			zap.Bool("sync_enabled", cfg.Sync.Enabled),
			zap.Bool("helpdesk_configured", helpdeskClient.Enabled()),
		)
	}

	// Services
	resolver := service.NewContactResolver(cfg.Contacts.RequirePhone, log)
	leadService := service.NewLeadService(
		db,
		contactRepo,
		dealRepo,
		historyRepo,
		stageRepo,
		resolver,
		dispatcher,
		publisher,
		notifier,
		archive,
		cfg.Pipeline.InitialStage,
		log,
	)
	contactService := service.NewContactService(contactRepo, dealRepo, log)
	dealService := service.NewDealService(dealRepo, historyRepo, stageRepo, log, db)
	stageService := service.NewPipelineStageService(stageRepo, dealRepo, log, db)
	webhookService := service.NewHelpdeskWebhookService(db, contactRepo, resolver, log)
	importService := service.NewImportService(db, contactRepo, resolver, helpdeskClient, cfg.Import.MaxPages, log)

	tokens, err := auth.NewTokenManager(&cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}
	authService := service.NewAuthService(helpdeskClient, userRepo, tokens, revocations, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, tokens, revocations, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	readiness := map[string]router.Pinger{}
	if pinger, ok := revocations.(router.Pinger); ok {
		readiness["redis"] = pinger
	}

	rt := router.NewRouter(cfg, log, db, authMiddleware, rateLimiter, router.Handlers{
		Lead:     handler.NewLeadHandler(leadService, contactService, log),
		Helpdesk: handler.NewHelpdeskHandler(webhookService, importService, log),
		Auth:     handler.NewAuthHandler(authService, log),
		Contact:  handler.NewContactHandler(contactService, log),
		Deal:     handler.NewDealHandler(dealService, log),
		Stage:    handler.NewStageHandler(stageService, log),
	}, readiness)

	// Scheduled jobs
	scheduler := jobs.NewScheduler(log)
	if cfg.Jobs.HelpdeskImport.Enabled && helpdeskClient.Enabled() {
		if err := jobs.RegisterHelpdeskImportJob(
			scheduler,
			importService,
			log,
			cfg.Jobs.HelpdeskImport.Cron,
			cfg.Jobs.HelpdeskImport.TimeoutDuration(),
		); err != nil {
			log.Error("Failed to register helpdesk import job", zap.Error(err))
		}
	}
	if cfg.Jobs.SyncBacklog.Enabled && syncEnabled {
		if err := jobs.RegisterSyncBacklogJob(
			scheduler,
			syncTaskRepo,
			log,
			cfg.Jobs.SyncBacklog.Cron,
			cfg.Jobs.SyncBacklog.TimeoutDuration(),
		); err != nil {
			log.Error("Failed to register sync backlog job", zap.Error(err))
		}
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			serveErr = err
		}
	}

	<-scheduler.Stop().Done()
	log.Info("Scheduler stopped")

	// in-flight leads finish their follow-ups and outbox writes before the worker stops
	leadService.Wait()
	dispatcher.Wait()
	stopWorker()
	<-workerDone

	if err := publisher.Close(); err != nil {
		log.Warn("Error closing event publisher", zap.Error(err))
	}
	if err := revocations.Close(); err != nil {
		log.Warn("Error closing revocation store", zap.Error(err))
	}

	if serveErr == nil {
		log.Info("Server stopped gracefully")
	}
	return serveErr
}
