package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"franchise_crm/internal/adapters/storage"
	"franchise_crm/internal/appointments"
	"franchise_crm/internal/auth"
	"franchise_crm/internal/bootstrap"
	"franchise_crm/internal/calls"
	"franchise_crm/internal/franchise"
	apphttp "franchise_crm/internal/http"
	"franchise_crm/internal/http/router"
	"franchise_crm/internal/leads"
	"franchise_crm/internal/reports"
	"franchise_crm/internal/scheduler"
	"franchise_crm/platform/config"
	"franchise_crm/platform/db"
	"franchise_crm/platform/logger"
	"franchise_crm/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := bootstrap.WithRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.Migrate(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	rdb, err := bootstrap.RedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	taskClient, closeTasks := initTaskClient(cfg, log)
	if closeTasks != nil {
		defer closeTasks()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	media := initMediaStore(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	bg, err := bootstrap.NewBackground(cfg, pool, rdb, log)
	if err != nil {
		log.Error("failed to initialize pipeline modules", "error", err)
		panic("failed to initialize pipeline modules: " + err.Error())
	}
	defer bg.Close()

	authModule, err := auth.NewModule(pool, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize auth module", "error", err)
		panic("failed to initialize auth module: " + err.Error())
	}
	franchiseModule := franchise.NewModule(pool, val)
	leadsModule := leads.NewModule(pool, bg.Bus, cfg, val)
	callsModule := calls.NewModule(pool, bg.Bus, val)
	appointmentsModule := appointments.NewModule(pool, bg.Bus, cfg, val, log)
	reportsModule := reports.NewModule(pool, media, bg.Bus, cfg, val)

	if taskClient != nil {
		appointmentsModule.Service().SetConfirmationScheduler(taskClient)
		bg.Notification.SetEmailQueue(taskClient)
	}

	modules := []apphttp.Module{
		authModule,
		franchiseModule,
		leadsModule,
		callsModule,
		appointmentsModule,
		reportsModule,
		bg.Notification,
		bg.SLA,
		bg.KPI,
	}
	if bg.Reconcile != nil {
		modules = append(modules, bg.Reconcile)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: bg.Bus,
		Modules:  modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		bg.Bus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; confirmation checks and queued email disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initMediaStore returns nil when MinIO is not configured; report media
// uploads are then rejected.
func initMediaStore(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) storage.MediaStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; report media uploads disabled")
		return nil
	}

	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := bootstrap.WithRetry(ctx, log, "ensure report media bucket", 5, 2*time.Second, func() error {
		return svc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinIOBucketReportMedia())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", cfg.GetMinIOBucketReportMedia())
	return svc
}
