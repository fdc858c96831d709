package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complaints_portal_backend/internal/auth"
	"complaints_portal_backend/internal/complaints"
	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/email"
	"complaints_portal_backend/internal/events"
	apphttp "complaints_portal_backend/internal/http"
	"complaints_portal_backend/internal/http/router"
	"complaints_portal_backend/internal/notification"
	"complaints_portal_backend/internal/notification/outbox"
	"complaints_portal_backend/internal/photos"
	"complaints_portal_backend/internal/scheduler"
	"complaints_portal_backend/migrations"
	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/db"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	retryClient, closeScheduler := initSchedulerClient(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender := initEmailSender(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	deptRepo := departments.NewRepo(pool)
	registry, err := departments.NewRegistry(ctx, deptRepo, log)
	if err != nil {
		log.Error("failed to load department registry", "error", err)
		panic("failed to load department registry: " + err.Error())
	}
	if err := departments.SeedFromFile(ctx, registry, cfg.GetDepartmentSeedPath(), log); err != nil {
		log.Warn("department seed skipped", "path", cfg.GetDepartmentSeedPath(), "error", err)
	}

	complaintsModule := complaints.NewModule(pool, registry, retryClient, eventBus, val, cfg, log)

	// Notification module subscribes to lifecycle events (not HTTP-facing)
	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(sender, outboxRepo, cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	notificationModule.SetDepartmentReader(registry)
	if retryClient != nil {
		notificationModule.SetScheduler(retryClient)
	}

	authModule := auth.NewModule(pool, cfg, val, log)
	departmentsModule := departments.NewModule(registry, val)

	modules := []apphttp.Module{
		authModule,
		complaintsModule,
		departmentsModule,
	}

	if cfg.IsStorageEnabled() {
		storage, err := photos.NewStorage(cfg)
		if err != nil {
			log.Error("failed to initialize photo storage", "error", err)
			panic("failed to initialize photo storage: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure photo bucket", 5, 2*time.Second, func() error {
			return storage.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure photo bucket", "error", err, "bucket", cfg.GetPhotoBucket())
			panic("failed to ensure photo bucket: " + err.Error())
		}
		modules = append(modules, photos.NewModule(storage, log))
		log.Info("photo storage initialized", "bucket", cfg.GetPhotoBucket())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; photo uploads disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSchedulerClient connects to the asynq queue. Without Redis the inline
// routing attempt still runs; only the delayed retry chain is disabled.
func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; scheduled retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initEmailSender(cfg config.EmailConfig, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		log.Warn("email delivery disabled; notifications will be dropped")
		return email.NoopSender{}
	}

	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
