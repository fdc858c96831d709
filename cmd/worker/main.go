// The worker process executes delayed work: scheduled routing attempts,
// notification outbox deliveries, the stuck-outbox sweep, and idempotency
// key retention.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"complaints_portal_backend/internal/complaints"
	"complaints_portal_backend/internal/departments"
	"complaints_portal_backend/internal/email"
	"complaints_portal_backend/internal/events"
	"complaints_portal_backend/internal/notification"
	"complaints_portal_backend/internal/notification/outbox"
	"complaints_portal_backend/internal/scheduler"
	"complaints_portal_backend/migrations"
	"complaints_portal_backend/platform/config"
	"complaints_portal_backend/platform/db"
	"complaints_portal_backend/platform/logger"
	"complaints_portal_backend/platform/validator"
)

const clientRefSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, cfg, migrations.FS, "."); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	retryClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer retryClient.Close()

	sender := initEmailSender(cfg, log)

	deptRepo := departments.NewRepo(pool)
	registry, err := departments.NewRegistry(ctx, deptRepo, log)
	if err != nil {
		log.Error("failed to load department registry", "error", err)
		panic("failed to load department registry: " + err.Error())
	}

	complaintsModule := complaints.NewModule(pool, registry, retryClient, eventBus, val, cfg, log)

	outboxRepo := outbox.New(pool)
	notificationModule := notification.New(sender, outboxRepo, cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	notificationModule.SetDepartmentReader(registry)
	notificationModule.SetScheduler(retryClient)

	worker, err := scheduler.NewWorker(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	worker.SetRoutingProcessor(complaintsModule.Engine())
	worker.SetOutboxProcessor(notificationModule)

	dispatcher := notification.NewDispatcher(outboxRepo, retryClient, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})

	g.Go(func() error {
		runClientRefSweep(gctx, complaintsModule.Repository(), cfg, log)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped", "error", err)
	}
	log.Info("worker shut down")
}

// runClientRefSweep periodically releases idempotency keys older than the
// dedup window so later resubmissions create fresh complaints.
func runClientRefSweep(ctx context.Context, repo clientRefCleaner, cfg config.IngestionConfig, log *logger.Logger) {
	ticker := time.NewTicker(clientRefSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-cfg.GetDedupWindow())
			cleared, err := repo.ClearExpiredClientRefs(ctx, cutoff)
			if err != nil {
				log.Error("client ref sweep failed", "error", err)
				continue
			}
			if cleared > 0 {
				log.Info("client refs released", "count", cleared)
			}
		}
	}
}

type clientRefCleaner interface {
	ClearExpiredClientRefs(ctx context.Context, before time.Time) (int64, error)
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
