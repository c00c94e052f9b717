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

	"procurement_backend/internal/bidding"
	biddingdomain "procurement_backend/internal/bidding/domain"
	biddingrepository "procurement_backend/internal/bidding/repository"
	biddingservice "procurement_backend/internal/bidding/service"
	"procurement_backend/internal/events"
	apphttp "procurement_backend/internal/http"
	"procurement_backend/internal/http/router"
	"procurement_backend/internal/notification"
	"procurement_backend/internal/quotations"
	quotationsservice "procurement_backend/internal/quotations/service"
	"procurement_backend/internal/reminders"
	"procurement_backend/internal/scheduler"
	"procurement_backend/internal/suppliers"
	"procurement_backend/migrations"
	"procurement_backend/platform/config"
	"procurement_backend/platform/db"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reminderLedgerPrefix = "bidding:reminders:fired:"

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

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)
	sink := notificationModule.Sink()

	delayed, reminderScheduler, closeScheduler := initSchedulers(cfg, sink, log)
	defer closeScheduler()

	suppliersModule := suppliers.NewModule(pool, cfg.GetPhoneDefaultRegion(), val)

	// Offers are shared: quotations count them at closing, bidding owns them.
	offerRepo := biddingrepository.New(pool)

	quotationsModule := quotations.NewModule(pool, offerRepo, delayed, sink, eventBus, log, quotationsservice.Options{
		DefaultWindowMinutes:      cfg.GetDefaultCounterProposalMinutes(),
		DefaultReminderPercentage: cfg.GetDefaultReminderPercentage(),
	}, val)
	quotationsModule.Service().SetSupplierDirectory(suppliersModule.Service())
	notificationModule.SetQuotationReader(quotationsModule.Repository())
	notificationModule.SetContactDirectory(suppliersModule.Service())
	if cfg.GetRedisURL() == "" {
		go scheduler.NewExpiredQuotationSweeper(quotationsModule.Service(), log, cfg.GetSweepInterval()).Run(ctx)
		go scheduler.NewInlineOutboxDispatcher(notificationModule.Outbox(), notificationModule.Dispatcher(), cfg.GetOutboxPollInterval(), log).Run(ctx)
	}

	policy := cfg.GetQuantityPolicy()
	biddingModule := bidding.NewModule(bidding.Dependencies{
		Offers:     offerRepo,
		Quotations: quotationsModule.Repository(),
		Suppliers:  suppliersModule.Service(),
		Sink:       sink,
		Reminders:  reminderScheduler,
		EventBus:   eventBus,
		Logger:     log,
	}, biddingservice.Options{
		Policy:               biddingdomain.NewQuantityPolicy(policy.ExactTolerancePercent, policy.AdequateTolerancePercent, policy.VeryInsufficientPercent),
		DefaultWindowMinutes: cfg.GetDefaultCounterProposalMinutes(),
	}, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			suppliersModule,
			quotationsModule,
			biddingModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
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
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSchedulers returns the auto-close scheduler and the reminder scheduler.
// With Redis both run on asynq and share the fired ledger across instances;
// without it reminders use in-process timers while auto-close and outbox
// delivery run in this process.
func initSchedulers(cfg config.SchedulerConfig, sink reminders.Sink, log *logger.Logger) (quotationsservice.DeadlineScheduler, *reminders.Scheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background work runs in-process")
		backend := reminders.NewTimerBackend(time.Now, log)
		return noopDeadlines{}, reminders.New(backend, reminders.NewMemoryLedger(time.Now), sink, time.Now, log), backend.Stop
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}

	ledger := reminders.NewRedisLedger(redisClient, reminderLedgerPrefix)
	return client, reminders.New(client, ledger, sink, time.Now, log), func() {
		_ = client.Close()
		_ = redisClient.Close()
	}
}

type noopDeadlines struct{}

func (noopDeadlines) ScheduleAutoClose(context.Context, uuid.UUID, time.Time) error { return nil }

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
