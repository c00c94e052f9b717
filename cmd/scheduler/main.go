package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	biddingrepository "procurement_backend/internal/bidding/repository"
	"procurement_backend/internal/events"
	"procurement_backend/internal/notification"
	quotationsrepository "procurement_backend/internal/quotations/repository"
	quotationsservice "procurement_backend/internal/quotations/service"
	"procurement_backend/internal/reminders"
	"procurement_backend/internal/scheduler"
	suppliersrepository "procurement_backend/internal/suppliers/repository"
	suppliersservice "procurement_backend/internal/suppliers/service"
	"procurement_backend/platform/config"
	"procurement_backend/platform/db"
	"procurement_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const reminderLedgerPrefix = "bidding:reminders:fired:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	// Worker-side wiring (no HTTP handlers required).
	notificationModule := notification.New(pool, log)
	suppliers := suppliersservice.New(suppliersrepository.New(pool), cfg.GetPhoneDefaultRegion())
	notificationModule.SetContactDirectory(suppliers)
	sink := notificationModule.Sink()

	quotations := quotationsservice.New(
		quotationsrepository.New(pool),
		biddingrepository.New(pool),
		client,
		sink,
		eventBus,
		log,
		quotationsservice.Options{
			DefaultWindowMinutes:      cfg.GetDefaultCounterProposalMinutes(),
			DefaultReminderPercentage: cfg.GetDefaultReminderPercentage(),
		},
	)

	reminderScheduler := reminders.New(client, reminders.NewRedisLedger(redisClient, reminderLedgerPrefix), sink, time.Now, log)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, notificationModule.Outbox(), log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	sweeper := scheduler.NewExpiredQuotationSweeper(quotations, log, cfg.GetSweepInterval())
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, scheduler.Handlers{
		Quotations: quotations,
		Reminders:  reminderScheduler,
		Outbox:     notificationModule.Dispatcher(),
		Log:        log,
	})
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
