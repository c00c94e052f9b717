package scheduler

import (
	"context"
	"fmt"

	"procurement_backend/internal/quotations/service"
	"procurement_backend/internal/reminders"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AutoCloser closes a quotation whose deadline passed.
type AutoCloser interface {
	AutoClose(ctx context.Context, id uuid.UUID) (service.CloseResult, error)
}

// ReminderFirer emits a due counter-proposal reminder.
type ReminderFirer interface {
	Fire(ctx context.Context, r reminders.Reminder) error
}

// OutboxProcessor delivers one due outbox row.
type OutboxProcessor interface {
	ProcessDue(ctx context.Context, outboxID uuid.UUID) error
}

// Handlers are the task handlers run by the worker.
type Handlers struct {
	Quotations AutoCloser
	Reminders  ReminderFirer
	Outbox     OutboxProcessor
	Log        *logger.Logger
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers Handlers) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	return &Worker{
		server: server,
		mux:    handlers.Mux(),
		log:    handlers.Log,
	}, nil
}

// Mux routes every task type to its handler.
func (h Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskQuotationAutoClose, h.handleQuotationAutoClose)
	mux.HandleFunc(TaskBiddingReminder, h.handleBiddingReminder)
	mux.HandleFunc(TaskNotificationOutboxDue, h.handleNotificationOutboxDue)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (h Handlers) handleQuotationAutoClose(ctx context.Context, task *asynq.Task) error {
	if h.Quotations == nil {
		return nil
	}

	payload, err := ParseQuotationAutoClosePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	quotationID, err := uuid.Parse(payload.QuotationID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := h.Quotations.AutoClose(ctx, quotationID)
	if err != nil {
		return err
	}
	if result.NotDue {
		h.Log.Debug("auto-close task ran before deadline or on paused quotation", "quotationId", quotationID.String())
	}
	return nil
}

func (h Handlers) handleBiddingReminder(ctx context.Context, task *asynq.Task) error {
	if h.Reminders == nil {
		return nil
	}

	payload, err := ParseBiddingReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return h.Reminders.Fire(ctx, payload.Reminder)
}

func (h Handlers) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if h.Outbox == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return h.Outbox.ProcessDue(ctx, outboxID)
}
