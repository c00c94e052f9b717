package scheduler

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/notification/outbox"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const outboxClaimBatch = 50

// OutboxClaimer hands out due outbox rows exactly once.
type OutboxClaimer interface {
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
}

// TaskEnqueuer is the part of asynq.Client the dispatcher uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NotificationOutboxDispatcher polls the outbox and turns due rows into
// asynq tasks, or processes them inline when built without Redis.
type NotificationOutboxDispatcher struct {
	client   TaskEnqueuer
	inline   OutboxProcessor
	closer   func() error
	queue    string
	repo     OutboxClaimer
	interval time.Duration
	log      *logger.Logger
}

func NewNotificationOutboxDispatcher(cfg config.SchedulerConfig, repo OutboxClaimer, log *logger.Logger) (*NotificationOutboxDispatcher, error) {
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

	interval := cfg.GetOutboxPollInterval()
	if interval <= 0 {
		interval = 2 * time.Second
	}

	client := asynq.NewClient(opt)
	return &NotificationOutboxDispatcher{
		client:   client,
		closer:   client.Close,
		queue:    queue,
		repo:     repo,
		interval: interval,
		log:      log,
	}, nil
}

// NewInlineOutboxDispatcher delivers due rows in the polling goroutine.
func NewInlineOutboxDispatcher(repo OutboxClaimer, processor OutboxProcessor, interval time.Duration, log *logger.Logger) *NotificationOutboxDispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &NotificationOutboxDispatcher{inline: processor, repo: repo, interval: interval, log: log}
}

func (d *NotificationOutboxDispatcher) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || (d.client == nil && d.inline == nil) || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

func (d *NotificationOutboxDispatcher) dispatch(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, time.Now().UTC(), outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		if d.inline != nil {
			if err := d.inline.ProcessDue(ctx, rec.ID); err != nil {
				d.requeue(ctx, rec, err)
				continue
			}
			enqueued++
			continue
		}

		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID: rec.ID.String(),
			BuyerID:  rec.BuyerID.String(),
		})
		if err != nil {
			d.requeue(ctx, rec, err)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			d.requeue(ctx, rec, err)
			continue
		}
		enqueued++
	}
	return enqueued
}

func (d *NotificationOutboxDispatcher) requeue(ctx context.Context, rec outbox.Record, cause error) {
	msg := cause.Error()
	if err := d.repo.MarkPending(ctx, rec.ID, rec.RunAt, &msg); err != nil {
		d.log.Error("outbox requeue failed", "outboxId", rec.ID.String(), "error", err)
	}
}
