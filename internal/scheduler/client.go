package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"procurement_backend/internal/reminders"
	"procurement_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed tasks. It schedules quotation auto-close and acts
// as the reminder backend shared by every API instance.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(opt, cfg.GetAsynqQueueName()), nil
}

func newClient(opt asynq.RedisConnOpt, queue string) *Client {
	if queue == "" {
		queue = "default"
	}
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return errors.Join(c.client.Close(), c.inspector.Close())
}

// ScheduleAutoClose enqueues the auto-close of a quotation at its deadline.
func (c *Client) ScheduleAutoClose(ctx context.Context, quotationID uuid.UUID, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewQuotationAutoCloseTask(QuotationAutoClosePayload{QuotationID: quotationID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(c.queue),
		asynq.TaskID(autoCloseTaskID(quotationID, at)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Schedule implements reminders.Backend. The worker fires the reminder, so
// fire is not kept.
func (c *Client) Schedule(ctx context.Context, r reminders.Reminder, _ reminders.FireFunc) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewBiddingReminderTask(BiddingReminderPayload{Reminder: r})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(r.FireAt),
		asynq.Queue(c.queue),
		asynq.TaskID(r.ID()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Cancel implements reminders.Backend.
func (c *Client) Cancel(_ context.Context, r reminders.Reminder) error {
	if c == nil || c.inspector == nil {
		return nil
	}
	err := c.inspector.DeleteTask(c.queue, r.ID())
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

var _ reminders.Backend = (*Client)(nil)

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

// NewRedisClient opens a go-redis client for the same Redis as asynq.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}
