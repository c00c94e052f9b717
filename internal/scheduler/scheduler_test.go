package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement_backend/internal/notification/outbox"
	"procurement_backend/internal/quotations/service"
	"procurement_backend/internal/reminders"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeCloser struct {
	ids []uuid.UUID
	err error
}

func (f *fakeCloser) AutoClose(_ context.Context, id uuid.UUID) (service.CloseResult, error) {
	f.ids = append(f.ids, id)
	return service.CloseResult{QuotationID: id}, f.err
}

type fakeFirer struct {
	fired []reminders.Reminder
}

func (f *fakeFirer) Fire(_ context.Context, r reminders.Reminder) error {
	f.fired = append(f.fired, r)
	return nil
}

type fakeProcessor struct {
	ids []uuid.UUID
}

func (f *fakeProcessor) ProcessDue(_ context.Context, id uuid.UUID) error {
	f.ids = append(f.ids, id)
	return nil
}

func TestHandlersRouteTasks(t *testing.T) {
	closer := &fakeCloser{}
	firer := &fakeFirer{}
	processor := &fakeProcessor{}
	mux := Handlers{Quotations: closer, Reminders: firer, Outbox: processor, Log: logger.Discard()}.Mux()
	ctx := context.Background()

	quotationID := uuid.New()
	task, err := NewQuotationAutoCloseTask(QuotationAutoClosePayload{QuotationID: quotationID.String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := mux.ProcessTask(ctx, task); err != nil {
		t.Fatalf("auto-close: %v", err)
	}
	if len(closer.ids) != 1 || closer.ids[0] != quotationID {
		t.Fatalf("expected auto-close of %s, got %v", quotationID, closer.ids)
	}

	deadline := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	r := reminders.Reminder{
		Key:      reminders.Key{QuotationID: quotationID, ProductID: uuid.New(), SupplierID: uuid.New(), Brand: "spring"},
		BuyerID:  uuid.New(),
		FireAt:   deadline.Add(-5 * time.Minute),
		Deadline: deadline,
	}
	task, err = NewBiddingReminderTask(BiddingReminderPayload{Reminder: r})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := mux.ProcessTask(ctx, task); err != nil {
		t.Fatalf("reminder: %v", err)
	}
	if len(firer.fired) != 1 || firer.fired[0].ID() != r.ID() {
		t.Fatalf("expected reminder %s to fire, got %v", r.ID(), firer.fired)
	}

	outboxID := uuid.New()
	task, err = NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: outboxID.String(), BuyerID: uuid.New().String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := mux.ProcessTask(ctx, task); err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(processor.ids) != 1 || processor.ids[0] != outboxID {
		t.Fatalf("expected outbox %s to be processed, got %v", outboxID, processor.ids)
	}
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	mux := Handlers{Quotations: &fakeCloser{}, Log: logger.Discard()}.Mux()
	task := asynq.NewTask(TaskQuotationAutoClose, []byte(`{"quotationId":"not-a-uuid"}`))

	err := mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestAutoCloseErrorIsRetried(t *testing.T) {
	boom := errors.New("db down")
	mux := Handlers{Quotations: &fakeCloser{err: boom}, Log: logger.Discard()}.Mux()
	task, _ := NewQuotationAutoCloseTask(QuotationAutoClosePayload{QuotationID: uuid.NewString()})

	err := mux.ProcessTask(context.Background(), task)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestAutoCloseTaskIDPerDeadline(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

	if autoCloseTaskID(id, at) != autoCloseTaskID(id, at) {
		t.Fatalf("expected stable task id")
	}
	if autoCloseTaskID(id, at) == autoCloseTaskID(id, at.Add(time.Hour)) {
		t.Fatalf("expected a new task id for a new deadline")
	}
}

type fakeClaimer struct {
	records  []outbox.Record
	requeued []uuid.UUID
}

func (f *fakeClaimer) ClaimPending(_ context.Context, _ time.Time, limit int) ([]outbox.Record, error) {
	if limit != outboxClaimBatch {
		return nil, errors.New("unexpected limit")
	}
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, _ time.Time, _ *string) error {
	f.requeued = append(f.requeued, id)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	fail  map[string]bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return nil, err
	}
	if f.fail[payload.OutboxID] {
		return nil, errors.New("redis unavailable")
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestDispatcherEnqueuesClaimedRows(t *testing.T) {
	ok, broken := uuid.New(), uuid.New()
	claimer := &fakeClaimer{records: []outbox.Record{
		{ID: ok, BuyerID: uuid.New(), RunAt: time.Now()},
		{ID: broken, BuyerID: uuid.New(), RunAt: time.Now()},
	}}
	enqueuer := &fakeEnqueuer{fail: map[string]bool{broken.String(): true}}
	d := &NotificationOutboxDispatcher{client: enqueuer, queue: "default", repo: claimer, interval: time.Second, log: logger.Discard()}

	if got := d.dispatch(context.Background()); got != 1 {
		t.Fatalf("expected one enqueued row, got %d", got)
	}
	if len(claimer.requeued) != 1 || claimer.requeued[0] != broken {
		t.Fatalf("expected failed row to go back to pending, got %v", claimer.requeued)
	}
	if got := d.dispatch(context.Background()); got != 0 {
		t.Fatalf("expected nothing left to dispatch, got %d", got)
	}
}

type countingCloser struct {
	calls int
}

func (c *countingCloser) SweepExpired(context.Context) (int, error) {
	c.calls++
	return 2, nil
}

func TestSweeperRunsImmediately(t *testing.T) {
	closer := &countingCloser{}
	s := NewExpiredQuotationSweeper(closer, logger.Discard(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Run(ctx)
	if closer.calls != 1 {
		t.Fatalf("expected one sweep before the first tick, got %d", closer.calls)
	}
}

func TestInlineDispatcherProcessesClaimedRows(t *testing.T) {
	id := uuid.New()
	claimer := &fakeClaimer{records: []outbox.Record{{ID: id, BuyerID: uuid.New(), RunAt: time.Now()}}}
	processor := &fakeProcessor{}
	d := NewInlineOutboxDispatcher(claimer, processor, 0, logger.Discard())

	if got := d.dispatch(context.Background()); got != 1 {
		t.Fatalf("expected one processed row, got %d", got)
	}
	if len(processor.ids) != 1 || processor.ids[0] != id {
		t.Fatalf("expected row %s to be processed inline, got %v", id, processor.ids)
	}
	if d.interval != 2*time.Second {
		t.Fatalf("expected default interval, got %v", d.interval)
	}
}
