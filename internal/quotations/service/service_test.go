package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/quotations/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordingSink struct {
	mu      sync.Mutex
	intents []events.Intent
	fail    map[string]bool
}

func (s *recordingSink) Emit(_ context.Context, intent events.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[intent.EventName()] {
		return errors.New("channel down")
	}
	s.intents = append(s.intents, intent)
	return nil
}

func (s *recordingSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, intent := range s.intents {
		if intent.EventName() == name {
			n++
		}
	}
	return n
}

type fixedCounter int

func (c fixedCounter) CountByQuotation(context.Context, uuid.UUID) (int, error) {
	return int(c), nil
}

type recordingDeadlines struct {
	mu  sync.Mutex
	ats map[uuid.UUID]time.Time
}

func (d *recordingDeadlines) ScheduleAutoClose(_ context.Context, id uuid.UUID, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ats == nil {
		d.ats = make(map[uuid.UUID]time.Time)
	}
	d.ats[id] = at
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc       *Service
	store     *repository.MemoryStore
	sink      *recordingSink
	deadlines *recordingDeadlines
	clock     *clock
	buyer     uuid.UUID
	suppliers []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		sink:      &recordingSink{fail: map[string]bool{}},
		deadlines: &recordingDeadlines{},
		clock:     &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		buyer:     uuid.New(),
		suppliers: []uuid.UUID{uuid.New(), uuid.New()},
	}
	f.svc = New(f.store, fixedCounter(3), f.deadlines, f.sink, nil, logger.Discard(), Options{Now: f.clock.Now})
	return f
}

func (f *fixture) start(t *testing.T) domain.Quotation {
	t.Helper()
	res, err := f.svc.Start(context.Background(), f.buyer, StartInput{
		Name:        "Weekly restock",
		SupplierIDs: f.suppliers,
		Deadline:    f.clock.Now().Add(2 * time.Hour),
		Lines: []LineInput{
			{Name: "Tomato", Quantity: decimal.NewFromInt(10), Unit: domain.UnitKilogram},
			{Name: "Milk", Quantity: decimal.NewFromInt(24), Unit: domain.UnitLiter},
		},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return res.Quotation
}

func TestStartPublishesOpenQuotation(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)

	if q.Status != domain.StatusOpen {
		t.Fatalf("expected status %s, got %s", domain.StatusOpen, q.Status)
	}
	for _, line := range q.Lines {
		if line.ItemStatus != domain.ItemQuoted {
			t.Fatalf("expected item %s to be %s, got %s", line.Name, domain.ItemQuoted, line.ItemStatus)
		}
	}
	if q.CounterProposalMinutes != 15 || q.ReminderPercentage != 33 {
		t.Fatalf("unexpected defaults: window=%d reminder=%d", q.CounterProposalMinutes, q.ReminderPercentage)
	}
	if got := f.sink.count(events.QuotationInvitation{}.EventName()); got != len(f.suppliers) {
		t.Fatalf("expected %d invitations, got %d", len(f.suppliers), got)
	}
	if at, ok := f.deadlines.ats[q.ID]; !ok || !at.Equal(q.Deadline) {
		t.Fatalf("expected auto-close scheduled at %s, got %s", q.Deadline, at)
	}
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	valid := []LineInput{{Name: "Rice", Quantity: decimal.NewFromInt(5), Unit: domain.UnitKilogram}}
	badPct := 120

	cases := []struct {
		name string
		in   StartInput
	}{
		{"missing name", StartInput{SupplierIDs: f.suppliers, Deadline: now.Add(time.Hour), Lines: valid}},
		{"no suppliers", StartInput{Name: "x", Deadline: now.Add(time.Hour), Lines: valid}},
		{"no lines", StartInput{Name: "x", SupplierIDs: f.suppliers, Deadline: now.Add(time.Hour)}},
		{"past deadline", StartInput{Name: "x", SupplierIDs: f.suppliers, Deadline: now.Add(-time.Minute), Lines: valid}},
		{"zero quantity", StartInput{Name: "x", SupplierIDs: f.suppliers, Deadline: now.Add(time.Hour), Lines: []LineInput{{Name: "Rice", Unit: domain.UnitKilogram}}}},
		{"unknown unit", StartInput{Name: "x", SupplierIDs: f.suppliers, Deadline: now.Add(time.Hour), Lines: []LineInput{{Name: "Rice", Quantity: decimal.NewFromInt(1), Unit: "barrel"}}}},
		{"reminder out of range", StartInput{Name: "x", SupplierIDs: f.suppliers, Deadline: now.Add(time.Hour), Lines: valid, ReminderPercentage: &badPct}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Start(context.Background(), f.buyer, tc.in)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPauseAndReopen(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()

	paused, err := f.svc.Pause(ctx, f.buyer, q.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Status != domain.StatusPaused {
		t.Fatalf("expected paused, got %s", paused.Status)
	}
	if _, err := f.svc.Pause(ctx, f.buyer, q.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict pausing twice, got %v", err)
	}

	newDeadline := f.clock.Now().Add(5 * time.Hour)
	reopened, err := f.svc.Reopen(ctx, f.buyer, q.ID, &newDeadline)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != domain.StatusOpen || !reopened.Deadline.Equal(newDeadline) {
		t.Fatalf("unexpected reopened quotation: %+v", reopened)
	}
	if !f.deadlines.ats[q.ID].Equal(newDeadline) {
		t.Fatalf("expected auto-close rescheduled to %s", newDeadline)
	}
}

func TestReopenRequiresFutureDeadline(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()
	if _, err := f.svc.Pause(ctx, f.buyer, q.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.clock.Advance(3 * time.Hour)
	if _, err := f.svc.Reopen(ctx, f.buyer, q.ID, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloseByOwner(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.Close(ctx, uuid.New(), q.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	res, err := f.svc.Close(ctx, f.buyer, q.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.AlreadyClosed || res.UpdatedItems != 2 || res.TotalOffers != 3 {
		t.Fatalf("unexpected close result: %+v", res)
	}

	stored, _ := f.store.Get(ctx, q.ID)
	if stored.Status != domain.StatusClosed {
		t.Fatalf("expected closed, got %s", stored.Status)
	}
	for _, line := range stored.Lines {
		if line.ItemStatus != domain.ItemClosed {
			t.Fatalf("expected line closed, got %s", line.ItemStatus)
		}
	}
	summary, ok := f.store.ClosureSummary(q.ID)
	if !ok || summary.Trigger != repository.TriggerManual || summary.ClosedItems != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := f.sink.count(events.SupplierClosureNotice{}.EventName()); got != 2 {
		t.Fatalf("expected 2 supplier notices, got %d", got)
	}
	if got := f.sink.count(events.BuyerClosureNotice{}.EventName()); got != 1 {
		t.Fatalf("expected 1 buyer notice, got %d", got)
	}

	again, err := f.svc.Close(ctx, f.buyer, q.ID)
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !again.AlreadyClosed || again.UpdatedItems != 0 {
		t.Fatalf("expected already closed result, got %+v", again)
	}
	if got := f.sink.count(events.BuyerClosureNotice{}.EventName()); got != 1 {
		t.Fatalf("expected no extra buyer notice, got %d", got)
	}
}

func TestCloseReportsNotificationFailures(t *testing.T) {
	f := newFixture(t)
	f.sink.fail[events.SupplierClosureNotice{}.EventName()] = true
	q := f.start(t)

	res, err := f.svc.Close(context.Background(), f.buyer, q.ID)
	if err != nil {
		t.Fatalf("close must succeed despite notification failures: %v", err)
	}
	if len(res.NotificationErrors) != 2 {
		t.Fatalf("expected 2 notification errors, got %v", res.NotificationErrors)
	}
	if got := f.sink.count(events.BuyerClosureNotice{}.EventName()); got != 1 {
		t.Fatalf("expected buyer notice to be sent, got %d", got)
	}
}

func TestAutoCloseOnlyWhenDue(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()

	res, err := f.svc.AutoClose(ctx, q.ID)
	if err != nil {
		t.Fatalf("auto-close: %v", err)
	}
	if !res.NotDue {
		t.Fatalf("expected not due, got %+v", res)
	}

	f.clock.Advance(2 * time.Hour)
	res, err = f.svc.AutoClose(ctx, q.ID)
	if err != nil {
		t.Fatalf("auto-close: %v", err)
	}
	if res.AlreadyClosed || res.UpdatedItems != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	summary, _ := f.store.ClosureSummary(q.ID)
	if summary.Trigger != repository.TriggerDeadline {
		t.Fatalf("expected deadline trigger, got %s", summary.Trigger)
	}
}

func TestAutoCloseSkipsPausedQuotation(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()
	if _, err := f.svc.Pause(ctx, f.buyer, q.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.clock.Advance(3 * time.Hour)

	res, err := f.svc.AutoClose(ctx, q.ID)
	if err != nil {
		t.Fatalf("auto-close: %v", err)
	}
	if !res.NotDue {
		t.Fatalf("expected paused quotation to be left alone, got %+v", res)
	}
}

func TestConcurrentAutoCloseClosesOnce(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	f.clock.Advance(2*time.Hour + time.Second)

	const callers = 16
	var (
		wg      sync.WaitGroup
		claimed atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.AutoClose(context.Background(), q.ID)
			if err != nil {
				t.Errorf("auto-close: %v", err)
				return
			}
			if !res.AlreadyClosed {
				claimed.Add(1)
			}
		}()
	}
	wg.Wait()

	if claimed.Load() != 1 {
		t.Fatalf("expected exactly one claim, got %d", claimed.Load())
	}
	if got := f.sink.count(events.BuyerClosureNotice{}.EventName()); got != 1 {
		t.Fatalf("expected exactly one buyer notice, got %d", got)
	}
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	first := f.start(t)
	second := f.start(t)
	ctx := context.Background()
	if _, err := f.svc.Close(ctx, f.buyer, second.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.clock.Advance(3 * time.Hour)

	closed, err := f.svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 sweep close, got %d", closed)
	}
	stored, _ := f.store.Get(ctx, first.ID)
	if stored.Status != domain.StatusClosed {
		t.Fatalf("expected first quotation closed, got %s", stored.Status)
	}
}

func TestConcludeRequiresClosed(t *testing.T) {
	f := newFixture(t)
	q := f.start(t)
	ctx := context.Background()

	if _, err := f.svc.Conclude(ctx, f.buyer, q.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict concluding open quotation, got %v", err)
	}
	if _, err := f.svc.Close(ctx, f.buyer, q.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	concluded, err := f.svc.Conclude(ctx, f.buyer, q.ID)
	if err != nil {
		t.Fatalf("conclude: %v", err)
	}
	if concluded.Status != domain.StatusConcluded {
		t.Fatalf("expected concluded, got %s", concluded.Status)
	}
}

type scheduleDirectory map[uuid.UUID][]time.Weekday

func (d scheduleDirectory) EnsureOwned(context.Context, uuid.UUID, []uuid.UUID) error {
	return nil
}

func (d scheduleDirectory) DeliveryDays(_ context.Context, _, supplierID uuid.UUID) ([]time.Weekday, error) {
	return d[supplierID], nil
}

func TestStartFlagsDeliveryMismatches(t *testing.T) {
	f := newFixture(t)
	weekly, fridays := f.suppliers[0], f.suppliers[1]
	f.svc.SetSupplierDirectory(scheduleDirectory{
		weekly:  {time.Monday, time.Wednesday},
		fridays: {time.Friday},
	})
	wednesday := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	res, err := f.svc.Start(context.Background(), f.buyer, StartInput{
		Name:        "Dated restock",
		SupplierIDs: f.suppliers,
		Deadline:    f.clock.Now().Add(2 * time.Hour),
		Lines: []LineInput{
			{Name: "Tomato", Quantity: decimal.NewFromInt(10), Unit: domain.UnitKilogram, DeliveryDate: &wednesday},
			{Name: "Milk", Quantity: decimal.NewFromInt(24), Unit: domain.UnitLiter},
		},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	stored, err := f.store.Get(context.Background(), res.Quotation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	dated, undated := stored.Lines[0], stored.Lines[1]
	if dated.DeliveryDate == nil || !dated.DeliveryDate.Equal(wednesday) {
		t.Fatalf("expected delivery date %s, got %v", wednesday, dated.DeliveryDate)
	}
	if !dated.NeedsDeliveryConfirmation(fridays) || dated.NeedsDeliveryConfirmation(weekly) {
		t.Fatalf("expected only the friday supplier to be flagged, got %v", dated.DeliveryMismatches)
	}
	if len(undated.DeliveryMismatches) != 0 {
		t.Fatalf("an undated line flags nobody, got %v", undated.DeliveryMismatches)
	}
}
