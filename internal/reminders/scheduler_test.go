package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeBackend struct {
	mu        sync.Mutex
	scheduled map[string]Reminder
	cancelled []Reminder
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{scheduled: make(map[string]Reminder)}
}

func (b *fakeBackend) Schedule(_ context.Context, r Reminder, _ FireFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled[r.ID()] = r
	return nil
}

func (b *fakeBackend) Cancel(_ context.Context, r Reminder) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scheduled, r.ID())
	b.cancelled = append(b.cancelled, r)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	intents []events.Intent
}

func (s *recordingSink) Emit(_ context.Context, intent events.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intent)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func window(quotationID, productID uuid.UUID, brand string, deadline time.Time) ActiveWindow {
	return ActiveWindow{
		QuotationID:        quotationID,
		ProductID:          productID,
		BuyerID:            uuid.New(),
		Brand:              brand,
		Deadline:           deadline,
		WindowMinutes:      15,
		ReminderPercentage: 33,
	}
}

func TestFireTime(t *testing.T) {
	deadline := now.Add(15 * time.Minute)
	got := FireTime(deadline, 15, 33)
	want := deadline.Add(-(15 * time.Minute * 33 / 100))
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestReconcileSchedulesOnePerKey(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, NewMemoryLedger(fixedClock), &recordingSink{}, fixedClock, logger.Discard())
	supplier, quotation, product := uuid.New(), uuid.New(), uuid.New()
	scope := Scope{SupplierID: supplier, QuotationID: quotation}

	w := window(quotation, product, "acme", now.Add(15*time.Minute))
	s.Reconcile(context.Background(), scope, []ActiveWindow{w})
	s.Reconcile(context.Background(), scope, []ActiveWindow{w})

	if len(backend.scheduled) != 1 || len(s.Pending()) != 1 {
		t.Fatalf("expected one scheduled reminder, got %d", len(backend.scheduled))
	}
	if len(backend.cancelled) != 0 {
		t.Fatalf("expected no cancellation for unchanged window")
	}
}

func TestReconcileCancelsMissingAndStaleWindows(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, NewMemoryLedger(fixedClock), &recordingSink{}, fixedClock, logger.Discard())
	supplier, quotation, product := uuid.New(), uuid.New(), uuid.New()
	scope := Scope{SupplierID: supplier, QuotationID: quotation}

	first := window(quotation, product, "acme", now.Add(15*time.Minute))
	s.Reconcile(context.Background(), scope, []ActiveWindow{first})

	moved := first
	moved.Deadline = now.Add(20 * time.Minute)
	s.Reconcile(context.Background(), scope, []ActiveWindow{moved})
	if len(backend.cancelled) != 1 || len(backend.scheduled) != 1 {
		t.Fatalf("expected stale reminder replaced, cancelled=%d scheduled=%d", len(backend.cancelled), len(backend.scheduled))
	}

	s.Reconcile(context.Background(), scope, nil)
	if len(backend.scheduled) != 0 || len(s.Pending()) != 0 {
		t.Fatalf("expected reminders cancelled when window disappears")
	}
}

func TestReconcileLeavesOtherScopesAlone(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, NewMemoryLedger(fixedClock), &recordingSink{}, fixedClock, logger.Discard())
	supplier, quotation := uuid.New(), uuid.New()
	p1, p2 := uuid.New(), uuid.New()

	s.Reconcile(context.Background(), Scope{SupplierID: supplier, QuotationID: quotation}, []ActiveWindow{
		window(quotation, p1, "acme", now.Add(15*time.Minute)),
		window(quotation, p2, "acme", now.Add(15*time.Minute)),
	})
	s.Reconcile(context.Background(), Scope{SupplierID: supplier, QuotationID: quotation, ProductID: p1}, nil)

	if len(s.Pending()) != 1 || s.Pending()[0].Key.ProductID != p2 {
		t.Fatalf("expected only product p1 reminder to be cancelled, got %+v", s.Pending())
	}
}

func TestReconcileSkipsPastFireTime(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend, NewMemoryLedger(fixedClock), &recordingSink{}, fixedClock, logger.Discard())
	supplier, quotation := uuid.New(), uuid.New()

	s.Reconcile(context.Background(), Scope{SupplierID: supplier, QuotationID: quotation}, []ActiveWindow{
		window(quotation, uuid.New(), "acme", now.Add(time.Minute)),
	})
	if len(backend.scheduled) != 0 {
		t.Fatalf("expected reminder past its fire time not to be scheduled")
	}
}

func TestFireIsSingleShotPerWindow(t *testing.T) {
	backend := newFakeBackend()
	sink := &recordingSink{}
	s := New(backend, NewMemoryLedger(fixedClock), sink, fixedClock, logger.Discard())
	supplier, quotation := uuid.New(), uuid.New()
	scope := Scope{SupplierID: supplier, QuotationID: quotation}
	w := window(quotation, uuid.New(), "acme", now.Add(15*time.Minute))

	s.Reconcile(context.Background(), scope, []ActiveWindow{w})
	r := s.Pending()[0]
	if err := s.Fire(context.Background(), r); err != nil {
		t.Fatalf("fire failed: %v", err)
	}
	if err := s.Fire(context.Background(), r); err != nil {
		t.Fatalf("second fire failed: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly one reminder intent, got %d", sink.count())
	}

	s.Reconcile(context.Background(), scope, []ActiveWindow{w})
	if len(s.Pending()) != 0 {
		t.Fatalf("expected fired window not to be rescheduled")
	}

	reminder := sink.intents[0].(events.CounterProposalReminder)
	if reminder.MinutesRemaining != 15 || reminder.Addressee().RecipientID != supplier {
		t.Fatalf("unexpected reminder intent %+v", reminder)
	}

	renewed := w
	renewed.Deadline = now.Add(30 * time.Minute)
	s.Reconcile(context.Background(), scope, []ActiveWindow{renewed})
	if len(s.Pending()) != 1 {
		t.Fatalf("expected a new window deadline to schedule again")
	}
}

func TestTimerBackendFires(t *testing.T) {
	backend := NewTimerBackend(nil, logger.Discard())
	defer backend.Stop()

	fired := make(chan Reminder, 1)
	r := Reminder{Key: Key{Brand: "acme"}, FireAt: time.Now().Add(10 * time.Millisecond), Deadline: time.Now().Add(time.Minute)}
	if err := backend.Schedule(context.Background(), r, func(_ context.Context, got Reminder) error {
		fired <- got
		return nil
	}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	select {
	case got := <-fired:
		if got.Key != r.Key {
			t.Fatalf("unexpected reminder fired %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}

func TestTimerBackendCancel(t *testing.T) {
	backend := NewTimerBackend(nil, logger.Discard())
	fired := make(chan struct{}, 1)
	r := Reminder{Key: Key{Brand: "acme"}, FireAt: time.Now().Add(50 * time.Millisecond), Deadline: time.Now().Add(time.Minute)}
	_ = backend.Schedule(context.Background(), r, func(context.Context, Reminder) error {
		fired <- struct{}{}
		return nil
	})
	_ = backend.Cancel(context.Background(), r)

	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRedisLedgerMarksOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ledger := NewRedisLedger(client, "")
	r := Reminder{Key: Key{QuotationID: uuid.New(), Brand: "acme"}, Deadline: time.Now().Add(time.Hour)}

	first, err := ledger.MarkFired(context.Background(), r)
	if err != nil || !first {
		t.Fatalf("expected first mark to win, got %v / %v", first, err)
	}
	second, err := ledger.MarkFired(context.Background(), r)
	if err != nil || second {
		t.Fatalf("expected second mark to lose, got %v / %v", second, err)
	}
	fired, err := ledger.WasFired(context.Background(), r)
	if err != nil || !fired {
		t.Fatalf("expected WasFired true, got %v / %v", fired, err)
	}
}
