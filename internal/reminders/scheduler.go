package reminders

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/platform/logger"
)

// Scheduler keeps the pending reminders of this process in sync with the
// windows computed by the bidding engine.
type Scheduler struct {
	mu      sync.Mutex
	pending map[Key]Reminder
	backend Backend
	ledger  Ledger
	sink    Sink
	now     func() time.Time
	log     *logger.Logger
}

// New creates a scheduler. now defaults to time.Now.
func New(backend Backend, ledger Ledger, sink Sink, now func() time.Time, log *logger.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		pending: make(map[Key]Reminder),
		backend: backend,
		ledger:  ledger,
		sink:    sink,
		now:     now,
		log:     log,
	}
}

// Reconcile makes the pending reminders inside scope match windows: stale or
// missing windows are cancelled, new ones scheduled. Reminders whose fire
// time has passed or that already fired are skipped.
func (s *Scheduler) Reconcile(ctx context.Context, scope Scope, windows []ActiveWindow) {
	now := s.now()
	desired := make(map[Key]Reminder, len(windows))
	for _, w := range windows {
		if w.ReminderPercentage <= 0 {
			continue
		}
		r := Reminder{
			Key: Key{
				QuotationID: w.QuotationID,
				ProductID:   w.ProductID,
				SupplierID:  scope.SupplierID,
				Brand:       w.Brand,
			},
			BuyerID:  w.BuyerID,
			Deadline: w.Deadline,
			FireAt:   FireTime(w.Deadline, w.WindowMinutes, w.ReminderPercentage),
		}
		if !r.FireAt.After(now) {
			continue
		}
		if fired, err := s.ledger.WasFired(ctx, r); err != nil {
			s.log.Warn("reminder ledger lookup failed", slog.String("key", r.Key.String()), slog.String("error", err.Error()))
			continue
		} else if fired {
			continue
		}
		desired[r.Key] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, current := range s.pending {
		if !scope.covers(key) {
			continue
		}
		if next, ok := desired[key]; ok && next.Deadline.Equal(current.Deadline) {
			delete(desired, key)
			continue
		}
		if err := s.backend.Cancel(ctx, current); err != nil {
			s.log.Warn("reminder cancel failed", slog.String("key", key.String()), slog.String("error", err.Error()))
		}
		delete(s.pending, key)
	}

	for key, r := range desired {
		if err := s.backend.Schedule(ctx, r, s.Fire); err != nil {
			s.log.Warn("reminder schedule failed", slog.String("key", key.String()), slog.String("error", err.Error()))
			continue
		}
		s.pending[key] = r
	}
}

// Fire emits the reminder once per (key, deadline).
func (s *Scheduler) Fire(ctx context.Context, r Reminder) error {
	s.mu.Lock()
	if current, ok := s.pending[r.Key]; ok && current.Deadline.Equal(r.Deadline) {
		delete(s.pending, r.Key)
	}
	s.mu.Unlock()

	first, err := s.ledger.MarkFired(ctx, r)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	now := s.now()
	minutes := int(math.Ceil(r.Deadline.Sub(now).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	return s.sink.Emit(ctx, events.CounterProposalReminder{
		BaseEvent:        events.BaseAt(now),
		Recipient:        events.SupplierRecipient(r.BuyerID, r.Key.SupplierID),
		QuotationID:      r.Key.QuotationID,
		ProductID:        r.Key.ProductID,
		Brand:            r.Key.Brand,
		WindowDeadline:   r.Deadline,
		MinutesRemaining: minutes,
	})
}

// Pending returns a copy of the reminders scheduled by this process.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, r)
	}
	return out
}
