package reminders

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"procurement_backend/platform/logger"
)

// TimerBackend fires reminders with in-process timers. Pending reminders are
// lost on restart and recomputed on the next read.
type TimerBackend struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	now    func() time.Time
	log    *logger.Logger
}

// NewTimerBackend creates a timer backend. now defaults to time.Now.
func NewTimerBackend(now func() time.Time, log *logger.Logger) *TimerBackend {
	if now == nil {
		now = time.Now
	}
	return &TimerBackend{timers: make(map[string]*time.Timer), now: now, log: log}
}

func (b *TimerBackend) Schedule(_ context.Context, r Reminder, fire FireFunc) error {
	delay := r.FireAt.Sub(b.now())
	if delay < 0 {
		delay = 0
	}
	id := r.ID()

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.timers[id]; ok {
		existing.Stop()
	}
	b.timers[id] = time.AfterFunc(delay, func() {
		b.mu.Lock()
		delete(b.timers, id)
		b.mu.Unlock()
		if err := fire(context.Background(), r); err != nil {
			b.log.Warn("reminder fire failed", slog.String("key", r.Key.String()), slog.String("error", err.Error()))
		}
	})
	return nil
}

func (b *TimerBackend) Cancel(_ context.Context, r Reminder) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if timer, ok := b.timers[r.ID()]; ok {
		timer.Stop()
		delete(b.timers, r.ID())
	}
	return nil
}

// Stop cancels every pending timer.
func (b *TimerBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, timer := range b.timers {
		timer.Stop()
		delete(b.timers, id)
	}
}
