package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/notification/outbox"

	"github.com/google/uuid"
)

// OutboxWriter persists one intent row.
type OutboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// OutboxSink stores every intent in the notification outbox. Delivery
// happens later through the scheduler dispatcher.
type OutboxSink struct {
	writer OutboxWriter
	now    func() time.Time
}

// NewOutboxSink creates a sink writing to w. now defaults to time.Now.
func NewOutboxSink(w OutboxWriter, now func() time.Time) *OutboxSink {
	if now == nil {
		now = time.Now
	}
	return &OutboxSink{writer: w, now: now}
}

// Emit inserts the intent as a pending outbox row due immediately.
func (s *OutboxSink) Emit(ctx context.Context, intent events.Intent) error {
	to := intent.Addressee()
	_, err := s.writer.Insert(ctx, outbox.InsertParams{
		BuyerID:     to.BuyerID,
		Kind:        intent.EventName(),
		RecipientID: to.RecipientID,
		Payload:     intent,
		RunAt:       s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("store %s for %s: %w", intent.EventName(), to.RecipientID, err)
	}
	return nil
}

// Recorder keeps emitted intents in memory. It backs local runs without a
// delivery channel and the package tests.
type Recorder struct {
	mu      sync.Mutex
	intents []events.Intent
	fail    map[string]error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[string]error)}
}

// FailOn makes Emit return err for intents of the given kind.
func (r *Recorder) FailOn(kind string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[kind] = err
}

func (r *Recorder) Emit(_ context.Context, intent events.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[intent.EventName()]; err != nil {
		return err
	}
	r.intents = append(r.intents, intent)
	return nil
}

// Intents returns a copy of what was emitted so far.
func (r *Recorder) Intents() []events.Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Intent, len(r.intents))
	copy(out, r.intents)
	return out
}

// Count returns how many intents of kind were emitted.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, intent := range r.intents {
		if intent.EventName() == kind {
			n++
		}
	}
	return n
}
