package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/notification/outbox"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeOutbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]outbox.Record
	runAt   map[uuid.UUID]time.Time
	errors  map[uuid.UUID]string
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		records: make(map[uuid.UUID]outbox.Record),
		runAt:   make(map[uuid.UUID]time.Time),
		errors:  make(map[uuid.UUID]string),
	}
}

func (f *fakeOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.records[id] = outbox.Record{
		ID:          id,
		BuyerID:     p.BuyerID,
		Kind:        p.Kind,
		RecipientID: p.RecipientID,
		Payload:     payload,
		RunAt:       p.RunAt,
		Status:      outbox.StatusPending,
	}
	return id, nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("not found")
	}
	return rec, nil
}

func (f *fakeOutbox) set(id uuid.UUID, apply func(*outbox.Record)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return errors.New("not found")
	}
	apply(&rec)
	f.records[id] = rec
	return nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return f.set(id, func(r *outbox.Record) {
		r.Status = outbox.StatusProcessing
		r.Attempts++
	})
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	return f.set(id, func(r *outbox.Record) { r.Status = outbox.StatusSucceeded })
}

func (f *fakeOutbox) MarkPending(_ context.Context, id uuid.UUID, runAt time.Time, lastError *string) error {
	f.mu.Lock()
	f.runAt[id] = runAt
	if lastError != nil {
		f.errors[id] = *lastError
	}
	f.mu.Unlock()
	return f.set(id, func(r *outbox.Record) {
		r.Status = outbox.StatusPending
		r.RunAt = runAt
	})
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.mu.Lock()
	f.errors[id] = lastError
	f.mu.Unlock()
	return f.set(id, func(r *outbox.Record) { r.Status = outbox.StatusFailed })
}

func (f *fakeOutbox) status(id uuid.UUID) outbox.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Status
}

type captureDeliverer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (d *captureDeliverer) Deliver(_ context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

type staticContacts map[uuid.UUID]string

func (c staticContacts) WhatsAppContact(_ context.Context, _, supplierID uuid.UUID) (string, error) {
	number, ok := c[supplierID]
	if !ok {
		return "", errors.New("supplier not found")
	}
	return number, nil
}

func outbidIntent(buyerID, supplierID uuid.UUID) events.OutbidNotice {
	return events.OutbidNotice{
		BaseEvent:       events.BaseAt(testNow),
		Recipient:       events.SupplierRecipient(buyerID, supplierID),
		QuotationID:     uuid.New(),
		ProductID:       uuid.New(),
		ProductName:     "Mineral water",
		OutbidBrand:     "spring",
		NewPrice:        decimal.RequireFromString("9.5"),
		NewBrand:        "rock",
		NewSupplierName: "Aguas SA",
		Unit:            "bottle",
		WindowMinutes:   15,
	}
}

func emitOne(t *testing.T, store *fakeOutbox, intent events.Intent) uuid.UUID {
	t.Helper()
	sink := NewOutboxSink(store, func() time.Time { return testNow })
	if err := sink.Emit(context.Background(), intent); err != nil {
		t.Fatalf("emit: %v", err)
	}
	for id := range store.records {
		return id
	}
	t.Fatalf("expected an outbox row")
	return uuid.Nil
}

func TestOutboxSinkStoresAddressedRow(t *testing.T) {
	store := newFakeOutbox()
	buyerID, supplierID := uuid.New(), uuid.New()
	id := emitOne(t, store, outbidIntent(buyerID, supplierID))

	rec := store.records[id]
	if rec.BuyerID != buyerID || rec.RecipientID != supplierID {
		t.Fatalf("unexpected addressing: %+v", rec)
	}
	if rec.Kind != "bidding.notice.outbid" {
		t.Fatalf("expected outbid kind, got %s", rec.Kind)
	}
	if !rec.RunAt.Equal(testNow) {
		t.Fatalf("expected row due now, got %v", rec.RunAt)
	}
}

func TestDispatcherDeliversWithSupplierNumber(t *testing.T) {
	store := newFakeOutbox()
	buyerID, supplierID := uuid.New(), uuid.New()
	id := emitOne(t, store, outbidIntent(buyerID, supplierID))

	deliverer := &captureDeliverer{}
	d := NewDispatcher(store, deliverer, staticContacts{supplierID: "+5511987654321"}, func() time.Time { return testNow }, logger.Discard())
	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("process: %v", err)
	}

	if store.status(id) != outbox.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", store.status(id))
	}
	if len(deliverer.sent) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.sent))
	}
	msg := deliverer.sent[0]
	if msg.Phone != "+5511987654321" {
		t.Fatalf("expected supplier number, got %q", msg.Phone)
	}
	if !strings.Contains(msg.Text, "Aguas SA") || !strings.Contains(msg.Text, "9.50") {
		t.Fatalf("unexpected text %q", msg.Text)
	}

	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if len(deliverer.sent) != 1 {
		t.Fatalf("expected succeeded row to be skipped")
	}
}

func TestDispatcherSchedulesRetryWithBackoff(t *testing.T) {
	store := newFakeOutbox()
	buyerID := uuid.New()
	id := emitOne(t, store, events.BuyerClosureNotice{
		BaseEvent:     events.BaseAt(testNow),
		Recipient:     events.BuyerRecipient(buyerID),
		QuotationID:   uuid.New(),
		QuotationName: "Weekly restock",
		UpdatedItems:  2,
		TotalOffers:   5,
		Trigger:       "deadline",
	})

	d := NewDispatcher(store, &captureDeliverer{err: errors.New("channel down")}, nil, func() time.Time { return testNow }, logger.Discard())
	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("delivery failures must not surface, got %v", err)
	}
	if store.status(id) != outbox.StatusPending {
		t.Fatalf("expected pending for retry, got %s", store.status(id))
	}
	if want := testNow.Add(time.Minute); !store.runAt[id].Equal(want) {
		t.Fatalf("expected retry at %v, got %v", want, store.runAt[id])
	}

	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("process: %v", err)
	}
	if want := testNow.Add(2 * time.Minute); !store.runAt[id].Equal(want) {
		t.Fatalf("expected doubled delay, got %v", store.runAt[id])
	}
}

func TestDispatcherMarksFailedAfterMaxAttempts(t *testing.T) {
	store := newFakeOutbox()
	id := emitOne(t, store, outbidIntent(uuid.New(), uuid.New()))
	_ = store.set(id, func(r *outbox.Record) { r.Attempts = maxOutboxRetryAttempts - 1 })

	d := NewDispatcher(store, &captureDeliverer{err: errors.New("channel down")}, nil, nil, logger.Discard())
	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.status(id) != outbox.StatusFailed {
		t.Fatalf("expected failed, got %s", store.status(id))
	}
}

func TestDispatcherRejectsUnknownKind(t *testing.T) {
	store := newFakeOutbox()
	id := uuid.New()
	store.records[id] = outbox.Record{ID: id, Kind: "unknown.kind", Payload: []byte(`{}`), Status: outbox.StatusEnqueued}

	d := NewDispatcher(store, &captureDeliverer{}, nil, nil, logger.Discard())
	if err := d.ProcessDue(context.Background(), id); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.status(id) != outbox.StatusFailed {
		t.Fatalf("expected failed, got %s", store.status(id))
	}
	if !strings.HasPrefix(store.errors[id], invalidOutboxPayloadPrefix) {
		t.Fatalf("expected invalid payload error, got %q", store.errors[id])
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Minute},
		{attempt: 1, want: time.Minute},
		{attempt: 3, want: 4 * time.Minute},
		{attempt: 10, want: outboxRetryMaxDelay},
	}
	for _, tc := range cases {
		if got := computeOutboxRetryDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestRenderEveryIntentKind(t *testing.T) {
	buyerID, supplierID := uuid.New(), uuid.New()
	intents := []events.Intent{
		outbidIntent(buyerID, supplierID),
		events.QuantityVariationNotice{Recipient: events.BuyerRecipient(buyerID), Scenario: "excess", Offered: decimal.NewFromInt(30), Requested: decimal.NewFromInt(24), VariationPercentage: decimal.NewFromInt(25)},
		events.BuyerAdjustmentNotice{Recipient: events.SupplierRecipient(buyerID, supplierID), Packages: 2, UnitsPerPackage: 12, TotalPrice: decimal.NewFromInt(240)},
		events.CounterProposalReminder{Recipient: events.SupplierRecipient(buyerID, supplierID), MinutesRemaining: 5, WindowDeadline: testNow},
		events.QuotationInvitation{Recipient: events.SupplierRecipient(buyerID, supplierID), QuotationName: "Restock", Deadline: testNow, Products: 3},
		events.SupplierClosureNotice{Recipient: events.SupplierRecipient(buyerID, supplierID), QuotationName: "Restock"},
		events.BuyerClosureNotice{Recipient: events.BuyerRecipient(buyerID), QuotationName: "Restock", Trigger: "manual"},
	}
	if len(intents) != len(events.IntentNames) {
		t.Fatalf("expected a case per intent kind")
	}
	for _, intent := range intents {
		payload, err := json.Marshal(intent)
		if err != nil {
			t.Fatalf("marshal %s: %v", intent.EventName(), err)
		}
		msg, err := Render(intent.EventName(), payload)
		if err != nil {
			t.Fatalf("render %s: %v", intent.EventName(), err)
		}
		if msg.Text == "" || msg.Recipient != intent.Addressee() {
			t.Fatalf("render %s: unexpected message %+v", intent.EventName(), msg)
		}
	}
}

func TestRecorderFailOn(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("boom")
	rec.FailOn("bidding.notice.outbid", boom)

	if err := rec.Emit(context.Background(), outbidIntent(uuid.New(), uuid.New())); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := rec.Emit(context.Background(), events.SupplierClosureNotice{}); err != nil {
		t.Fatalf("expected other kinds to pass, got %v", err)
	}
	if rec.Count("quotations.notice.supplier_closure") != 1 || len(rec.Intents()) != 1 {
		t.Fatalf("expected exactly one recorded intent")
	}
}
