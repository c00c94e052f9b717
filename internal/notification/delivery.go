package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/notification/outbox"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// OutboxStore is the part of the outbox repository the delivery side needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// ContactDirectory resolves the WhatsApp number of a supplier.
type ContactDirectory interface {
	WhatsAppContact(ctx context.Context, buyerID, supplierID uuid.UUID) (string, error)
}

// Deliverer hands a rendered message to a channel.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogDeliverer writes messages to the application log with a click-to-chat
// link when the recipient has a number.
type LogDeliverer struct {
	log *logger.Logger
}

func NewLogDeliverer(log *logger.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) Deliver(_ context.Context, msg Message) error {
	d.log.Info("notification delivered",
		"kind", msg.Kind,
		"audience", string(msg.Recipient.Audience),
		"recipientId", msg.Recipient.RecipientID.String(),
		"whatsappLink", phone.WhatsAppLink(msg.Phone),
		"text", msg.Text,
	)
	return nil
}

// Dispatcher delivers due outbox rows and schedules retries with
// exponential backoff.
type Dispatcher struct {
	store     OutboxStore
	deliverer Deliverer
	contacts  ContactDirectory
	now       func() time.Time
	log       *logger.Logger
}

func NewDispatcher(store OutboxStore, deliverer Deliverer, contacts ContactDirectory, now func() time.Time, log *logger.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{store: store, deliverer: deliverer, contacts: contacts, now: now, log: log}
}

// ProcessDue delivers one outbox row. Delivery failures are retried through
// the outbox and do not surface as errors; only bookkeeping failures do.
func (d *Dispatcher) ProcessDue(ctx context.Context, outboxID uuid.UUID) error {
	rec, process, err := d.prepare(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			d.log.Error("failed to prepare outbox record", "outboxId", outboxID.String(), "error", err)
		}
		return err
	}

	msg, err := Render(rec.Kind, rec.Payload)
	if err != nil {
		_ = d.store.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		d.log.Warn("notification outbox payload rejected", "outboxId", rec.ID.String(), "kind", rec.Kind, "error", err)
		return nil
	}

	if msg.Recipient.Audience == events.AudienceSupplier && d.contacts != nil {
		number, err := d.contacts.WhatsAppContact(ctx, rec.BuyerID, rec.RecipientID)
		if err != nil {
			d.handleDeliveryError(ctx, rec, fmt.Errorf("resolve contact: %w", err))
			return nil
		}
		msg.Phone = number
	}

	if err := d.deliverer.Deliver(ctx, msg); err != nil {
		d.handleDeliveryError(ctx, rec, err)
		return nil
	}
	if err := d.store.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	d.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind)
	return nil
}

func (d *Dispatcher) prepare(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := d.store.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		d.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID.String(), "status", string(rec.Status))
		return rec, false, nil
	}
	if err := d.store.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (d *Dispatcher) handleDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = d.store.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		d.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := d.now().UTC().Add(computeOutboxRetryDelay(attempt))
	msg := deliveryErr.Error()
	if err := d.store.MarkPending(ctx, rec.ID, retryAt, &msg); err != nil {
		_ = d.store.MarkFailed(ctx, rec.ID, msg)
		d.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", errors.Join(deliveryErr, err),
		)
		return
	}

	d.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"kind", rec.Kind,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}
