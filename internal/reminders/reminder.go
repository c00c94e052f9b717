// Package reminders schedules one single-shot reminder per active
// counter-proposal window, fired at a share of the window before it ends.
package reminders

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/events"

	"github.com/google/uuid"
)

// Key identifies the pending reminder of one supplier brand on one product.
type Key struct {
	QuotationID uuid.UUID `json:"quotationId"`
	ProductID   uuid.UUID `json:"productId"`
	SupplierID  uuid.UUID `json:"supplierId"`
	Brand       string    `json:"brand"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.QuotationID, k.ProductID, k.SupplierID, k.Brand)
}

// ActiveWindow is a running counter-proposal window of a supplier.
type ActiveWindow struct {
	QuotationID        uuid.UUID
	ProductID          uuid.UUID
	BuyerID            uuid.UUID
	Brand              string
	Deadline           time.Time
	WindowMinutes      int
	ReminderPercentage int
}

// Scope limits a reconciliation to one supplier on one quotation. A nil
// ProductID covers every product of the quotation.
type Scope struct {
	SupplierID  uuid.UUID
	QuotationID uuid.UUID
	ProductID   uuid.UUID
}

func (s Scope) covers(k Key) bool {
	if k.SupplierID != s.SupplierID || k.QuotationID != s.QuotationID {
		return false
	}
	return s.ProductID == uuid.Nil || s.ProductID == k.ProductID
}

// Reminder is a scheduled callback.
type Reminder struct {
	Key      Key       `json:"key"`
	BuyerID  uuid.UUID `json:"buyerId"`
	FireAt   time.Time `json:"fireAt"`
	Deadline time.Time `json:"deadline"`
}

// ID is stable for a given key and window deadline.
func (r Reminder) ID() string {
	return fmt.Sprintf("reminder:%s:%d", r.Key, r.Deadline.Unix())
}

// FireTime returns deadline − window × pct / 100.
func FireTime(deadline time.Time, windowMinutes, percentage int) time.Time {
	lead := time.Duration(windowMinutes) * time.Minute * time.Duration(percentage) / 100
	return deadline.Add(-lead)
}

// FireFunc is invoked by a backend when a reminder is due.
type FireFunc func(ctx context.Context, r Reminder) error

// Backend holds delayed one-shot callbacks.
type Backend interface {
	Schedule(ctx context.Context, r Reminder, fire FireFunc) error
	Cancel(ctx context.Context, r Reminder) error
}

// Ledger records fired (key, deadline) pairs so a window is reminded once.
type Ledger interface {
	// MarkFired returns true only for the first caller of a pair.
	MarkFired(ctx context.Context, r Reminder) (bool, error)
	WasFired(ctx context.Context, r Reminder) (bool, error)
}

// Sink receives reminder intents.
type Sink interface {
	Emit(ctx context.Context, intent events.Intent) error
}
