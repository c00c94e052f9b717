package service

import (
	"context"
	"time"

	"procurement_backend/internal/events"
	"procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/quotations/repository"

	"github.com/google/uuid"
)

// Store persists quotations. Implemented by repository.Repository and
// repository.MemoryStore.
type Store interface {
	Create(ctx context.Context, q domain.Quotation) (domain.Quotation, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Quotation, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status, deadline *time.Time) (domain.Quotation, bool, error)
	ClaimClose(ctx context.Context, id uuid.UUID, from []domain.Status, now time.Time) (repository.ClaimResult, error)
	RecordClosureSummary(ctx context.Context, id uuid.UUID, summary repository.ClosureSummary) error
	ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	MarkStopped(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error
}

// OfferCounter counts the offers of a quotation for the closure summary.
type OfferCounter interface {
	CountByQuotation(ctx context.Context, quotationID uuid.UUID) (int, error)
}

// DeadlineScheduler schedules the auto-close check of a quotation.
type DeadlineScheduler interface {
	ScheduleAutoClose(ctx context.Context, quotationID uuid.UUID, at time.Time) error
}

// NotificationSink delivers notification intents.
type NotificationSink interface {
	Emit(ctx context.Context, intent events.Intent) error
}

// SupplierDirectory verifies that invited suppliers belong to the buyer and
// knows their delivery days.
type SupplierDirectory interface {
	EnsureOwned(ctx context.Context, buyerID uuid.UUID, supplierIDs []uuid.UUID) error
	DeliveryDays(ctx context.Context, buyerID, supplierID uuid.UUID) ([]time.Weekday, error)
}
