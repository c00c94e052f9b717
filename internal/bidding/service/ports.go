package service

import (
	"context"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/internal/events"
	qdomain "procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/reminders"

	"github.com/google/uuid"
)

// OfferStore persists offers keyed by (quotation, product, supplier, brand).
type OfferStore interface {
	ListByProduct(ctx context.Context, quotationID, productID uuid.UUID) ([]domain.Offer, error)
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]domain.Offer, error)
	GetByID(ctx context.Context, offerID uuid.UUID) (domain.Offer, error)
	Upsert(ctx context.Context, offer domain.Offer) (domain.Offer, error)
	Delete(ctx context.Context, offerID uuid.UUID) error
	DeleteBySupplier(ctx context.Context, quotationID, productID, supplierID uuid.UUID) (int, error)
}

// QuotationReader is the part of the quotation store the engine needs.
type QuotationReader interface {
	Get(ctx context.Context, quotationID uuid.UUID) (qdomain.Quotation, error)
	MarkStopped(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error
	AcknowledgeMismatch(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error
}

// SupplierDirectory resolves supplier display names.
type SupplierDirectory interface {
	DisplayName(ctx context.Context, supplierID uuid.UUID) (string, error)
}

// NotificationSink delivers notification intents.
type NotificationSink interface {
	Emit(ctx context.Context, intent events.Intent) error
}

// ReminderReconciler keeps reminders aligned with active windows.
type ReminderReconciler interface {
	Reconcile(ctx context.Context, scope reminders.Scope, windows []reminders.ActiveWindow)
}
