package service

import (
	"context"
	"fmt"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/internal/events"
	qdomain "procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StopQuoting removes all of the supplier's offers on a product and records
// that it stopped quoting it. Stopping is idempotent and cannot be undone.
func (s *Service) StopQuoting(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error {
	now := s.now()
	q, line, err := s.loadLine(ctx, quotationID, productID)
	if err != nil {
		return err
	}
	if !q.HasSupplier(supplierID) {
		return apperr.Forbidden(notInvitedMsg)
	}
	if q.Status.IsClosedOrConcluded() {
		return apperr.Gone("quotation is closed").WithReason(string(ReasonQuotationClosed))
	}

	if !line.IsStopped(supplierID) {
		if err := s.quotations.MarkStopped(ctx, quotationID, productID, supplierID); err != nil {
			return fmt.Errorf("mark supplier stopped: %w", err)
		}
	}
	if _, err := s.offers.DeleteBySupplier(ctx, quotationID, productID, supplierID); err != nil {
		return fmt.Errorf("delete supplier offers: %w", err)
	}

	remaining, err := s.offers.ListByProduct(ctx, quotationID, productID)
	if err != nil {
		return fmt.Errorf("list offers: %w", err)
	}
	board := domain.RankByBrand(remaining)
	s.reconcileSupplier(ctx, q, productID, supplierID, board, now)
	s.reconcileProduct(ctx, q, productID, remaining, now)
	s.publishBoardChange(ctx, quotationID, productID, supplierID, "supplier_stopped", now)
	return nil
}

// ConfirmDelivery records that the supplier can deliver on a line's date
// even though its schedule does not cover that weekday. It unblocks offering
// on the line and is a no-op when no confirmation is pending.
func (s *Service) ConfirmDelivery(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error {
	q, line, err := s.loadLine(ctx, quotationID, productID)
	if err != nil {
		return err
	}
	if !q.HasSupplier(supplierID) {
		return apperr.Forbidden(notInvitedMsg)
	}
	if q.Status.IsClosedOrConcluded() {
		return apperr.Gone("quotation is closed").WithReason(string(ReasonQuotationClosed))
	}
	if !line.NeedsDeliveryConfirmation(supplierID) {
		return nil
	}
	if err := s.quotations.AcknowledgeMismatch(ctx, quotationID, productID, supplierID); err != nil {
		return fmt.Errorf("acknowledge delivery mismatch: %w", err)
	}
	return nil
}

// WithdrawOffer removes a single brand offer while the quotation accepts
// offers.
func (s *Service) WithdrawOffer(ctx context.Context, quotationID, productID, supplierID, offerID uuid.UUID) error {
	now := s.now()
	q, _, err := s.loadLine(ctx, quotationID, productID)
	if err != nil {
		return err
	}
	offers, err := s.offers.ListByProduct(ctx, quotationID, productID)
	if err != nil {
		return fmt.Errorf("list offers: %w", err)
	}

	var target *domain.Offer
	for i := range offers {
		if offers[i].ID == offerID {
			target = &offers[i]
			break
		}
	}
	if target == nil {
		return apperr.NotFound(offerNotFoundMsg)
	}
	if target.SupplierID != supplierID {
		return apperr.Forbidden("offer belongs to another supplier")
	}

	board := domain.RankByBrand(offers)
	if s.evaluate(q, supplierID, board, now).LockedOut {
		return apperr.Forbidden("supplier is locked out of this product").WithReason(string(ReasonSupplierLockedOut))
	}
	if !q.AcceptsOffers(now) {
		return apperr.Gone("quotation is not accepting offers").WithReason(string(ReasonQuotationClosed))
	}

	if err := s.offers.Delete(ctx, offerID); err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}

	remaining := removeOffers(offers, func(o domain.Offer) bool { return o.ID != offerID })
	s.reconcileSupplier(ctx, q, productID, supplierID, domain.RankByBrand(remaining), now)
	s.reconcileProduct(ctx, q, productID, remaining, now)
	s.publishBoardChange(ctx, quotationID, productID, supplierID, "offer_withdrawn", now)
	return nil
}

// AdjustQuantityInput is the buyer's change to an offer's quantity.
type AdjustQuantityInput struct {
	BuyerID         uuid.UUID
	QuotationID     uuid.UUID
	ProductID       uuid.UUID
	OfferID         uuid.UUID
	Packages        int
	UnitsPerPackage int
}

// AdjustOfferQuantity applies a buyer's quantity change to an offer. The
// price per unit is kept and the total recomputed; the supplier is notified.
func (s *Service) AdjustOfferQuantity(ctx context.Context, in AdjustQuantityInput) (domain.Offer, []string, error) {
	now := s.now()
	q, line, err := s.loadLine(ctx, in.QuotationID, in.ProductID)
	if err != nil {
		return domain.Offer{}, nil, err
	}
	if q.BuyerID != in.BuyerID {
		return domain.Offer{}, nil, apperr.Forbidden("only the quotation owner can adjust offers")
	}
	if q.Status == qdomain.StatusConcluded {
		return domain.Offer{}, nil, apperr.Gone("quotation is concluded")
	}
	if in.Packages <= 0 || in.UnitsPerPackage <= 0 {
		return domain.Offer{}, nil, apperr.Validation("packages and units per package must be positive")
	}

	offer, err := s.offers.GetByID(ctx, in.OfferID)
	if err != nil {
		return domain.Offer{}, nil, err
	}
	if offer.QuotationID != in.QuotationID || offer.ProductID != in.ProductID {
		return domain.Offer{}, nil, apperr.NotFound(offerNotFoundMsg)
	}

	pricePerUnit := offer.PricePerUnit
	offer.Packages = in.Packages
	offer.UnitsPerPackage = in.UnitsPerPackage
	offer.TotalPrice = pricePerUnit.Mul(offer.OfferedQuantity()).Round(2)
	if !offer.TotalPrice.IsPositive() {
		offer.TotalPrice = decimal.New(1, -2)
	}
	offer.PricePerUnit = pricePerUnit
	offer.UpdatedAt = now

	stored, err := s.offers.Upsert(ctx, offer)
	if err != nil {
		return domain.Offer{}, nil, fmt.Errorf("upsert offer: %w", err)
	}

	failures := s.emit(ctx, []events.Intent{events.BuyerAdjustmentNotice{
		BaseEvent:       events.BaseAt(now),
		Recipient:       events.SupplierRecipient(q.BuyerID, stored.SupplierID),
		QuotationID:     q.ID,
		ProductID:       line.ID,
		ProductName:     line.Name,
		OfferID:         stored.ID,
		Brand:           stored.Brand,
		Packages:        stored.Packages,
		UnitsPerPackage: stored.UnitsPerPackage,
		TotalPrice:      stored.TotalPrice,
	}})
	s.publishBoardChange(ctx, q.ID, line.ID, stored.SupplierID, "buyer_adjustment", now)
	return stored, failures, nil
}
