package service

import (
	"context"
	"fmt"

	"procurement_backend/internal/events"
	"procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/quotations/repository"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
)

// Close closes a quotation on its owner's request. Closing an already
// closed or concluded quotation succeeds with no updated items.
func (s *Service) Close(ctx context.Context, buyerID, id uuid.UUID) (CloseResult, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return CloseResult{}, err
	}
	if q.BuyerID != buyerID {
		return CloseResult{}, apperr.Forbidden("only the quotation owner can close it")
	}
	if q.Status.IsClosedOrConcluded() {
		return CloseResult{QuotationID: id, AlreadyClosed: true}, nil
	}
	return s.claimClose(ctx, q, []domain.Status{domain.StatusOpen, domain.StatusPaused}, repository.TriggerManual)
}

// AutoClose closes an open quotation whose deadline has passed. It is safe
// to call concurrently: only one caller performs the closing effects.
func (s *Service) AutoClose(ctx context.Context, id uuid.UUID) (CloseResult, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return CloseResult{}, err
	}
	if q.Status.IsClosedOrConcluded() {
		return CloseResult{QuotationID: id, AlreadyClosed: true}, nil
	}
	if !q.IsExpired(s.now()) {
		return CloseResult{QuotationID: id, NotDue: true}, nil
	}
	return s.claimClose(ctx, q, []domain.Status{domain.StatusOpen}, repository.TriggerDeadline)
}

// SweepExpired auto-closes every open quotation past its deadline and
// returns how many closes this call claimed.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpiredOpen(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired quotations: %w", err)
	}
	closed := 0
	for _, id := range ids {
		res, err := s.AutoClose(ctx, id)
		if err != nil {
			s.log.Warn("sweep auto-close failed", "quotation_id", id.String(), "error", err)
			continue
		}
		if !res.AlreadyClosed && !res.NotDue {
			closed++
		}
	}
	return closed, nil
}

func (s *Service) claimClose(ctx context.Context, q domain.Quotation, from []domain.Status, trigger repository.CloseTrigger) (CloseResult, error) {
	now := s.now()
	claim, err := s.store.ClaimClose(ctx, q.ID, from, now)
	if err != nil {
		return CloseResult{}, fmt.Errorf("claim close: %w", err)
	}
	if !claim.Claimed {
		return CloseResult{QuotationID: q.ID, AlreadyClosed: true}, nil
	}

	result := CloseResult{QuotationID: q.ID, UpdatedItems: claim.UpdatedItems}
	if s.offers != nil {
		total, err := s.offers.CountByQuotation(ctx, q.ID)
		if err != nil {
			s.log.Warn("count offers at close failed", "quotation_id", q.ID.String(), "error", err)
		}
		result.TotalOffers = total
	}
	if err := s.store.RecordClosureSummary(ctx, q.ID, repository.ClosureSummary{
		ClosedAt:    now,
		Trigger:     trigger,
		TotalOffers: result.TotalOffers,
		ClosedItems: claim.UpdatedItems,
	}); err != nil {
		s.log.Warn("record closure summary failed", "quotation_id", q.ID.String(), "error", err)
	}

	closed := claim.Quotation
	intents := make([]events.Intent, 0, len(closed.SupplierIDs)+1)
	for _, supplierID := range closed.SupplierIDs {
		intents = append(intents, events.SupplierClosureNotice{
			BaseEvent:     events.BaseAt(now),
			Recipient:     events.SupplierRecipient(closed.BuyerID, supplierID),
			QuotationID:   closed.ID,
			QuotationName: closed.Name,
		})
	}
	intents = append(intents, events.BuyerClosureNotice{
		BaseEvent:     events.BaseAt(now),
		Recipient:     events.BuyerRecipient(closed.BuyerID),
		QuotationID:   closed.ID,
		QuotationName: closed.Name,
		UpdatedItems:  claim.UpdatedItems,
		TotalOffers:   result.TotalOffers,
		Trigger:       string(trigger),
	})
	result.NotificationErrors = s.fanOut(ctx, intents)

	s.log.QuotationClosed(closed.ID.String(), string(trigger), claim.UpdatedItems)
	s.publishStatus(ctx, closed, q.Status)
	return result, nil
}
