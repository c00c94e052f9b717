// Package service implements the competitive bidding engine: the submission
// gates, offer acceptance and the supplier and buyer views derived from the
// current offers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"procurement_backend/internal/bidding/domain"
	"procurement_backend/internal/events"
	qdomain "procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	quotationNotFoundMsg = "quotation not found"
	productNotFoundMsg   = "product not found in quotation"
	offerNotFoundMsg     = "offer not found"
	notInvitedMsg        = "supplier is not invited to this quotation"
)

// Options tunes the engine.
type Options struct {
	Policy               domain.QuantityPolicy
	DefaultWindowMinutes int
	Now                  func() time.Time
}

// Service is the bidding engine.
type Service struct {
	offers     OfferStore
	quotations QuotationReader
	suppliers  SupplierDirectory
	sink       NotificationSink
	reminders  ReminderReconciler
	bus        events.Bus
	log        *logger.Logger

	policy        domain.QuantityPolicy
	windowMinutes int
	now           func() time.Time
}

// New creates the bidding engine.
func New(offers OfferStore, quotations QuotationReader, suppliers SupplierDirectory, sink NotificationSink, reminders ReminderReconciler, bus events.Bus, log *logger.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultWindowMinutes <= 0 {
		opts.DefaultWindowMinutes = domain.DefaultCounterProposalMinutes
	}
	if opts.Policy.AdequateTolerance.IsZero() && opts.Policy.VeryInsufficient.IsZero() {
		opts.Policy = domain.DefaultQuantityPolicy()
	}
	return &Service{
		offers:        offers,
		quotations:    quotations,
		suppliers:     suppliers,
		sink:          sink,
		reminders:     reminders,
		bus:           bus,
		log:           log,
		policy:        opts.Policy,
		windowMinutes: opts.DefaultWindowMinutes,
		now:           opts.Now,
	}
}

// Submit runs a draft offer through the gates. A quantity deviation that
// needs the supplier's input suspends the submission with NeedsDecision.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	return s.submit(ctx, in)
}

// Resume re-runs a suspended submission with the supplier's decision.
func (s *Service) Resume(ctx context.Context, in SubmitInput, decision domain.Decision) (SubmitResult, error) {
	in.Decision = &decision
	return s.submit(ctx, in)
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	now := s.now()

	q, line, err := s.loadLine(ctx, in.QuotationID, in.ProductID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !q.HasSupplier(in.SupplierID) {
		return SubmitResult{}, apperr.Forbidden(notInvitedMsg)
	}

	offers, err := s.offers.ListByProduct(ctx, in.QuotationID, in.ProductID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("list offers: %w", err)
	}
	board := domain.RankByBrand(offers)
	clock := s.evaluate(q, in.SupplierID, board, now)

	draft := domain.Offer{
		QuotationID:          in.QuotationID,
		ProductID:            in.ProductID,
		SupplierID:           in.SupplierID,
		Brand:                in.Brand,
		PackagingDescription: in.PackagingDescription,
		Packages:             in.Packages,
		UnitsPerPackage:      in.UnitsPerPackage,
		UnitWeight:           in.UnitWeight,
		TotalPrice:           in.TotalPrice,
	}.Normalize(line.Unit.IsCount())

	verdict, err := s.runGates(gateInput{
		quotation: q,
		line:      line,
		board:     board,
		clock:     clock,
		draft:     draft,
		decision:  in.Decision,
		now:       now,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if verdict.result.Outcome != OutcomeAccepted {
		s.log.OfferDecision(in.QuotationID.String(), in.ProductID.String(), in.SupplierID.String(), string(verdict.result.Outcome), string(verdict.result.Reason))
		return verdict.result, nil
	}

	return s.accept(ctx, q, line, offers, board, verdict, now)
}

func (s *Service) accept(ctx context.Context, q qdomain.Quotation, line qdomain.Line, offers []domain.Offer, board domain.Leaderboard, verdict gateVerdict, now time.Time) (SubmitResult, error) {
	offer := verdict.offer
	offer.ID = uuid.New()
	offer.CreatedAt = now
	for _, existing := range offers {
		if existing.SupplierID == offer.SupplierID && existing.BrandKey() == offer.BrandKey() {
			offer.ID = existing.ID
			offer.CreatedAt = existing.CreatedAt
			break
		}
	}
	offer.UpdatedAt = now
	offer.SupplierName = s.supplierName(ctx, offer.SupplierID)

	stored, err := s.offers.Upsert(ctx, offer)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert offer: %w", err)
	}

	after := replaceOffer(offers, stored)
	afterBoard := domain.RankByBrand(after)

	var intents []events.Intent
	if previous, ok := board.Leader(); ok &&
		previous.SupplierID != stored.SupplierID &&
		stored.PricePerUnit.LessThan(previous.PricePerUnit) {
		intents = append(intents, events.OutbidNotice{
			BaseEvent:       events.BaseAt(now),
			Recipient:       events.SupplierRecipient(q.BuyerID, previous.SupplierID),
			QuotationID:     q.ID,
			ProductID:       line.ID,
			ProductName:     line.Name,
			OutbidBrand:     previous.Brand,
			NewPrice:        stored.PricePerUnit,
			NewBrand:        stored.Brand,
			NewSupplierName: stored.SupplierName,
			Unit:            string(line.Unit),
			WindowMinutes:   q.WindowMinutes(s.windowMinutes),
		})
	}
	if c := verdict.classification; c.Scenario.NotifiesBuyer() {
		intents = append(intents, quantityVariationNotice(q, line, stored, c, verdict.suggestions, now))
	}

	result := SubmitResult{
		Outcome:  OutcomeAccepted,
		Offer:    &stored,
		IsLeader: afterBoard.IsLeader(stored.SupplierID),
	}
	if verdict.classification.Scenario != "" {
		c := verdict.classification
		result.Classification = &c
	}
	result.NotificationErrors = s.emit(ctx, intents)

	s.log.OfferDecision(q.ID.String(), line.ID.String(), stored.SupplierID.String(), string(OutcomeAccepted), "")
	s.publishBoardChange(ctx, q.ID, line.ID, stored.SupplierID, "offer_accepted", now)
	s.reconcileProduct(ctx, q, line.ID, after, now)
	return result, nil
}

func (s *Service) loadLine(ctx context.Context, quotationID, productID uuid.UUID) (qdomain.Quotation, qdomain.Line, error) {
	q, err := s.quotations.Get(ctx, quotationID)
	if err != nil {
		return qdomain.Quotation{}, qdomain.Line{}, err
	}
	line, ok := q.Line(productID)
	if !ok {
		return qdomain.Quotation{}, qdomain.Line{}, apperr.NotFound(productNotFoundMsg)
	}
	return q, line, nil
}

func (s *Service) evaluate(q qdomain.Quotation, supplierID uuid.UUID, board domain.Leaderboard, now time.Time) domain.ClockResult {
	return domain.EvaluateCounterProposal(domain.ClockInput{
		SupplierID:    supplierID,
		Leaderboard:   board,
		WindowMinutes: q.WindowMinutes(s.windowMinutes),
		QuotationOpen: q.AcceptsOffers(now),
		Now:           now,
	})
}

func (s *Service) supplierName(ctx context.Context, supplierID uuid.UUID) string {
	if s.suppliers == nil {
		return ""
	}
	name, err := s.suppliers.DisplayName(ctx, supplierID)
	if err != nil {
		s.log.Warn("supplier name lookup failed", slog.String("supplier_id", supplierID.String()), slog.String("error", err.Error()))
		return ""
	}
	return name
}

// emit dispatches intents after the state change and reports failures
// without failing the operation.
func (s *Service) emit(ctx context.Context, intents []events.Intent) []string {
	if s.sink == nil {
		return nil
	}
	var failures []string
	for _, intent := range intents {
		if err := s.sink.Emit(ctx, intent); err != nil {
			s.log.NotificationFailed(intent.EventName(), intent.Addressee().RecipientID.String(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", intent.EventName(), err))
		}
	}
	return failures
}

func (s *Service) publishBoardChange(ctx context.Context, quotationID, productID, supplierID uuid.UUID, change string, now time.Time) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.OfferBoardChanged{
		BaseEvent:   events.BaseAt(now),
		QuotationID: quotationID,
		ProductID:   productID,
		SupplierID:  supplierID,
		Change:      change,
	})
}

// quantityVariationNotice reports the classified draft quantity. When a
// decision changed what was stored, the stored quantity rides along as
// AdjustedQuantity.
func quantityVariationNotice(q qdomain.Quotation, line qdomain.Line, stored domain.Offer, c domain.Classification, suggestions []domain.Suggestion, now time.Time) events.QuantityVariationNotice {
	notice := events.QuantityVariationNotice{
		BaseEvent:           events.BaseAt(now),
		Recipient:           events.BuyerRecipient(q.BuyerID),
		QuotationID:         q.ID,
		ProductID:           line.ID,
		ProductName:         line.Name,
		SupplierID:          stored.SupplierID,
		SupplierName:        stored.SupplierName,
		Brand:               stored.Brand,
		Scenario:            string(c.Scenario),
		VariationType:       string(c.VariationType),
		Requested:           c.Requested,
		Offered:             c.Offered,
		VariationPercentage: c.VariationPercentage,
		Decision:            string(stored.QuantityDecision),
	}
	if adjusted := stored.OfferedQuantity(); !adjusted.Equal(c.Offered) {
		notice.AdjustedQuantity = &adjusted
	}
	for _, suggestion := range suggestions {
		notice.Suggestions = append(notice.Suggestions, events.PackageSuggestion{
			Packages:   suggestion.Packages,
			Quantity:   suggestion.Quantity,
			TotalPrice: suggestion.TotalPrice,
		})
	}
	return notice
}

func replaceOffer(offers []domain.Offer, offer domain.Offer) []domain.Offer {
	out := make([]domain.Offer, 0, len(offers)+1)
	replaced := false
	for _, existing := range offers {
		if existing.ID == offer.ID {
			out = append(out, offer)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, offer)
	}
	return out
}

func removeOffers(offers []domain.Offer, keep func(domain.Offer) bool) []domain.Offer {
	out := make([]domain.Offer, 0, len(offers))
	for _, offer := range offers {
		if keep(offer) {
			out = append(out, offer)
		}
	}
	return out
}
