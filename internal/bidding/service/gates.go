package service

import (
	"errors"
	"time"

	"procurement_backend/internal/bidding/domain"
	qdomain "procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

// undercutFactor is the highest share of the best competitor price an
// undercutting offer may have.
var undercutFactor = decimal.RequireFromString("0.99")

type gateInput struct {
	quotation qdomain.Quotation
	line      qdomain.Line
	board     domain.Leaderboard
	clock     domain.ClockResult
	draft     domain.Offer
	decision  *domain.Decision
	now       time.Time
}

type gateVerdict struct {
	result         SubmitResult
	offer          domain.Offer
	classification domain.Classification
	// suggestions are computed from the draft, before any decision.
	suggestions []domain.Suggestion
}

// runGates short-circuits on the first failing gate. The lockout check runs
// before the status check so a locked out supplier keeps getting
// SupplierLockedOut after the quotation closes.
func (s *Service) runGates(in gateInput) (gateVerdict, error) {
	supplierID := in.draft.SupplierID

	if in.clock.LockedOut {
		res := rejected(ReasonSupplierLockedOut)
		res.Window = in.clock.Window
		return gateVerdict{result: res}, nil
	}
	if !in.quotation.AcceptsOffers(in.now) {
		return gateVerdict{result: rejected(ReasonQuotationClosed)}, nil
	}

	if in.line.IsStopped(supplierID) {
		return gateVerdict{result: rejected(ReasonSupplierStopped)}, nil
	}
	if in.line.NeedsDeliveryConfirmation(supplierID) {
		return gateVerdict{result: rejected(ReasonDeliveryUnconfirmed)}, nil
	}

	if missing := in.draft.MissingFields(); len(missing) > 0 {
		res := rejected(ReasonIncompleteOffer)
		res.MissingFields = missing
		return gateVerdict{result: res}, nil
	}

	offer := in.draft
	classification := s.policy.Classify(in.line.Quantity, offer.OfferedQuantity())
	suggestions := domain.Suggestions(in.line.Quantity, offer)
	if classification.RequiresModal {
		if in.decision == nil {
			return gateVerdict{result: SubmitResult{
				Outcome:        OutcomeNeedsDecision,
				Reason:         ReasonNeedsQuantityDecision,
				Classification: &classification,
				Suggestions:    suggestions,
			}}, nil
		}
		decided, err := domain.ApplyDecision(offer, classification, *in.decision)
		switch {
		case errors.Is(err, domain.ErrInvalidCorrection):
			res := rejected(ReasonIncompleteOffer)
			res.Classification = &classification
			return gateVerdict{result: res}, nil
		case errors.Is(err, domain.ErrDecisionNotApplicable), errors.Is(err, domain.ErrUnknownDecision):
			return gateVerdict{}, apperr.Validation(err.Error()).WithDetails(classification)
		case err != nil:
			return gateVerdict{}, err
		}
		offer = decided
	}

	if competitor, ok := in.board.BestCompetitor(supplierID); ok {
		p := competitor.PricePerUnit
		floor := p.Mul(undercutFactor)
		if offer.PricePerUnit.LessThan(p) && offer.PricePerUnit.GreaterThan(floor) {
			res := rejected(ReasonInsufficientUndercut)
			res.CompetitorPrice = &p
			res.MaxAcceptedPrice = &floor
			return gateVerdict{result: res}, nil
		}
	}

	for _, other := range in.board.Offers() {
		if other.SupplierID != supplierID && other.PricePerUnit.Equal(offer.PricePerUnit) {
			res := rejected(ReasonDuplicatePrice)
			price := other.PricePerUnit
			res.CompetitorPrice = &price
			return gateVerdict{result: res}, nil
		}
	}

	return gateVerdict{
		result:         SubmitResult{Outcome: OutcomeAccepted},
		offer:          offer,
		classification: classification,
		suggestions:    suggestions,
	}, nil
}
