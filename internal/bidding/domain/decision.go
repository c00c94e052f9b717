package domain

import (
	"github.com/shopspring/decimal"
)

// DecisionKind is the supplier's answer to a quantity deviation.
type DecisionKind string

const (
	DecisionStockShortage       DecisionKind = "stock_shortage"
	DecisionRequestApproval     DecisionKind = "request_approval"
	DecisionTypingError         DecisionKind = "typing_error"
	DecisionSendExcess          DecisionKind = "send_excess"
	DecisionAdjustToRequest     DecisionKind = "adjust_to_request"
	DecisionBuyerApprovalExcess DecisionKind = "buyer_approval_excess"
)

// Correction carries the figures of a typing_error decision. Nil fields keep
// the submitted value.
type Correction struct {
	Packages        *int             `json:"packages,omitempty"`
	UnitsPerPackage *int             `json:"unitsPerPackage,omitempty"`
	UnitWeight      *decimal.Decimal `json:"unitWeight,omitempty"`
	TotalPrice      *decimal.Decimal `json:"totalPrice,omitempty"`
}

// Decision resumes a submission suspended on a quantity deviation.
type Decision struct {
	Kind      DecisionKind `json:"kind"`
	Corrected *Correction  `json:"corrected,omitempty"`
}

func (k DecisionKind) appliesTo(t VariationType) bool {
	switch k {
	case DecisionStockShortage, DecisionRequestApproval:
		return t == VariationUnder
	case DecisionSendExcess, DecisionBuyerApprovalExcess:
		return t == VariationOver
	case DecisionAdjustToRequest, DecisionTypingError:
		return true
	default:
		return false
	}
}

// ApplyDecision returns the offer as it will be stored after the decision.
// Figures are re-validated structurally only; the quantity is not
// re-classified.
func ApplyDecision(offer Offer, c Classification, d Decision) (Offer, error) {
	switch d.Kind {
	case DecisionStockShortage, DecisionRequestApproval, DecisionTypingError,
		DecisionSendExcess, DecisionAdjustToRequest, DecisionBuyerApprovalExcess:
	default:
		return offer, ErrUnknownDecision
	}
	if !d.Kind.appliesTo(c.VariationType) {
		return offer, ErrDecisionNotApplicable
	}

	out := offer
	out.QuantityDecision = d.Kind

	switch d.Kind {
	case DecisionAdjustToRequest:
		perPackage := offer.PackageQuantity()
		if !perPackage.IsPositive() || offer.Packages <= 0 || !c.Requested.IsPositive() {
			return offer, ErrInvalidCorrection
		}
		packages := c.Requested.Div(perPackage).Ceil().IntPart()
		pricePerPackage := offer.TotalPrice.Div(decimal.NewFromInt(int64(offer.Packages)))
		out.Packages = int(packages)
		out.TotalPrice = pricePerPackage.Mul(decimal.NewFromInt(packages)).Round(2)
	case DecisionTypingError:
		if d.Corrected == nil {
			return offer, ErrInvalidCorrection
		}
		fix := d.Corrected
		if fix.Packages != nil {
			out.Packages = *fix.Packages
		}
		if fix.UnitsPerPackage != nil {
			out.UnitsPerPackage = *fix.UnitsPerPackage
		}
		if fix.UnitWeight != nil {
			out.UnitWeight = *fix.UnitWeight
		}
		if fix.TotalPrice != nil {
			out.TotalPrice = *fix.TotalPrice
		}
	}

	if out.Packages <= 0 || out.UnitsPerPackage <= 0 || !out.UnitWeight.IsPositive() || !out.TotalPrice.IsPositive() {
		return offer, ErrInvalidCorrection
	}
	out.PricePerUnit = DerivePricePerUnit(out.TotalPrice, out.Packages, out.UnitsPerPackage, out.UnitWeight)
	return out, nil
}
