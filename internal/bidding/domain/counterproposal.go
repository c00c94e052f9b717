package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCounterProposalMinutes applies when a quotation sets no window.
const DefaultCounterProposalMinutes = 15

// Window is the counter-proposal window of an outbid supplier.
type Window struct {
	Deadline      time.Time       `json:"deadline"`
	LeadingBrand  string          `json:"leadingBrand"`
	LeaderPrice   decimal.Decimal `json:"leaderPrice"`
	OwnBrand      string          `json:"ownBrand"`
	OwnPrice      decimal.Decimal `json:"ownPrice"`
	AnchorOfferID uuid.UUID       `json:"anchorOfferId"`
	Minutes       int             `json:"minutes"`
	Expired       bool            `json:"expired"`
}

// Remaining returns the time left before the window deadline.
func (w Window) Remaining(now time.Time) time.Duration {
	if !now.Before(w.Deadline) {
		return 0
	}
	return w.Deadline.Sub(now)
}

// ClockInput is everything the counter-proposal clock needs for one
// supplier on one product.
type ClockInput struct {
	SupplierID    uuid.UUID
	Leaderboard   Leaderboard
	WindowMinutes int
	// QuotationOpen is true while the quotation is Aberta and before its deadline.
	QuotationOpen bool
	Now           time.Time
}

// ClockResult is the window (if any) and whether the supplier is locked out.
type ClockResult struct {
	Window    *Window `json:"window,omitempty"`
	LockedOut bool    `json:"lockedOut"`
}

// Active reports whether the supplier is inside a running window.
func (r ClockResult) Active() bool {
	return r.Window != nil && !r.Window.Expired
}

// EvaluateCounterProposal derives the supplier's window from the anchor
// offer, the most recently updated competitor offer at the leader price.
func EvaluateCounterProposal(in ClockInput) ClockResult {
	own, ok := in.Leaderboard.BestFor(in.SupplierID)
	if !ok {
		return ClockResult{}
	}
	leader, ok := in.Leaderboard.Leader()
	if !ok || own.PricePerUnit.LessThanOrEqual(leader.PricePerUnit) {
		return ClockResult{}
	}

	anchor, ok := anchorOffer(in.Leaderboard, in.SupplierID, leader.PricePerUnit)
	if !ok {
		return ClockResult{}
	}

	minutes := in.WindowMinutes
	if minutes <= 0 {
		minutes = DefaultCounterProposalMinutes
	}
	window := &Window{
		Deadline:      anchor.UpdatedAt.Add(time.Duration(minutes) * time.Minute),
		LeadingBrand:  leader.Brand,
		LeaderPrice:   leader.PricePerUnit,
		OwnBrand:      own.Brand,
		OwnPrice:      own.PricePerUnit,
		AnchorOfferID: anchor.ID,
		Minutes:       minutes,
	}

	if in.Now.Before(window.Deadline) {
		return ClockResult{Window: window}
	}

	window.Expired = true
	locked := in.Leaderboard.PricedSuppliers() > 1 && !in.QuotationOpen
	return ClockResult{Window: window, LockedOut: locked}
}

func anchorOffer(lb Leaderboard, supplierID uuid.UUID, leaderPrice decimal.Decimal) (Offer, bool) {
	var anchor Offer
	found := false
	for _, offer := range lb.offers {
		if offer.SupplierID == supplierID || !offer.PricePerUnit.Equal(leaderPrice) {
			continue
		}
		if !found || offer.UpdatedAt.After(anchor.UpdatedAt) {
			anchor = offer
			found = true
		}
	}
	return anchor, found
}
