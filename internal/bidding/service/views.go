package service

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/bidding/domain"
	qdomain "procurement_backend/internal/quotations/domain"
	"procurement_backend/internal/reminders"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BoardEntry is a brand winner as shown to suppliers.
type BoardEntry struct {
	Brand        string          `json:"brand"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Own          bool            `json:"own"`
}

// ProductView is one requested line from a supplier's point of view.
// DeliveryUnconfirmed stays set until the supplier confirms a delivery date
// outside its schedule.
type ProductView struct {
	Line                qdomain.Line   `json:"line"`
	Board               []BoardEntry   `json:"board"`
	OwnOffers           []domain.Offer `json:"ownOffers"`
	IsLeader            bool           `json:"isLeader"`
	Window              *domain.Window `json:"window,omitempty"`
	LockedOut           bool           `json:"lockedOut"`
	Stopped             bool           `json:"stopped"`
	DeliveryUnconfirmed bool           `json:"deliveryUnconfirmed"`
	OfferDisabled       bool           `json:"offerDisabled"`
}

// SupplierQuotationView is the supplier portal page of a quotation.
type SupplierQuotationView struct {
	QuotationID uuid.UUID      `json:"quotationId"`
	Name        string         `json:"name"`
	Status      qdomain.Status `json:"status"`
	Deadline    time.Time      `json:"deadline"`
	Open        bool           `json:"open"`
	Products    []ProductView  `json:"products"`
}

// LeaderboardView is the buyer's view of one product.
type LeaderboardView struct {
	Line    qdomain.Line   `json:"line"`
	Leader  *domain.Offer  `json:"leader,omitempty"`
	Winners []domain.Offer `json:"winners"`
	Offers  []domain.Offer `json:"offers"`
}

// SupplierView derives every product's board, window and blocking flags for
// one supplier and reconciles the supplier's reminders with the windows.
func (s *Service) SupplierView(ctx context.Context, quotationID, supplierID uuid.UUID) (SupplierQuotationView, error) {
	now := s.now()
	q, err := s.quotations.Get(ctx, quotationID)
	if err != nil {
		return SupplierQuotationView{}, err
	}
	if !q.HasSupplier(supplierID) {
		return SupplierQuotationView{}, apperr.Forbidden(notInvitedMsg)
	}

	all, err := s.offers.ListByQuotation(ctx, quotationID)
	if err != nil {
		return SupplierQuotationView{}, fmt.Errorf("list offers: %w", err)
	}
	byProduct := groupByProduct(all)

	view := SupplierQuotationView{
		QuotationID: q.ID,
		Name:        q.Name,
		Status:      q.Status,
		Deadline:    q.Deadline,
		Open:        q.AcceptsOffers(now),
		Products:    make([]ProductView, 0, len(q.Lines)),
	}
	var windows []reminders.ActiveWindow
	for _, line := range q.Lines {
		offers := byProduct[line.ID]
		board := domain.RankByBrand(offers)
		clock := s.evaluate(q, supplierID, board, now)

		pv := ProductView{
			Line:                line,
			IsLeader:            board.IsLeader(supplierID),
			Window:              clock.Window,
			LockedOut:           clock.LockedOut,
			Stopped:             line.IsStopped(supplierID),
			DeliveryUnconfirmed: line.NeedsDeliveryConfirmation(supplierID),
			OwnOffers:           []domain.Offer{},
		}
		pv.OfferDisabled = !view.Open || pv.LockedOut || pv.Stopped || pv.DeliveryUnconfirmed
		for _, winner := range board.Winners() {
			pv.Board = append(pv.Board, BoardEntry{
				Brand:        winner.Brand,
				PricePerUnit: winner.PricePerUnit,
				Own:          winner.SupplierID == supplierID,
			})
		}
		for _, offer := range offers {
			if offer.SupplierID == supplierID {
				pv.OwnOffers = append(pv.OwnOffers, offer)
			}
		}
		if clock.Active() && view.Open {
			windows = append(windows, activeWindow(q, line.ID, *clock.Window))
		}
		view.Products = append(view.Products, pv)
	}

	if s.reminders != nil {
		s.reminders.Reconcile(ctx, reminders.Scope{SupplierID: supplierID, QuotationID: q.ID}, windows)
	}
	return view, nil
}

// ProductLeaderboard returns the ranking of one product to the quotation's
// buyer.
func (s *Service) ProductLeaderboard(ctx context.Context, buyerID, quotationID, productID uuid.UUID) (LeaderboardView, error) {
	q, line, err := s.loadLine(ctx, quotationID, productID)
	if err != nil {
		return LeaderboardView{}, err
	}
	if q.BuyerID != buyerID {
		return LeaderboardView{}, apperr.Forbidden("only the quotation owner can view the leaderboard")
	}
	offers, err := s.offers.ListByProduct(ctx, quotationID, productID)
	if err != nil {
		return LeaderboardView{}, fmt.Errorf("list offers: %w", err)
	}
	board := domain.RankByBrand(offers)

	view := LeaderboardView{Line: line, Winners: board.Winners(), Offers: board.Offers()}
	if leader, ok := board.Leader(); ok {
		view.Leader = &leader
	}
	return view, nil
}

// activeWindow uses the quotation's stored reminder percentage as is. Start
// already resolved an omitted value to the default, so 0 means the buyer
// turned reminders off.
func activeWindow(q qdomain.Quotation, productID uuid.UUID, w domain.Window) reminders.ActiveWindow {
	return reminders.ActiveWindow{
		QuotationID:        q.ID,
		ProductID:          productID,
		BuyerID:            q.BuyerID,
		Brand:              domain.BrandKey(w.OwnBrand),
		Deadline:           w.Deadline,
		WindowMinutes:      w.Minutes,
		ReminderPercentage: q.ReminderPercentage,
	}
}

// reconcileProduct recomputes the window of every supplier with offers on
// the product after a mutation.
func (s *Service) reconcileProduct(ctx context.Context, q qdomain.Quotation, productID uuid.UUID, offers []domain.Offer, now time.Time) {
	if s.reminders == nil {
		return
	}
	board := domain.RankByBrand(offers)
	seen := make(map[uuid.UUID]bool)
	for _, offer := range offers {
		if seen[offer.SupplierID] {
			continue
		}
		seen[offer.SupplierID] = true
		s.reconcileSupplier(ctx, q, productID, offer.SupplierID, board, now)
	}
}

func (s *Service) reconcileSupplier(ctx context.Context, q qdomain.Quotation, productID, supplierID uuid.UUID, board domain.Leaderboard, now time.Time) {
	if s.reminders == nil {
		return
	}
	var windows []reminders.ActiveWindow
	if clock := s.evaluate(q, supplierID, board, now); clock.Active() && q.AcceptsOffers(now) {
		windows = append(windows, activeWindow(q, productID, *clock.Window))
	}
	s.reminders.Reconcile(ctx, reminders.Scope{SupplierID: supplierID, QuotationID: q.ID, ProductID: productID}, windows)
}

func groupByProduct(offers []domain.Offer) map[uuid.UUID][]domain.Offer {
	out := make(map[uuid.UUID][]domain.Offer)
	for _, offer := range offers {
		out[offer.ProductID] = append(out[offer.ProductID], offer)
	}
	return out
}
