package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Leaderboard is the ranking of one product's offers. It is derived on every
// read and never stored.
type Leaderboard struct {
	offers  []Offer
	winners []Offer
}

// RankByBrand groups priced offers by brand, keeps the cheapest offer of each
// brand and orders the brand winners by price.
func RankByBrand(offers []Offer) Leaderboard {
	priced := make([]Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.IsPriced() {
			priced = append(priced, offer)
		}
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return cheaper(priced[i], priced[j])
	})

	seen := make(map[string]bool, len(priced))
	winners := make([]Offer, 0, len(priced))
	for _, offer := range priced {
		key := offer.BrandKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		winners = append(winners, offer)
	}
	sort.SliceStable(winners, func(i, j int) bool {
		if c := winners[i].PricePerUnit.Cmp(winners[j].PricePerUnit); c != 0 {
			return c < 0
		}
		return winners[i].BrandKey() < winners[j].BrandKey()
	})

	return Leaderboard{offers: priced, winners: winners}
}

// cheaper orders by price, then most recent update, then id.
func cheaper(a, b Offer) bool {
	if c := a.PricePerUnit.Cmp(b.PricePerUnit); c != 0 {
		return c < 0
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Leader returns the cheapest brand winner.
func (lb Leaderboard) Leader() (Offer, bool) {
	if len(lb.winners) == 0 {
		return Offer{}, false
	}
	return lb.winners[0], true
}

// Winners returns the brand winners in ascending price order.
func (lb Leaderboard) Winners() []Offer {
	out := make([]Offer, len(lb.winners))
	copy(out, lb.winners)
	return out
}

// Offers returns every priced offer in ranking order.
func (lb Leaderboard) Offers() []Offer {
	out := make([]Offer, len(lb.offers))
	copy(out, lb.offers)
	return out
}

// IsLeader reports whether the supplier owns the global leader.
func (lb Leaderboard) IsLeader(supplierID uuid.UUID) bool {
	leader, ok := lb.Leader()
	return ok && leader.SupplierID == supplierID
}

// IsBrandWinner reports whether the offer wins its brand.
func (lb Leaderboard) IsBrandWinner(offerID uuid.UUID) bool {
	for _, winner := range lb.winners {
		if winner.ID == offerID {
			return true
		}
	}
	return false
}

// BestFor returns the supplier's cheapest priced offer.
func (lb Leaderboard) BestFor(supplierID uuid.UUID) (Offer, bool) {
	for _, offer := range lb.offers {
		if offer.SupplierID == supplierID {
			return offer, true
		}
	}
	return Offer{}, false
}

// BestCompetitor returns the cheapest priced offer of any other supplier.
func (lb Leaderboard) BestCompetitor(supplierID uuid.UUID) (Offer, bool) {
	for _, offer := range lb.offers {
		if offer.SupplierID != supplierID {
			return offer, true
		}
	}
	return Offer{}, false
}

// PricedSuppliers counts distinct suppliers with at least one priced offer.
func (lb Leaderboard) PricedSuppliers() int {
	seen := make(map[uuid.UUID]bool)
	for _, offer := range lb.offers {
		seen[offer.SupplierID] = true
	}
	return len(seen)
}
