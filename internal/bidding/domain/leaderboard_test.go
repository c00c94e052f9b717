package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func pricedOffer(supplier uuid.UUID, brand, price string, updated time.Time) Offer {
	return Offer{
		ID:           uuid.New(),
		SupplierID:   supplier,
		Brand:        brand,
		PricePerUnit: decimal.RequireFromString(price),
		UpdatedAt:    updated,
	}
}

func TestRankByBrandKeepsCheapestOfferPerBrand(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	offers := []Offer{
		pricedOffer(a, "Acme", "10.00", baseTime),
		pricedOffer(b, " acme ", "9.80", baseTime),
		pricedOffer(c, "Zeta", "9.90", baseTime),
		pricedOffer(a, "Beta", "0", baseTime),
	}

	lb := RankByBrand(offers)
	winners := lb.Winners()
	if len(winners) != 2 {
		t.Fatalf("expected 2 brand winners, got %d", len(winners))
	}
	if winners[0].SupplierID != b || winners[1].SupplierID != c {
		t.Fatalf("unexpected winner order: %+v", winners)
	}
	leader, ok := lb.Leader()
	if !ok || leader.SupplierID != b {
		t.Fatalf("expected supplier b to lead")
	}
	if !lb.IsLeader(b) || lb.IsLeader(a) {
		t.Fatalf("unexpected IsLeader result")
	}
}

func TestRankByBrandLeaderIsMinimumPrice(t *testing.T) {
	s := uuid.New()
	offers := []Offer{
		pricedOffer(s, "A", "3.50", baseTime),
		pricedOffer(s, "B", "2.10", baseTime),
		pricedOffer(s, "C", "2.90", baseTime),
	}
	leader, _ := RankByBrand(offers).Leader()
	for _, o := range offers {
		if o.PricePerUnit.LessThan(leader.PricePerUnit) {
			t.Fatalf("leader %s is not the minimum, found %s", leader.PricePerUnit, o.PricePerUnit)
		}
	}
}

func TestRankByBrandTieWithinBrandPrefersMostRecent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	older := pricedOffer(a, "Acme", "5.00", baseTime)
	newer := pricedOffer(b, "Acme", "5.00", baseTime.Add(time.Minute))

	leader, _ := RankByBrand([]Offer{older, newer}).Leader()
	if leader.ID != newer.ID {
		t.Fatalf("expected most recently updated offer to win the tie")
	}
}

func TestRankByBrandIgnoresUnpricedOffers(t *testing.T) {
	lb := RankByBrand([]Offer{pricedOffer(uuid.New(), "Acme", "0", baseTime)})
	if _, ok := lb.Leader(); ok {
		t.Fatalf("expected no leader without priced offers")
	}
}

func TestBestForAndBestCompetitor(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lb := RankByBrand([]Offer{
		pricedOffer(a, "X", "10.00", baseTime),
		pricedOffer(a, "Y", "11.00", baseTime),
		pricedOffer(b, "Z", "10.50", baseTime),
	})

	best, ok := lb.BestFor(a)
	if !ok || !best.PricePerUnit.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected a's best to be 10, got %s", best.PricePerUnit)
	}
	competitor, ok := lb.BestCompetitor(a)
	if !ok || competitor.SupplierID != b {
		t.Fatalf("expected b as best competitor of a")
	}
	if lb.PricedSuppliers() != 2 {
		t.Fatalf("expected 2 priced suppliers, got %d", lb.PricedSuppliers())
	}
}

func TestDerivePricePerUnit(t *testing.T) {
	got := DerivePricePerUnit(decimal.RequireFromString("100"), 3, 1, decimal.NewFromInt(1))
	if !got.Equal(decimal.RequireFromString("33.333333")) {
		t.Fatalf("expected 33.333333, got %s", got)
	}
	if !DerivePricePerUnit(decimal.NewFromInt(10), 0, 1, decimal.NewFromInt(1)).IsZero() {
		t.Fatalf("expected zero price for empty quantity")
	}
}

func TestNormalizeDefaultsCountUnitWeight(t *testing.T) {
	o := Offer{Brand: " Acme ", PackagingDescription: "box", Packages: 2, UnitsPerPackage: 5, TotalPrice: decimal.NewFromInt(50)}
	n := o.Normalize(true)
	if n.Brand != "Acme" || !n.UnitWeight.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected normalized offer %+v", n)
	}
	if !n.PricePerUnit.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected price per unit 5, got %s", n.PricePerUnit)
	}
	if missing := n.MissingFields(); len(missing) != 0 {
		t.Fatalf("expected complete offer, missing %v", missing)
	}
	if missing := o.Normalize(false).MissingFields(); len(missing) != 1 || missing[0] != "unitWeight" {
		t.Fatalf("expected unitWeight missing for weight units, got %v", missing)
	}
}
