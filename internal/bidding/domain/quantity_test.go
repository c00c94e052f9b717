package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestClassifyScenarios(t *testing.T) {
	policy := DefaultQuantityPolicy()
	cases := []struct {
		requested, offered string
		scenario           Scenario
		modal              bool
		variation          VariationType
	}{
		{"100", "100", ScenarioExact, false, VariationExact},
		{"100", "99.5", ScenarioExact, false, VariationUnder},
		{"100", "104", ScenarioAdequate, false, VariationOver},
		{"100", "60", ScenarioInsufficient, true, VariationUnder},
		{"100", "50", ScenarioInsufficient, true, VariationUnder},
		{"100", "40", ScenarioVeryInsufficient, true, VariationUnder},
		{"100", "300", ScenarioExcess, true, VariationOver},
		{"0", "10", ScenarioValid, false, VariationExact},
	}
	for _, tc := range cases {
		c := policy.Classify(dec(tc.requested), dec(tc.offered))
		if c.Scenario != tc.scenario || c.RequiresModal != tc.modal || c.VariationType != tc.variation {
			t.Fatalf("%s/%s: got %+v", tc.requested, tc.offered, c)
		}
	}
}

func TestClassifyVariationFigures(t *testing.T) {
	c := DefaultQuantityPolicy().Classify(dec("100"), dec("40"))
	if !c.VariationPercentage.Equal(dec("-60")) || !c.VariationAmount.Equal(dec("-60")) {
		t.Fatalf("unexpected variation %s / %s", c.VariationPercentage, c.VariationAmount)
	}
}

func sampleOffer() Offer {
	return Offer{
		Brand:                "Acme",
		PackagingDescription: "caixa 12un",
		Packages:             2,
		UnitsPerPackage:      12,
		UnitWeight:           dec("1"),
		TotalPrice:           dec("48"),
	}.Normalize(true)
}

func TestApplyDecisionAdjustToRequest(t *testing.T) {
	offer := sampleOffer()
	c := DefaultQuantityPolicy().Classify(dec("100"), offer.OfferedQuantity())

	got, err := ApplyDecision(offer, c, Decision{Kind: DecisionAdjustToRequest})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Packages != 9 {
		t.Fatalf("expected ceil(100/12)=9 packages, got %d", got.Packages)
	}
	if !got.TotalPrice.Equal(dec("216")) {
		t.Fatalf("expected total 216, got %s", got.TotalPrice)
	}
	if !got.PricePerUnit.Equal(offer.PricePerUnit) {
		t.Fatalf("expected price per unit to be preserved")
	}
}

func TestApplyDecisionTypingErrorRederivesPrice(t *testing.T) {
	offer := sampleOffer()
	c := DefaultQuantityPolicy().Classify(dec("100"), offer.OfferedQuantity())
	packages := 10
	price := dec("200")

	got, err := ApplyDecision(offer, c, Decision{Kind: DecisionTypingError, Corrected: &Correction{Packages: &packages, TotalPrice: &price}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Packages != 10 || !got.PricePerUnit.Equal(dec("1.666667")) {
		t.Fatalf("unexpected corrected offer %+v", got)
	}
	if got.QuantityDecision != DecisionTypingError {
		t.Fatalf("expected decision to be recorded")
	}
}

func TestApplyDecisionRejectsNonPositiveCorrection(t *testing.T) {
	offer := sampleOffer()
	c := DefaultQuantityPolicy().Classify(dec("100"), offer.OfferedQuantity())
	zero := 0

	_, err := ApplyDecision(offer, c, Decision{Kind: DecisionTypingError, Corrected: &Correction{Packages: &zero}})
	if !errors.Is(err, ErrInvalidCorrection) {
		t.Fatalf("expected ErrInvalidCorrection, got %v", err)
	}
}

func TestApplyDecisionMustMatchDirection(t *testing.T) {
	offer := sampleOffer()
	under := DefaultQuantityPolicy().Classify(dec("100"), offer.OfferedQuantity())

	if _, err := ApplyDecision(offer, under, Decision{Kind: DecisionSendExcess}); !errors.Is(err, ErrDecisionNotApplicable) {
		t.Fatalf("expected send_excess on shortfall to be rejected, got %v", err)
	}
	got, err := ApplyDecision(offer, under, Decision{Kind: DecisionStockShortage})
	if err != nil || got.Packages != offer.Packages {
		t.Fatalf("expected stock_shortage to keep the offer, got %+v / %v", got, err)
	}
	if _, err := ApplyDecision(offer, under, Decision{Kind: "guess"}); !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("expected unknown decision error, got %v", err)
	}
}

func TestSuggestions(t *testing.T) {
	offer := sampleOffer()
	got := Suggestions(dec("100"), offer)
	if len(got) != 2 || got[0].Packages != 8 || got[1].Packages != 9 {
		t.Fatalf("expected 8 and 9 package suggestions, got %+v", got)
	}
	if !got[0].TotalPrice.Equal(dec("192")) {
		t.Fatalf("expected 192 for 8 packages, got %s", got[0].TotalPrice)
	}

	exact := Suggestions(dec("24"), offer)
	if len(exact) != 0 {
		t.Fatalf("expected no suggestions when offer already matches, got %+v", exact)
	}
}
