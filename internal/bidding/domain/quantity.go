package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scenario classifies an offered quantity against the requested one.
type Scenario string

const (
	ScenarioValid            Scenario = "valid"
	ScenarioExact            Scenario = "exact"
	ScenarioAdequate         Scenario = "adequate"
	ScenarioInsufficient     Scenario = "insufficient"
	ScenarioVeryInsufficient Scenario = "very_insufficient"
	ScenarioExcess           Scenario = "excess"
)

// NotifiesBuyer reports whether an accepted offer in this scenario produces a
// quantity variation notice.
func (s Scenario) NotifiesBuyer() bool {
	return s != ScenarioExact && s != ScenarioValid
}

// VariationType is the direction of the deviation.
type VariationType string

const (
	VariationOver  VariationType = "over"
	VariationUnder VariationType = "under"
	VariationExact VariationType = "exact"
)

// Classification is the result of comparing offered and requested quantity.
type Classification struct {
	Scenario            Scenario        `json:"scenario"`
	Requested           decimal.Decimal `json:"requested"`
	Offered             decimal.Decimal `json:"offered"`
	VariationPercentage decimal.Decimal `json:"variationPercentage"`
	VariationAmount     decimal.Decimal `json:"variationAmount"`
	VariationType       VariationType   `json:"variationType"`
	RequiresModal       bool            `json:"requiresModal"`
}

var hundred = decimal.NewFromInt(100)

// QuantityPolicy holds the tolerance bands in percent.
type QuantityPolicy struct {
	ExactTolerance    decimal.Decimal
	AdequateTolerance decimal.Decimal
	VeryInsufficient  decimal.Decimal
}

// DefaultQuantityPolicy returns the 1% / 5% / 50% bands.
func DefaultQuantityPolicy() QuantityPolicy {
	return NewQuantityPolicy(1, 5, 50)
}

// NewQuantityPolicy builds a policy from percentages.
func NewQuantityPolicy(exact, adequate, veryInsufficient float64) QuantityPolicy {
	return QuantityPolicy{
		ExactTolerance:    decimal.NewFromFloat(exact),
		AdequateTolerance: decimal.NewFromFloat(adequate),
		VeryInsufficient:  decimal.NewFromFloat(veryInsufficient),
	}
}

// Classify compares the offered quantity against the requested quantity.
// A requested quantity of zero or less cannot be checked and is valid.
func (p QuantityPolicy) Classify(requested, offered decimal.Decimal) Classification {
	c := Classification{Requested: requested, Offered: offered}
	if !requested.IsPositive() {
		c.Scenario = ScenarioValid
		c.VariationType = VariationExact
		return c
	}

	c.VariationAmount = offered.Sub(requested)
	c.VariationPercentage = c.VariationAmount.Div(requested).Mul(hundred).Round(2)
	switch c.VariationAmount.Sign() {
	case 1:
		c.VariationType = VariationOver
	case -1:
		c.VariationType = VariationUnder
	default:
		c.VariationType = VariationExact
	}

	deviation := c.VariationPercentage.Abs()
	switch {
	case deviation.LessThanOrEqual(p.ExactTolerance):
		c.Scenario = ScenarioExact
	case deviation.LessThanOrEqual(p.AdequateTolerance):
		c.Scenario = ScenarioAdequate
	case c.VariationType == VariationUnder && deviation.LessThanOrEqual(p.VeryInsufficient):
		c.Scenario = ScenarioInsufficient
	case c.VariationType == VariationUnder:
		c.Scenario = ScenarioVeryInsufficient
	default:
		c.Scenario = ScenarioExcess
	}
	c.RequiresModal = c.Scenario == ScenarioInsufficient ||
		c.Scenario == ScenarioVeryInsufficient ||
		c.Scenario == ScenarioExcess
	return c
}

// Suggestion is an alternative package count that brings the offer closer to
// the requested quantity at the same price per package.
type Suggestion struct {
	Packages   int             `json:"packages"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Suggestions returns the floor and ceil package counts for the requested
// quantity, excluding zero and the count already offered.
func Suggestions(requested decimal.Decimal, offer Offer) []Suggestion {
	perPackage := offer.PackageQuantity()
	if !requested.IsPositive() || !perPackage.IsPositive() || offer.Packages <= 0 {
		return nil
	}
	exact := requested.Div(perPackage)
	pricePerPackage := offer.TotalPrice.Div(decimal.NewFromInt(int64(offer.Packages)))

	var out []Suggestion
	seen := map[int64]bool{int64(offer.Packages): true, 0: true}
	for _, candidate := range []decimal.Decimal{exact.Floor(), exact.Ceil()} {
		n := candidate.IntPart()
		if seen[n] {
			continue
		}
		seen[n] = true
		count := decimal.NewFromInt(n)
		out = append(out, Suggestion{
			Packages:   int(n),
			Quantity:   count.Mul(perPackage),
			TotalPrice: count.Mul(pricePerPackage).Round(2),
		})
	}
	return out
}

var (
	// ErrDecisionNotApplicable is returned when a decision does not fit the
	// classification (e.g. send_excess on a shortfall).
	ErrDecisionNotApplicable = errors.New("decision does not apply to quantity scenario")
	// ErrInvalidCorrection is returned when corrected figures are not positive.
	ErrInvalidCorrection = errors.New("corrected offer figures must be positive")
	// ErrUnknownDecision is returned for decision kinds the engine does not know.
	ErrUnknownDecision = errors.New("unknown quantity decision")
)
