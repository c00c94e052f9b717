// Package domain contains the pure rules of competitive bidding: offer
// ranking, the counter-proposal clock and quantity reconciliation.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept for price per unit.
const PricePrecision int32 = 6

// Offer is one supplier's priced proposal for one brand of a requested line.
type Offer struct {
	ID                   uuid.UUID       `json:"id"`
	QuotationID          uuid.UUID       `json:"quotationId"`
	ProductID            uuid.UUID       `json:"productId"`
	SupplierID           uuid.UUID       `json:"supplierId"`
	SupplierName         string          `json:"supplierName"`
	Brand                string          `json:"brand"`
	PackagingDescription string          `json:"packagingDescription"`
	Packages             int             `json:"packages"`
	UnitsPerPackage      int             `json:"unitsPerPackage"`
	UnitWeight           decimal.Decimal `json:"unitWeight"`
	TotalPrice           decimal.Decimal `json:"totalPrice"`
	PricePerUnit         decimal.Decimal `json:"pricePerUnit"`
	QuantityDecision     DecisionKind    `json:"quantityDecision,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// BrandKey normalizes a brand name for comparisons.
func BrandKey(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}

// BrandKey returns the normalized brand of the offer.
func (o Offer) BrandKey() string {
	return BrandKey(o.Brand)
}

// PackageQuantity is the quantity contained in one package.
func (o Offer) PackageQuantity() decimal.Decimal {
	return decimal.NewFromInt(int64(o.UnitsPerPackage)).Mul(o.UnitWeight)
}

// OfferedQuantity is the total quantity delivered by the offer.
func (o Offer) OfferedQuantity() decimal.Decimal {
	return decimal.NewFromInt(int64(o.Packages)).Mul(o.PackageQuantity())
}

// IsPriced reports whether the offer takes part in ranking.
func (o Offer) IsPriced() bool {
	return o.PricePerUnit.IsPositive()
}

// DerivePricePerUnit computes total / (packages × units per package × unit
// weight) rounded to PricePrecision. A non-positive denominator yields zero.
func DerivePricePerUnit(total decimal.Decimal, packages, unitsPerPackage int, unitWeight decimal.Decimal) decimal.Decimal {
	quantity := decimal.NewFromInt(int64(packages)).
		Mul(decimal.NewFromInt(int64(unitsPerPackage))).
		Mul(unitWeight)
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return total.Div(quantity).Round(PricePrecision)
}

// Normalize trims text fields, applies the count-unit weight default and
// recomputes the price per unit.
func (o Offer) Normalize(countUnit bool) Offer {
	o.Brand = strings.TrimSpace(o.Brand)
	o.PackagingDescription = strings.TrimSpace(o.PackagingDescription)
	if countUnit && !o.UnitWeight.IsPositive() {
		o.UnitWeight = decimal.NewFromInt(1)
	}
	o.PricePerUnit = DerivePricePerUnit(o.TotalPrice, o.Packages, o.UnitsPerPackage, o.UnitWeight)
	return o
}

// MissingFields lists the required fields that are absent or not positive.
// The offer must be normalized first.
func (o Offer) MissingFields() []string {
	var missing []string
	if o.Brand == "" {
		missing = append(missing, "brand")
	}
	if o.PackagingDescription == "" {
		missing = append(missing, "packagingDescription")
	}
	if o.Packages <= 0 {
		missing = append(missing, "packages")
	}
	if o.UnitsPerPackage <= 0 {
		missing = append(missing, "unitsPerPackage")
	}
	if !o.UnitWeight.IsPositive() {
		missing = append(missing, "unitWeight")
	}
	if !o.TotalPrice.IsPositive() {
		missing = append(missing, "totalPrice")
	}
	return missing
}
