package transport

import (
	"procurement_backend/internal/bidding/domain"
	"procurement_backend/internal/bidding/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Required offer fields are checked by the engine, which reports them as
// missing fields instead of a validation failure.
type SubmitOfferRequest struct {
	Brand                string           `json:"brand" validate:"max=120"`
	PackagingDescription string           `json:"packagingDescription" validate:"max=200"`
	Packages             int              `json:"packages" validate:"min=0"`
	UnitsPerPackage      int              `json:"unitsPerPackage" validate:"min=0"`
	UnitWeight           decimal.Decimal  `json:"unitWeight" validate:"gte=0"`
	TotalPrice           decimal.Decimal  `json:"totalPrice" validate:"gte=0"`
	Decision             *DecisionRequest `json:"decision,omitempty"`
}

type DecisionRequest struct {
	Kind      string             `json:"kind" validate:"required,oneof=stock_shortage request_approval typing_error send_excess adjust_to_request buyer_approval_excess"`
	Corrected *CorrectionRequest `json:"corrected,omitempty"`
}

type CorrectionRequest struct {
	Packages        *int             `json:"packages,omitempty"`
	UnitsPerPackage *int             `json:"unitsPerPackage,omitempty"`
	UnitWeight      *decimal.Decimal `json:"unitWeight,omitempty"`
	TotalPrice      *decimal.Decimal `json:"totalPrice,omitempty"`
}

type AdjustQuantityRequest struct {
	Packages        int `json:"packages" validate:"required,min=1"`
	UnitsPerPackage int `json:"unitsPerPackage" validate:"required,min=1"`
}

type AdjustQuantityResponse struct {
	Offer              domain.Offer `json:"offer"`
	NotificationErrors []string     `json:"notificationErrors,omitempty"`
}

// ToDecision converts the request decision, nil when none was sent.
func (r SubmitOfferRequest) ToDecision() *domain.Decision {
	if r.Decision == nil {
		return nil
	}
	d := domain.Decision{Kind: domain.DecisionKind(r.Decision.Kind)}
	if c := r.Decision.Corrected; c != nil {
		d.Corrected = &domain.Correction{
			Packages:        c.Packages,
			UnitsPerPackage: c.UnitsPerPackage,
			UnitWeight:      c.UnitWeight,
			TotalPrice:      c.TotalPrice,
		}
	}
	return &d
}

// ToInput builds the engine input for the addressed product.
func (r SubmitOfferRequest) ToInput(quotationID, productID, supplierID uuid.UUID) service.SubmitInput {
	return service.SubmitInput{
		QuotationID:          quotationID,
		ProductID:            productID,
		SupplierID:           supplierID,
		Brand:                r.Brand,
		PackagingDescription: r.PackagingDescription,
		Packages:             r.Packages,
		UnitsPerPackage:      r.UnitsPerPackage,
		UnitWeight:           r.UnitWeight,
		TotalPrice:           r.TotalPrice,
		Decision:             r.ToDecision(),
	}
}
