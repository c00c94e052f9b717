package service

import (
	"procurement_backend/internal/bidding/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome of a submission.
type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeRejected      Outcome = "rejected"
	OutcomeNeedsDecision Outcome = "needs_decision"
)

// Reason explains a non-accepted outcome.
type Reason string

const (
	ReasonQuotationClosed       Reason = "QuotationClosed"
	ReasonSupplierLockedOut     Reason = "SupplierLockedOut"
	ReasonSupplierStopped       Reason = "SupplierStopped"
	ReasonDeliveryUnconfirmed   Reason = "DeliveryUnconfirmed"
	ReasonIncompleteOffer       Reason = "IncompleteOffer"
	ReasonInsufficientUndercut  Reason = "InsufficientUndercut"
	ReasonDuplicatePrice        Reason = "DuplicatePrice"
	ReasonNeedsQuantityDecision Reason = "NeedsQuantityDecision"
)

// SubmitInput is a supplier's draft offer for one brand.
type SubmitInput struct {
	QuotationID          uuid.UUID
	ProductID            uuid.UUID
	SupplierID           uuid.UUID
	Brand                string
	PackagingDescription string
	Packages             int
	UnitsPerPackage      int
	UnitWeight           decimal.Decimal
	TotalPrice           decimal.Decimal
	Decision             *domain.Decision
}

// SubmitResult is the engine's verdict. Business rejections are reported
// here, never as errors.
type SubmitResult struct {
	Outcome            Outcome                `json:"outcome"`
	Reason             Reason                 `json:"reason,omitempty"`
	Offer              *domain.Offer          `json:"offer,omitempty"`
	Classification     *domain.Classification `json:"classification,omitempty"`
	Suggestions        []domain.Suggestion    `json:"suggestions,omitempty"`
	MissingFields      []string               `json:"missingFields,omitempty"`
	Window             *domain.Window         `json:"window,omitempty"`
	CompetitorPrice    *decimal.Decimal       `json:"competitorPrice,omitempty"`
	MaxAcceptedPrice   *decimal.Decimal       `json:"maxAcceptedPrice,omitempty"`
	IsLeader           bool                   `json:"isLeader"`
	NotificationErrors []string               `json:"notificationErrors,omitempty"`
}

func rejected(reason Reason) SubmitResult {
	return SubmitResult{Outcome: OutcomeRejected, Reason: reason}
}
