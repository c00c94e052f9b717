// Package events defines the bidding domain events and notification
// intents. The bus itself lives in platform/events.
package events

import (
	"time"

	"procurement_backend/platform/events"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var BaseAt = events.BaseAt

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Audience identifies who receives a notification intent.
type Audience string

const (
	AudienceSupplier Audience = "supplier"
	AudienceBuyer    Audience = "buyer"
)

// Intent is an event that must reach one recipient. Intents are persisted to
// the notification outbox and delivered out of band.
type Intent interface {
	Event
	Addressee() Recipient
}

// Recipient addresses an intent. BuyerID scopes the outbox row.
type Recipient struct {
	BuyerID     uuid.UUID `json:"buyerId"`
	RecipientID uuid.UUID `json:"recipientId"`
	Audience    Audience  `json:"audience"`
}

// Addressee implements Intent for every notice embedding a Recipient.
func (r Recipient) Addressee() Recipient { return r }

// SupplierRecipient addresses a supplier of the buyer's quotation.
func SupplierRecipient(buyerID, supplierID uuid.UUID) Recipient {
	return Recipient{BuyerID: buyerID, RecipientID: supplierID, Audience: AudienceSupplier}
}

// BuyerRecipient addresses the buyer.
func BuyerRecipient(buyerID uuid.UUID) Recipient {
	return Recipient{BuyerID: buyerID, RecipientID: buyerID, Audience: AudienceBuyer}
}

// =============================================================================
// Bidding Notification Intents
// =============================================================================

// OutbidNotice tells the previous leader that a cheaper offer took the lead.
type OutbidNotice struct {
	BaseEvent
	Recipient
	QuotationID     uuid.UUID       `json:"quotationId"`
	ProductID       uuid.UUID       `json:"productId"`
	ProductName     string          `json:"productName"`
	OutbidBrand     string          `json:"outbidBrand"`
	NewPrice        decimal.Decimal `json:"newPrice"`
	NewBrand        string          `json:"newBrand"`
	NewSupplierName string          `json:"newSupplierName"`
	Unit            string          `json:"unit"`
	WindowMinutes   int             `json:"windowMinutes"`
}

func (e OutbidNotice) EventName() string { return "bidding.notice.outbid" }

// PackageSuggestion is an alternative package count at the offer's price per
// package.
type PackageSuggestion struct {
	Packages   int             `json:"packages"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// QuantityVariationNotice tells the buyer an accepted offer deviates from the
// requested quantity. Offered, Scenario and VariationPercentage all describe
// the quantity the supplier submitted; AdjustedQuantity is set when the
// supplier's decision changed the stored quantity.
type QuantityVariationNotice struct {
	BaseEvent
	Recipient
	QuotationID         uuid.UUID           `json:"quotationId"`
	ProductID           uuid.UUID           `json:"productId"`
	ProductName         string              `json:"productName"`
	SupplierID          uuid.UUID           `json:"supplierId"`
	SupplierName        string              `json:"supplierName"`
	Brand               string              `json:"brand"`
	Scenario            string              `json:"scenario"`
	VariationType       string              `json:"variationType"`
	Requested           decimal.Decimal     `json:"requested"`
	Offered             decimal.Decimal     `json:"offered"`
	VariationPercentage decimal.Decimal     `json:"variationPercentage"`
	AdjustedQuantity    *decimal.Decimal    `json:"adjustedQuantity,omitempty"`
	Suggestions         []PackageSuggestion `json:"suggestions,omitempty"`
	Decision            string              `json:"decision,omitempty"`
}

func (e QuantityVariationNotice) EventName() string { return "bidding.notice.quantity_variation" }

// BuyerAdjustmentNotice tells a supplier the buyer changed the quantity of
// one of its offers.
type BuyerAdjustmentNotice struct {
	BaseEvent
	Recipient
	QuotationID     uuid.UUID       `json:"quotationId"`
	ProductID       uuid.UUID       `json:"productId"`
	ProductName     string          `json:"productName"`
	OfferID         uuid.UUID       `json:"offerId"`
	Brand           string          `json:"brand"`
	Packages        int             `json:"packages"`
	UnitsPerPackage int             `json:"unitsPerPackage"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

func (e BuyerAdjustmentNotice) EventName() string { return "bidding.notice.buyer_adjustment" }

// CounterProposalReminder nudges an outbid supplier before its window ends.
type CounterProposalReminder struct {
	BaseEvent
	Recipient
	QuotationID      uuid.UUID `json:"quotationId"`
	ProductID        uuid.UUID `json:"productId"`
	Brand            string    `json:"brand"`
	WindowDeadline   time.Time `json:"windowDeadline"`
	MinutesRemaining int       `json:"minutesRemaining"`
}

func (e CounterProposalReminder) EventName() string { return "bidding.notice.counter_proposal_reminder" }

// =============================================================================
// Quotation Notification Intents
// =============================================================================

// QuotationInvitation invites a supplier to bid.
type QuotationInvitation struct {
	BaseEvent
	Recipient
	QuotationID   uuid.UUID `json:"quotationId"`
	QuotationName string    `json:"quotationName"`
	Deadline      time.Time `json:"deadline"`
	Products      int       `json:"products"`
}

func (e QuotationInvitation) EventName() string { return "quotations.notice.invitation" }

// SupplierClosureNotice tells an invited supplier the quotation closed.
type SupplierClosureNotice struct {
	BaseEvent
	Recipient
	QuotationID   uuid.UUID `json:"quotationId"`
	QuotationName string    `json:"quotationName"`
}

func (e SupplierClosureNotice) EventName() string { return "quotations.notice.supplier_closure" }

// BuyerClosureNotice tells the buyer the quotation closed and how many items
// were closed with it.
type BuyerClosureNotice struct {
	BaseEvent
	Recipient
	QuotationID   uuid.UUID `json:"quotationId"`
	QuotationName string    `json:"quotationName"`
	UpdatedItems  int       `json:"updatedItems"`
	TotalOffers   int       `json:"totalOffers"`
	Trigger       string    `json:"trigger"`
}

func (e BuyerClosureNotice) EventName() string { return "quotations.notice.buyer_closure" }

// =============================================================================
// Live Feed Events
// =============================================================================

// OfferBoardChanged is published whenever the offers of a product change so
// connected clients re-read the leaderboard.
type OfferBoardChanged struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	ProductID   uuid.UUID `json:"productId"`
	SupplierID  uuid.UUID `json:"supplierId"`
	Change      string    `json:"change"`
}

func (e OfferBoardChanged) EventName() string { return "bidding.board.changed" }

// QuotationStatusChanged is published after every quotation status change.
type QuotationStatusChanged struct {
	BaseEvent
	QuotationID uuid.UUID `json:"quotationId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

func (e QuotationStatusChanged) EventName() string { return "quotations.status.changed" }

// IntentNames lists every intent the notification module persists.
var IntentNames = []string{
	OutbidNotice{}.EventName(),
	QuantityVariationNotice{}.EventName(),
	BuyerAdjustmentNotice{}.EventName(),
	CounterProposalReminder{}.EventName(),
	QuotationInvitation{}.EventName(),
	SupplierClosureNotice{}.EventName(),
	BuyerClosureNotice{}.EventName(),
}
