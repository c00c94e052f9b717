// Package domain holds the quotation aggregate shared by the lifecycle and
// bidding services.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusOpen      Status = "Aberta"
	StatusPaused    Status = "Pausada"
	StatusClosed    Status = "Fechada"
	StatusConcluded Status = "Concluída"
)

// ItemStatus tracks a requested line through purchasing.
type ItemStatus string

const (
	ItemPending   ItemStatus = "Pendente"
	ItemQuoted    ItemStatus = "Cotado"
	ItemPurchased ItemStatus = "Comprado"
	ItemReceived  ItemStatus = "Recebido"
	ItemCancelled ItemStatus = "Cancelado"
	ItemClosed    ItemStatus = "Encerrado"
)

// FinalItemStatuses are left untouched when a quotation closes.
var FinalItemStatuses = []ItemStatus{ItemClosed, ItemCancelled, ItemReceived}

// IsFinal reports whether closing a quotation leaves the item as is.
func (s ItemStatus) IsFinal() bool {
	for _, final := range FinalItemStatuses {
		if s == final {
			return true
		}
	}
	return false
}

// Unit is the unit of measure of a requested line.
type Unit string

const (
	UnitPiece      Unit = "Unidade(s)"
	UnitKilogram   Unit = "Kilograma(s)"
	UnitGram       Unit = "Grama(s)"
	UnitLiter      Unit = "Litro(s)"
	UnitMilliliter Unit = "Mililitro(s)"
	UnitBox        Unit = "Caixa(s)"
	UnitPack       Unit = "Pacote(s)"
	UnitCan        Unit = "Lata(s)"
	UnitBottle     Unit = "Garrafa(s)"
	UnitDozen      Unit = "Dúzia(s)"
	UnitPart       Unit = "Peça(s)"
	UnitMeter      Unit = "Metro(s)"
)

var knownUnits = map[Unit]bool{
	UnitPiece: true, UnitKilogram: true, UnitGram: true, UnitLiter: true,
	UnitMilliliter: true, UnitBox: true, UnitPack: true, UnitCan: true,
	UnitBottle: true, UnitDozen: true, UnitPart: true, UnitMeter: true,
}

// IsKnown reports whether u is one of the supported units.
func (u Unit) IsKnown() bool {
	return knownUnits[u]
}

// IsCount is true for units counted in pieces, where an offer's unit weight
// defaults to 1.
func (u Unit) IsCount() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitMeter:
		return false
	default:
		return true
	}
}

// Line is a requested product inside a quotation. DeliveryDate is set when
// the line must arrive on a specific day; nil means the supplier's next
// scheduled delivery. DeliveryMismatches are the invited suppliers whose
// delivery days miss DeliveryDate; each confirms into AcknowledgedMismatches
// before it may offer.
type Line struct {
	ID                     uuid.UUID       `json:"id"`
	QuotationID            uuid.UUID       `json:"quotationId"`
	Name                   string          `json:"name"`
	Quantity               decimal.Decimal `json:"quantity"`
	Unit                   Unit            `json:"unit"`
	PreferredBrands        []string        `json:"preferredBrands"`
	ItemStatus             ItemStatus      `json:"itemStatus"`
	StoppedSuppliers       []uuid.UUID     `json:"stoppedSuppliers"`
	DeliveryDate           *time.Time      `json:"deliveryDate,omitempty"`
	DeliveryMismatches     []uuid.UUID     `json:"deliveryMismatches"`
	AcknowledgedMismatches []uuid.UUID     `json:"acknowledgedMismatches"`
}

// IsStopped reports whether the supplier stopped quoting this line.
func (l Line) IsStopped(supplierID uuid.UUID) bool {
	return containsID(l.StoppedSuppliers, supplierID)
}

// IsMismatchAcknowledged reports whether the supplier confirmed it can
// deliver on the line's date despite its schedule.
func (l Line) IsMismatchAcknowledged(supplierID uuid.UUID) bool {
	return containsID(l.AcknowledgedMismatches, supplierID)
}

// NeedsDeliveryConfirmation reports whether the supplier must confirm the
// delivery date before it may offer on this line.
func (l Line) NeedsDeliveryConfirmation(supplierID uuid.UUID) bool {
	return containsID(l.DeliveryMismatches, supplierID) && !l.IsMismatchAcknowledged(supplierID)
}

// DeliversOn reports whether a weekly schedule covers date.
func DeliversOn(schedule []time.Weekday, date time.Time) bool {
	return slices.Contains(schedule, date.Weekday())
}

// IsPreferredBrand compares brand names trimmed and case-insensitively.
func (l Line) IsPreferredBrand(brand string) bool {
	key := strings.ToLower(strings.TrimSpace(brand))
	for _, preferred := range l.PreferredBrands {
		if strings.ToLower(strings.TrimSpace(preferred)) == key {
			return true
		}
	}
	return false
}

// Quotation is a buyer's shopping list published to invited suppliers.
type Quotation struct {
	ID                     uuid.UUID   `json:"id"`
	BuyerID                uuid.UUID   `json:"buyerId"`
	Name                   string      `json:"name"`
	SupplierIDs            []uuid.UUID `json:"supplierIds"`
	Deadline               time.Time   `json:"deadline"`
	Status                 Status      `json:"status"`
	CounterProposalMinutes int         `json:"counterProposalMinutes"`
	ReminderPercentage     int         `json:"reminderPercentage"`
	Lines                  []Line      `json:"lines"`
	CreatedAt              time.Time   `json:"createdAt"`
	UpdatedAt              time.Time   `json:"updatedAt"`
}

// AcceptsOffers is true while the quotation is open and before its deadline.
func (q Quotation) AcceptsOffers(now time.Time) bool {
	return q.Status == StatusOpen && now.Before(q.Deadline)
}

// IsExpired is true for an open quotation whose deadline has passed.
func (q Quotation) IsExpired(now time.Time) bool {
	return q.Status == StatusOpen && !now.Before(q.Deadline)
}

// Line returns the requested line with the given product id.
func (q Quotation) Line(productID uuid.UUID) (Line, bool) {
	for _, line := range q.Lines {
		if line.ID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// HasSupplier reports whether the supplier was invited.
func (q Quotation) HasSupplier(supplierID uuid.UUID) bool {
	return containsID(q.SupplierIDs, supplierID)
}

// WindowMinutes returns the counter-proposal window, falling back to
// fallback when the quotation does not set one.
func (q Quotation) WindowMinutes(fallback int) int {
	if q.CounterProposalMinutes > 0 {
		return q.CounterProposalMinutes
	}
	return fallback
}

// CanTransition reports whether a manual status change is allowed.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusPaused || to == StatusClosed
	case StatusPaused:
		return to == StatusOpen || to == StatusClosed
	case StatusClosed:
		return to == StatusConcluded
	default:
		return false
	}
}

// IsClosedOrConcluded reports a terminal closing state.
func (s Status) IsClosedOrConcluded() bool {
	return s == StatusClosed || s == StatusConcluded
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
