// Package repository persists quotations, their suppliers and requested lines.
package repository

import (
	"time"

	"procurement_backend/internal/quotations/domain"
)

// CloseTrigger records what closed a quotation.
type CloseTrigger string

const (
	TriggerManual   CloseTrigger = "manual"
	TriggerDeadline CloseTrigger = "deadline"
)

// ClaimResult is the outcome of the close compare-and-swap.
type ClaimResult struct {
	Claimed      bool
	UpdatedItems int
	Quotation    domain.Quotation
}

// ClosureSummary is stored once by the claimer of a close.
type ClosureSummary struct {
	ClosedAt    time.Time
	Trigger     CloseTrigger
	TotalOffers int
	ClosedItems int
}

const (
	quotationNotFoundMsg = "quotation not found"
	lineNotFoundMsg      = "product not found in quotation"
)

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func containsStatus(statuses []domain.Status, status domain.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
