package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusPaused, true},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusConcluded, false},
		{StatusPaused, StatusOpen, true},
		{StatusPaused, StatusClosed, true},
		{StatusClosed, StatusConcluded, true},
		{StatusClosed, StatusOpen, false},
		{StatusConcluded, StatusClosed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestAcceptsOffersRequiresOpenAndBeforeDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	q := Quotation{Status: StatusOpen, Deadline: now.Add(time.Hour)}
	if !q.AcceptsOffers(now) {
		t.Fatalf("expected open quotation before deadline to accept offers")
	}
	if q.AcceptsOffers(now.Add(time.Hour)) {
		t.Fatalf("expected quotation at deadline to refuse offers")
	}
	q.Status = StatusPaused
	if q.AcceptsOffers(now) {
		t.Fatalf("expected paused quotation to refuse offers")
	}
}

func TestItemStatusIsFinal(t *testing.T) {
	for _, s := range []ItemStatus{ItemClosed, ItemCancelled, ItemReceived} {
		if !s.IsFinal() {
			t.Fatalf("expected %s to be final", s)
		}
	}
	for _, s := range []ItemStatus{ItemPending, ItemQuoted, ItemPurchased} {
		if s.IsFinal() {
			t.Fatalf("expected %s not to be final", s)
		}
	}
}

func TestLineHelpers(t *testing.T) {
	supplier := uuid.New()
	line := Line{
		PreferredBrands:  []string{" Acme "},
		StoppedSuppliers: []uuid.UUID{supplier},
	}
	if !line.IsPreferredBrand("acme") {
		t.Fatalf("expected case-insensitive brand match")
	}
	if !line.IsStopped(supplier) || line.IsStopped(uuid.New()) {
		t.Fatalf("unexpected stopped set behaviour")
	}
	if UnitKilogram.IsCount() || !UnitBox.IsCount() {
		t.Fatalf("unexpected count unit classification")
	}
}

func TestWindowMinutesFallback(t *testing.T) {
	if got := (Quotation{}).WindowMinutes(15); got != 15 {
		t.Fatalf("expected fallback of 15, got %d", got)
	}
	if got := (Quotation{CounterProposalMinutes: 5}).WindowMinutes(15); got != 5 {
		t.Fatalf("expected configured window of 5, got %d", got)
	}
}

func TestNeedsDeliveryConfirmation(t *testing.T) {
	mismatched, scheduled := uuid.New(), uuid.New()
	line := Line{DeliveryMismatches: []uuid.UUID{mismatched}}

	if !line.NeedsDeliveryConfirmation(mismatched) {
		t.Fatalf("expected a mismatched supplier to need confirmation")
	}
	if line.NeedsDeliveryConfirmation(scheduled) {
		t.Fatalf("expected a scheduled supplier to offer freely")
	}
	line.AcknowledgedMismatches = []uuid.UUID{mismatched}
	if line.NeedsDeliveryConfirmation(mismatched) {
		t.Fatalf("expected confirmation to clear the block")
	}
}

func TestDeliversOn(t *testing.T) {
	friday := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		schedule []time.Weekday
		want     bool
	}{
		{name: "covered", schedule: []time.Weekday{time.Monday, time.Friday}, want: true},
		{name: "not covered", schedule: []time.Weekday{time.Monday}, want: false},
		{name: "no schedule", schedule: nil, want: false},
	}
	for _, tc := range cases {
		if got := DeliversOn(tc.schedule, friday); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
