package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	"procurement_backend/internal/events"
)

const timeLayout = "02/01/2006 15:04"

// Message is a rendered notice ready for a delivery channel.
type Message struct {
	Kind      string
	Recipient events.Recipient
	Phone     string
	Text      string
}

type renderFunc func(payload []byte) (events.Recipient, string, error)

var renderers = map[string]renderFunc{
	events.OutbidNotice{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.OutbidNotice
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		who := e.NewSupplierName
		if who == "" {
			who = "another supplier"
		}
		text := fmt.Sprintf("Your %s offer for %s was outbid by %s (%s) at %s per %s. You have %d minutes to send a counter-proposal.",
			e.OutbidBrand, e.ProductName, who, e.NewBrand, e.NewPrice.StringFixed(2), e.Unit, e.WindowMinutes)
		return e.Recipient, text, nil
	},
	events.QuantityVariationNotice{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.QuantityVariationNotice
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		text := fmt.Sprintf("%s offered %s units of %s (%s) against %s requested: %s%% %s (%s).",
			e.SupplierName, e.Offered.String(), e.ProductName, e.Brand, e.Requested.String(), e.VariationPercentage.StringFixed(2), e.VariationType, e.Scenario)
		if e.Decision != "" {
			text += " Supplier decision: " + e.Decision + "."
		}
		if e.AdjustedQuantity != nil {
			text += " Adjusted to " + e.AdjustedQuantity.String() + " units."
		}
		for _, s := range e.Suggestions {
			text += fmt.Sprintf(" %d packages would give %s units for %s.", s.Packages, s.Quantity.String(), s.TotalPrice.StringFixed(2))
		}
		return e.Recipient, text, nil
	},
	events.BuyerAdjustmentNotice{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.BuyerAdjustmentNotice
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		text := fmt.Sprintf("The buyer adjusted your %s offer for %s to %d x %d units, total %s.",
			e.Brand, e.ProductName, e.Packages, e.UnitsPerPackage, e.TotalPrice.StringFixed(2))
		return e.Recipient, text, nil
	},
	events.CounterProposalReminder{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.CounterProposalReminder
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		text := fmt.Sprintf("Reminder: %d minutes left to counter-propose for your %s offer (window ends %s).",
			e.MinutesRemaining, e.Brand, e.WindowDeadline.Format(timeLayout))
		return e.Recipient, text, nil
	},
	events.QuotationInvitation{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.QuotationInvitation
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		text := fmt.Sprintf("You are invited to quote %q (%d products) until %s.",
			e.QuotationName, e.Products, e.Deadline.Format(timeLayout))
		return e.Recipient, text, nil
	},
	events.SupplierClosureNotice{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.SupplierClosureNotice
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		return e.Recipient, fmt.Sprintf("Quotation %q is closed. Thank you for your offers.", e.QuotationName), nil
	},
	events.BuyerClosureNotice{}.EventName(): func(payload []byte) (events.Recipient, string, error) {
		var e events.BuyerClosureNotice
		if err := json.Unmarshal(payload, &e); err != nil {
			return events.Recipient{}, "", err
		}
		text := fmt.Sprintf("Quotation %q closed (%s): %d items updated, %d offers received.",
			e.QuotationName, strings.ReplaceAll(e.Trigger, "_", " "), e.UpdatedItems, e.TotalOffers)
		return e.Recipient, text, nil
	},
}

// Render turns a stored intent back into a message.
func Render(kind string, payload []byte) (Message, error) {
	render, ok := renderers[kind]
	if !ok {
		return Message{}, fmt.Errorf("unsupported notification kind %q", kind)
	}
	to, text, err := render(payload)
	if err != nil {
		return Message{}, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return Message{Kind: kind, Recipient: to, Text: text}, nil
}
