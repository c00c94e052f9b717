// Package phone normalises supplier WhatsApp numbers.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number has no country prefix.
const DefaultRegion = "BR"

// ErrInvalidNumber is returned for input that is not a valid phone number.
var ErrInvalidNumber = errors.New("invalid phone number")

// NormalizeE164 formats a phone number to E.164 using region for numbers
// without a country prefix. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	normalized, err := ParseE164(input, region)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return normalized
}

// ParseE164 is NormalizeE164 that reports invalid numbers. Empty input
// yields an empty string.
func ParseE164(input, region string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// WhatsAppLink returns the wa.me deep link for an E.164 number.
func WhatsAppLink(e164 string) string {
	if e164 == "" {
		return ""
	}
	return "https://wa.me/" + strings.TrimPrefix(e164, "+")
}
