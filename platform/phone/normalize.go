// Package phone normalizes customer phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "TR"

// NormalizeE164 formats a phone number to E.164 (+90...). If parsing fails it
// returns the trimmed input so partner data is never dropped.
func NormalizeE164(input string) string {
	return NormalizeE164In(input, DefaultRegion)
}

// NormalizeE164In is NormalizeE164 with an explicit default region.
func NormalizeE164In(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	// Partner exports sometimes carry a trunk prefix with a leading 00.
	if strings.HasPrefix(trimmed, "00") {
		trimmed = "+" + strings.TrimPrefix(trimmed, "00")
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
