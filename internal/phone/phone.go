// Package phone holds the one canonical phone-number normalization rule
// shared by every notification channel.
package phone

import "strings"

// DefaultCountryCode is used when a number carries no country prefix.
const DefaultCountryCode = "91"

// Normalize reduces raw input to a canonical E.164-style digit string:
// non-digits are dropped, leading national trunk zeros are stripped, and
// the country code is prepended unless the number already carries one.
// Normalize is idempotent.
func Normalize(raw, countryCode string) string {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")
	if digits == "" {
		return ""
	}

	// A national subscriber number is at most 10 digits. Anything longer
	// that already starts with the country code is taken as canonical.
	if strings.HasPrefix(digits, countryCode) && len(digits) > 10 {
		return digits
	}
	return countryCode + digits
}
