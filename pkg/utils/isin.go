// Package utils provides common helpers shared by the bondrisk packages.
package utils

import (
	"strings"
)

// NormalizeISIN normalizes a user-supplied instrument identifier.
// It trims whitespace, drops an "ISIN:" prefix and uppercases the rest.
// The result is not validated; identifiers are opaque to the engine.
func NormalizeISIN(isin string) string {
	isin = strings.TrimSpace(strings.ToUpper(isin))
	isin = strings.TrimPrefix(isin, "ISIN:")
	return strings.TrimSpace(isin)
}

// IsValidISIN reports whether s is a well-formed ISO 6166 identifier:
// two-letter country prefix, nine alphanumerics and a Luhn check digit.
func IsValidISIN(s string) bool {
	s = NormalizeISIN(s)
	if len(s) != 12 {
		return false
	}
	for i, r := range s {
		switch {
		case i < 2 && !isLetter(r):
			return false
		case i == 11 && !isDigit(r):
			return false
		case !isLetter(r) && !isDigit(r):
			return false
		}
	}

	// Letters expand to two digits (A=10 .. Z=35) before the Luhn pass.
	var digits []int
	for _, r := range s {
		if isDigit(r) {
			digits = append(digits, int(r-'0'))
			continue
		}
		v := int(r-'A') + 10
		digits = append(digits, v/10, v%10)
	}

	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if (len(digits)-1-i)%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// CountryCode returns the two-letter issuer country of an ISIN, or "" when
// the identifier is too short to carry one.
func CountryCode(isin string) string {
	isin = NormalizeISIN(isin)
	if len(isin) < 2 {
		return ""
	}
	return isin[:2]
}

func isLetter(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
