package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatBps formats a yield shift in basis points.
// e.g., 25 → "+25 bps", -10 → "-10 bps", 0 → "0 bps"
func FormatBps(bps int) string {
	if bps > 0 {
		return fmt.Sprintf("+%d bps", bps)
	}
	return fmt.Sprintf("%d bps", bps)
}

// FormatCompact formats an amount in compact notation. INR amounts use the
// Indian lakh/crore scale, everything else K/M/B.
// e.g., FormatCompact(1927345, "INR") → "19.27 L", FormatCompact(2.5e9, "USD") → "2.5 B"
func FormatCompact(amount float64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	a := math.Abs(amount)

	if strings.EqualFold(currency, "INR") {
		switch {
		case a >= 1e7:
			return sign + trimDecimals(a/1e7) + " Cr"
		case a >= 1e5:
			return sign + trimDecimals(a/1e5) + " L"
		case a >= 1e3:
			return sign + trimDecimals(a/1e3) + " K"
		}
		return fmt.Sprintf("%s%.2f", sign, a)
	}

	switch {
	case a >= 1e9:
		return sign + trimDecimals(a/1e9) + " B"
	case a >= 1e6:
		return sign + trimDecimals(a/1e6) + " M"
	case a >= 1e3:
		return sign + trimDecimals(a/1e3) + " K"
	}
	return fmt.Sprintf("%s%.2f", sign, a)
}

// trimDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func trimDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
