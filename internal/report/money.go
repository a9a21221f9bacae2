package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney formats an amount with the currency's symbol, grouping and
// minor-unit precision, e.g. 1234.5 INR → "₹1,234.50". Unknown currency
// codes fall back to a plain two-decimal amount followed by the code.
func formatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// formatSignedMoney is formatMoney with an explicit "+" for gains.
func formatSignedMoney(amount float64, currency string) string {
	s := formatMoney(amount, currency)
	if amount > 0 && !math.IsInf(amount, 0) {
		return "+" + s
	}
	return s
}
