package fixedincome

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/bondrisk/pkg/models"
)

// Convention selects how a maturity in years is turned into coupon periods.
// The two conventions produce different prices for the same bond.
type Convention string

const (
	// WholePeriodConvention rounds the period count up and pays a full
	// coupon at every integer period, redemption at the last one. For any
	// frequency it uses ceil(years × frequency) periods paying
	// face × coupon / frequency, so it reduces to the annual
	// ceil(years) rule with a full annual coupon only when frequency is 1.
	WholePeriodConvention Convention = "whole"
	// FractionalPeriodConvention pays coupons at integer periods and puts
	// the final coupon plus redemption at the exact, possibly fractional,
	// period count.
	FractionalPeriodConvention Convention = "fractional"
)

// periodSnap absorbs floating-point noise in years × frequency.
const periodSnap = 1e-9

// ParseConvention maps a config value to a Convention.
func ParseConvention(s string) (Convention, error) {
	switch Convention(strings.ToLower(strings.TrimSpace(s))) {
	case WholePeriodConvention, "whole_period", "annual":
		return WholePeriodConvention, nil
	case FractionalPeriodConvention, "fractional_period", "semiannual":
		return FractionalPeriodConvention, nil
	}
	return "", fmt.Errorf("unknown convention %q (want %q or %q)", s, WholePeriodConvention, FractionalPeriodConvention)
}

// String implements fmt.Stringer.
func (c Convention) String() string { return string(c) }

// PeriodCount returns years × frequency, snapped to the nearest integer
// when it is within rounding noise of one.
func PeriodCount(years float64, frequency int) float64 {
	n := years * float64(frequency)
	if r := math.Round(n); math.Abs(n-r) < periodSnap {
		return r
	}
	return n
}

// GenerateSchedule returns the ordered cashflows of a bond. Coupon rows of
// zero amount are omitted, so a zero-coupon bond has a single flow.
func GenerateSchedule(face, couponRate float64, frequency int, years float64, conv Convention) ([]models.Cashflow, error) {
	if frequency <= 0 {
		return nil, fmt.Errorf("%w: compounding frequency must be positive, got %d", ErrInvalidTerms, frequency)
	}
	if years <= 0 || math.IsNaN(years) {
		return nil, fmt.Errorf("%w: %g years to maturity", ErrNonPositiveHorizon, years)
	}

	coupon := face * couponRate / float64(frequency)
	periods := PeriodCount(years, frequency)

	switch conv {
	case WholePeriodConvention:
		n := int(math.Ceil(periods))
		flows := make([]models.Cashflow, 0, n)
		for t := 1; t <= n; t++ {
			amt := coupon
			if t == n {
				amt += face
			}
			if amt != 0 {
				flows = append(flows, models.Cashflow{Period: float64(t), Amount: amt})
			}
		}
		return flows, nil

	case FractionalPeriodConvention:
		whole := math.Floor(periods)
		fractional := periods - whole
		n := int(whole)
		flows := make([]models.Cashflow, 0, n+1)
		for t := 1; t <= n; t++ {
			amt := coupon
			if fractional == 0 && t == n {
				amt += face
			}
			if amt != 0 {
				flows = append(flows, models.Cashflow{Period: float64(t), Amount: amt})
			}
		}
		if fractional > 0 {
			flows = append(flows, models.Cashflow{Period: periods, Amount: coupon + face})
		}
		return flows, nil
	}
	return nil, fmt.Errorf("unknown convention %q", conv)
}

// Schedule generates the cashflows for validated bond terms.
func Schedule(b models.BondTerms, conv Convention) ([]models.Cashflow, error) {
	flows, err := GenerateSchedule(b.FaceValue, b.CouponRate, b.CompoundingFrequency, b.YearsToMaturity, conv)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.ISIN, err)
	}
	return flows, nil
}
