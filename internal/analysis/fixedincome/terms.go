// Package fixedincome implements the bond valuation and risk engine:
// cashflow schedules, discounted-cashflow pricing, and duration / convexity
// sensitivities. Every function is pure and safe to call concurrently.
package fixedincome

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/bondrisk/pkg/models"
)

// Engine errors. Callers match them with errors.Is; the returned errors are
// wrapped with the offending bond and values.
var (
	// ErrInvalidYield means the per-period discount rate is ≤ −1, so the
	// discount factor is not positive.
	ErrInvalidYield = errors.New("invalid yield")
	// ErrNonPositiveHorizon means the bond has already matured. Matured
	// bonds must be filtered out before reaching the engine.
	ErrNonPositiveHorizon = errors.New("non-positive horizon")
	// ErrInvalidTerms covers every other construction-time violation.
	ErrInvalidTerms = errors.New("invalid bond terms")
)

// NewBondTerms builds validated bond terms.
func NewBondTerms(isin string, face, coupon, ytm, years float64, frequency int) (models.BondTerms, error) {
	b := models.BondTerms{
		ISIN:                 strings.TrimSpace(isin),
		FaceValue:            face,
		CouponRate:           coupon,
		YieldToMaturity:      ytm,
		YearsToMaturity:      years,
		CompoundingFrequency: frequency,
	}
	if err := Validate(b); err != nil {
		return models.BondTerms{}, err
	}
	return b, nil
}

// Validate checks the BondTerms invariants.
func Validate(b models.BondTerms) error {
	if b.ISIN == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidTerms)
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"face value", b.FaceValue},
		{"coupon rate", b.CouponRate},
		{"yield", b.YieldToMaturity},
		{"years to maturity", b.YearsToMaturity},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s: %s is not finite", ErrInvalidTerms, b.ISIN, f.name)
		}
	}
	if b.FaceValue <= 0 {
		return fmt.Errorf("%w: %s: face value must be positive, got %g", ErrInvalidTerms, b.ISIN, b.FaceValue)
	}
	if b.CouponRate < 0 {
		return fmt.Errorf("%w: %s: coupon rate must not be negative, got %g", ErrInvalidTerms, b.ISIN, b.CouponRate)
	}
	if b.CompoundingFrequency <= 0 {
		return fmt.Errorf("%w: %s: compounding frequency must be positive, got %d", ErrInvalidTerms, b.ISIN, b.CompoundingFrequency)
	}
	if b.YearsToMaturity <= 0 {
		return fmt.Errorf("%w: %s: %g years to maturity", ErrNonPositiveHorizon, b.ISIN, b.YearsToMaturity)
	}
	if err := checkYield(b.YieldToMaturity, b.CompoundingFrequency); err != nil {
		return fmt.Errorf("%s: %w", b.ISIN, err)
	}
	return nil
}

// checkYield rejects yields whose per-period rate is ≤ −1.
func checkYield(ytm float64, frequency int) error {
	r := ytm / float64(frequency)
	if math.IsNaN(r) || r <= -1 {
		return fmt.Errorf("%w: yield %g gives period rate %g (frequency %d)", ErrInvalidYield, ytm, r, frequency)
	}
	return nil
}
