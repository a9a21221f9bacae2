package fixedincome

import (
	"fmt"
	"math"

	"github.com/seenimoa/bondrisk/pkg/models"
)

// BasisPoint is one hundredth of a percent in decimal form.
const BasisPoint = 0.0001

// Sensitivity holds duration and convexity of a schedule, in period units.
type Sensitivity struct {
	MacaulayDuration float64
	ModifiedDuration float64
	Convexity        float64
}

// Price discounts the schedule at ytm / frequency per period.
//
//	price = Σ CF_t / (1+r)^t
//
// A yield close enough to −frequency for the discount factors to underflow
// is rejected with ErrInvalidYield rather than returning an infinite price.
func Price(flows []models.Cashflow, ytm float64, frequency int) (float64, error) {
	if frequency <= 0 {
		return 0, fmt.Errorf("%w: compounding frequency must be positive, got %d", ErrInvalidTerms, frequency)
	}
	if err := checkYield(ytm, frequency); err != nil {
		return 0, err
	}
	r := ytm / float64(frequency)

	var price float64
	for _, cf := range flows {
		price += cf.Amount / math.Pow(1+r, cf.Period)
	}
	if !isFinite(price) {
		return 0, fmt.Errorf("%w: yield %g gives a non-finite price (period rate %g)", ErrInvalidYield, ytm, r)
	}
	return price, nil
}

// Sensitivities computes Macaulay duration, modified duration and
// convexity of the schedule at ytm.
//
//	D_mac = Σ t·CF_t / (1+r)^t / P
//	D_mod = D_mac / (1+r)
//	C     = Σ t(t+1)·CF_t / (1+r)^(t+2) / P
func Sensitivities(flows []models.Cashflow, ytm float64, frequency int) (Sensitivity, error) {
	price, err := Price(flows, ytm, frequency)
	if err != nil {
		return Sensitivity{}, err
	}
	return sensitivitiesAt(flows, ytm/float64(frequency), price)
}

func sensitivitiesAt(flows []models.Cashflow, r, price float64) (Sensitivity, error) {
	if !(price > 0) {
		return Sensitivity{}, fmt.Errorf("%w: price must be positive to weight cashflows, got %g", ErrInvalidTerms, price)
	}

	var weighted, curvature float64
	for _, cf := range flows {
		t := cf.Period
		weighted += t * cf.Amount / math.Pow(1+r, t)
		curvature += t * (t + 1) * cf.Amount / math.Pow(1+r, t+2)
	}

	mac := weighted / price
	s := Sensitivity{
		MacaulayDuration: mac,
		ModifiedDuration: mac / (1 + r),
		Convexity:        curvature / price,
	}
	if !isFinite(s.MacaulayDuration) || !isFinite(s.ModifiedDuration) || !isFinite(s.Convexity) {
		return Sensitivity{}, fmt.Errorf("%w: non-finite sensitivities at period rate %g", ErrInvalidYield, r)
	}
	return s, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Value prices a bond and derives every sensitivity measure.
func Value(b models.BondTerms, conv Convention) (models.ValuationResult, error) {
	if err := Validate(b); err != nil {
		return models.ValuationResult{}, err
	}
	flows, err := Schedule(b, conv)
	if err != nil {
		return models.ValuationResult{}, err
	}
	price, err := Price(flows, b.YieldToMaturity, b.CompoundingFrequency)
	if err != nil {
		return models.ValuationResult{}, fmt.Errorf("%s: %w", b.ISIN, err)
	}
	s, err := sensitivitiesAt(flows, b.PeriodRate(), price)
	if err != nil {
		return models.ValuationResult{}, fmt.Errorf("%s: %w", b.ISIN, err)
	}

	f := float64(b.CompoundingFrequency)
	return models.ValuationResult{
		Price:                 price,
		MacaulayDuration:      s.MacaulayDuration,
		ModifiedDuration:      s.ModifiedDuration,
		Convexity:             s.Convexity,
		DV01:                  s.ModifiedDuration * price * BasisPoint,
		MacaulayDurationYears: s.MacaulayDuration / f,
		ModifiedDurationYears: s.ModifiedDuration / f,
		ConvexityYears:        s.Convexity / (f * f),
	}, nil
}

// Reprice returns only the price of the bond at a different yield, using
// the same convention and frequency as the base valuation.
func Reprice(b models.BondTerms, ytm float64, conv Convention) (float64, error) {
	shocked := b.WithYield(ytm)
	flows, err := Schedule(shocked, conv)
	if err != nil {
		return 0, err
	}
	price, err := Price(flows, shocked.YieldToMaturity, shocked.CompoundingFrequency)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", shocked.ISIN, err)
	}
	return price, nil
}
