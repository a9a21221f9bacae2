package models

import "encoding/json"

// --- Fixed Income / Bond Terms ---

// BondTerms describes one fixed-coupon security. Values are immutable once
// validated; all rates are decimals (0.05 = 5%).
type BondTerms struct {
	ISIN                 string  `json:"isin"                   mapstructure:"isin"`
	FaceValue            float64 `json:"face_value"             mapstructure:"face_value"`
	CouponRate           float64 `json:"coupon_rate"            mapstructure:"coupon_rate"`
	YieldToMaturity      float64 `json:"ytm"                    mapstructure:"ytm"`
	YearsToMaturity      float64 `json:"years_to_maturity"      mapstructure:"years_to_maturity"`
	CompoundingFrequency int     `json:"compounding_frequency"  mapstructure:"compounding_frequency"` // 1 = annual, 2 = semiannual
}

// PeriodRate returns the per-period discount rate ytm / frequency.
func (b BondTerms) PeriodRate() float64 {
	return b.YieldToMaturity / float64(b.CompoundingFrequency)
}

// WithYield returns a copy of the terms discounted at a different yield.
func (b BondTerms) WithYield(ytm float64) BondTerms {
	b.YieldToMaturity = ytm
	return b
}

// Cashflow is a single scheduled payment. Period is measured in
// compounding periods from the valuation date and may be fractional.
type Cashflow struct {
	Period float64 `json:"period"`
	Amount float64 `json:"amount"`
}

// --- Fixed Income / Valuation ---

// ValuationResult holds price and first/second order sensitivities of one
// bond at its yield. Durations and convexity are in period units; the
// *Years fields carry the same measure rescaled by the compounding frequency.
type ValuationResult struct {
	Price                 float64 `json:"price"`
	MacaulayDuration      float64 `json:"macaulay_duration"`
	ModifiedDuration      float64 `json:"modified_duration"`
	Convexity             float64 `json:"convexity"`
	DV01                  float64 `json:"dv01"`
	MacaulayDurationYears float64 `json:"macaulay_duration_years"`
	ModifiedDurationYears float64 `json:"modified_duration_years"`
	ConvexityYears        float64 `json:"convexity_years"`
}

// Position pairs a bond with its base-case valuation.
type Position struct {
	Bond      BondTerms       `json:"bond"`
	Valuation ValuationResult `json:"valuation"`
}

// MarketValue is the position's market value. Quantity is always one.
func (p Position) MarketValue() float64 {
	return p.Valuation.Price
}

// --- Fixed Income / Shock Scenarios ---

// ShockScenario is either a parallel shift applied to every bond or a
// per-instrument map of shifts. Unlisted instruments are not shifted.
type ShockScenario struct {
	ParallelShiftBps      *int           `json:"parallel_shift_bps,omitempty"       mapstructure:"parallel_shift_bps"`
	PerInstrumentShiftBps map[string]int `json:"per_instrument_shift_bps,omitempty" mapstructure:"per_instrument_shift_bps"`
}

// ParallelShift builds a scenario shifting every yield by bps.
func ParallelShift(bps int) ShockScenario {
	return ShockScenario{ParallelShiftBps: &bps}
}

// PerInstrumentShift builds a scenario from an ISIN → bps map. The map is
// copied so later changes by the caller do not leak into the scenario.
func PerInstrumentShift(shifts map[string]int) ShockScenario {
	cp := make(map[string]int, len(shifts))
	for k, v := range shifts {
		cp[k] = v
	}
	return ShockScenario{PerInstrumentShiftBps: cp}
}

// IsParallel reports whether the scenario is a parallel shift.
func (s ShockScenario) IsParallel() bool {
	return s.ParallelShiftBps != nil
}

// ShiftBpsFor returns the shift in basis points for one instrument.
func (s ShockScenario) ShiftBpsFor(isin string) int {
	if s.ParallelShiftBps != nil {
		return *s.ParallelShiftBps
	}
	return s.PerInstrumentShiftBps[isin]
}

// ShockResult is the outcome of re-pricing one bond under a scenario.
type ShockResult struct {
	ISIN                    string  `json:"isin"`
	ShiftBps                int     `json:"shift_bps"`
	ShockedYield            float64 `json:"shocked_yield"`
	ShockedPrice            float64 `json:"shocked_price"`
	PriceChange             float64 `json:"price_change"`
	PLImpact                float64 `json:"pl_impact"`
	DurationApproxPL        float64 `json:"duration_approx_pl"`
	ConvexityApproxPL       float64 `json:"convexity_approx_pl"`
	ContributionToPLPercent float64 `json:"contribution_to_pl_pct"`
	ContributionDefined     bool    `json:"contribution_defined"` // false when total P/L is zero
}

// ApproximationError is the gap between the full re-price and the
// duration-only estimate.
func (r ShockResult) ApproximationError() float64 {
	return r.PLImpact - r.DurationApproxPL
}

// --- Fixed Income / Portfolio ---

// PortfolioSummary holds portfolio-level risk totals.
type PortfolioSummary struct {
	Bonds                        int     `json:"bonds"`
	TotalMarketValue             float64 `json:"total_market_value"`
	TotalPL                      float64 `json:"total_pl"`
	WeightedAverageDuration      float64 `json:"weighted_average_duration"`
	WeightedAverageDurationYears float64 `json:"weighted_average_duration_years"`
	DurationDefined              bool    `json:"duration_defined"` // false when total market value is zero
	TotalDV01                    float64 `json:"total_dv01"`
}

// MarshalJSON writes an undefined weighted duration as null, since NaN has
// no JSON encoding.
func (s PortfolioSummary) MarshalJSON() ([]byte, error) {
	type plain PortfolioSummary
	out := struct {
		plain
		WeightedAverageDuration      *float64 `json:"weighted_average_duration"`
		WeightedAverageDurationYears *float64 `json:"weighted_average_duration_years"`
	}{plain: plain(s)}
	if s.DurationDefined {
		d, y := s.WeightedAverageDuration, s.WeightedAverageDurationYears
		out.WeightedAverageDuration = &d
		out.WeightedAverageDurationYears = &y
	}
	return json.Marshal(out)
}

// Failure records a bond that could not be valued or shocked.
type Failure struct {
	ISIN  string `json:"isin"`
	Stage string `json:"stage"` // "valuation" or "shock"
	Error string `json:"error"`
}

// Exclusion records an input row dropped before valuation, e.g. a bond
// already matured at the spot date.
type Exclusion struct {
	ISIN   string `json:"isin"`
	Reason string `json:"reason"`
}
