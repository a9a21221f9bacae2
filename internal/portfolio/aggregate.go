// Package portfolio combines per-bond valuations and shock results into
// portfolio-level risk figures, and runs whole analysis passes.
package portfolio

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/bondrisk/internal/analysis/shock"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// ErrDegenerateAggregate is returned when the portfolio has no market value,
// so value-weighted measures are undefined.
var ErrDegenerateAggregate = errors.New("degenerate aggregate: total market value is zero")

// Summarize aggregates valued positions without a shock scenario.
// TotalPL is zero.
func Summarize(positions []models.Position) (models.PortfolioSummary, error) {
	return aggregate(positions, nil)
}

// Aggregate builds the portfolio summary from shock outcomes. Market value,
// DV01 and duration cover every position; P/L covers the bonds that were
// re-priced successfully.
//
// When total market value is zero the summary is still returned, with
// WeightedAverageDuration = NaN, DurationDefined = false and
// ErrDegenerateAggregate.
func Aggregate(outcomes []shock.Outcome) (models.PortfolioSummary, error) {
	positions := make([]models.Position, len(outcomes))
	pl := make([]float64, 0, len(outcomes))
	for i, o := range outcomes {
		positions[i] = o.Position
		if o.OK() {
			pl = append(pl, o.Result.PLImpact)
		}
	}
	return aggregate(positions, pl)
}

func aggregate(positions []models.Position, pl []float64) (models.PortfolioSummary, error) {
	n := len(positions)
	mv := make([]float64, n)
	dur := make([]float64, n)
	durYears := make([]float64, n)
	dv01 := make([]float64, n)
	for i, p := range positions {
		mv[i] = p.MarketValue()
		dur[i] = p.Valuation.ModifiedDuration
		durYears[i] = p.Valuation.ModifiedDurationYears
		dv01[i] = p.Valuation.DV01
	}

	s := models.PortfolioSummary{
		Bonds:            n,
		TotalMarketValue: floats.Sum(mv),
		TotalPL:          floats.Sum(pl),
		TotalDV01:        floats.Sum(dv01),
	}
	if s.TotalMarketValue == 0 {
		s.WeightedAverageDuration = math.NaN()
		s.WeightedAverageDurationYears = math.NaN()
		return s, ErrDegenerateAggregate
	}
	// Σ(D_mod × MV) / ΣMV
	s.WeightedAverageDuration = stat.Mean(dur, mv)
	s.WeightedAverageDurationYears = stat.Mean(durYears, mv)
	s.DurationDefined = true
	return s, nil
}

// Rank orders the successfully shocked bonds by absolute P/L impact,
// largest first. Ties are broken by ISIN ascending so the order is
// deterministic.
func Rank(outcomes []shock.Outcome) []models.ShockResult {
	ranked := make([]models.ShockResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			ranked = append(ranked, o.Result)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := math.Abs(ranked[i].PLImpact), math.Abs(ranked[j].PLImpact)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].ISIN < ranked[j].ISIN
	})
	return ranked
}

// TopSensitive returns the n most sensitive bonds. n ≤ 0 returns all.
func TopSensitive(outcomes []shock.Outcome, n int) []models.ShockResult {
	ranked := Rank(outcomes)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
