// Package shock re-prices bonds under hypothetical yield shifts and reports
// the full re-price P/L next to first- and second-order estimates.
package shock

import (
	"fmt"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// Outcome is the shock result of one position. Err is set when the shocked
// yield could not be priced; Result is then zero apart from ISIN/ShiftBps.
type Outcome struct {
	Position models.Position
	Result   models.ShockResult
	Err      error
}

// OK reports whether the bond was re-priced.
func (o Outcome) OK() bool { return o.Err == nil }

// BpsToDecimal converts basis points into a decimal yield shift.
func BpsToDecimal(bps int) float64 {
	return float64(bps) / 10000
}

// Bond shocks a single valued position by shiftBps. The linear estimate
// uses the base-case modified duration and price, never post-shock values.
func Bond(p models.Position, shiftBps int, conv fixedincome.Convention) (models.ShockResult, error) {
	shift := BpsToDecimal(shiftBps)
	b := p.Bond
	v := p.Valuation

	res := models.ShockResult{
		ISIN:         b.ISIN,
		ShiftBps:     shiftBps,
		ShockedYield: b.YieldToMaturity + shift,
	}
	shocked, err := fixedincome.Reprice(b, res.ShockedYield, conv)
	if err != nil {
		return res, fmt.Errorf("shock %+d bps: %w", shiftBps, err)
	}

	res.ShockedPrice = shocked
	res.PriceChange = shocked - v.Price
	res.PLImpact = res.PriceChange
	res.DurationApproxPL = -v.ModifiedDuration * v.Price * shift
	res.ConvexityApproxPL = -v.ModifiedDurationYears*v.Price*shift +
		0.5*v.ConvexityYears*v.Price*shift*shift
	return res, nil
}

// ApplyParallel shifts every position by the same amount.
func ApplyParallel(positions []models.Position, shiftBps int, conv fixedincome.Convention) []Outcome {
	return Apply(positions, models.ParallelShift(shiftBps), conv)
}

// ApplyPerInstrument shifts each position by its own amount; positions
// absent from shifts are left at their base yield.
func ApplyPerInstrument(positions []models.Position, shifts map[string]int, conv fixedincome.Convention) []Outcome {
	return Apply(positions, models.PerInstrumentShift(shifts), conv)
}

// Apply runs a scenario over all positions and fills P/L contribution
// percentages across the bonds that were re-priced. Outcomes keep the input
// order. A failing bond does not affect the others.
func Apply(positions []models.Position, sc models.ShockScenario, conv fixedincome.Convention) []Outcome {
	out := make([]Outcome, len(positions))
	for i, p := range positions {
		res, err := Bond(p, sc.ShiftBpsFor(p.Bond.ISIN), conv)
		out[i] = Outcome{Position: p, Result: res, Err: err}
	}
	FillContributions(out)
	return out
}

// FillContributions sets ContributionToPLPercent = PL / ΣPL × 100 on every
// successful outcome. When ΣPL is zero the ratio is undefined: the percent
// is reported as 0 and ContributionDefined stays false.
func FillContributions(outcomes []Outcome) {
	var total float64
	for _, o := range outcomes {
		if o.OK() {
			total += o.Result.PLImpact
		}
	}
	for i := range outcomes {
		if !outcomes[i].OK() {
			continue
		}
		r := &outcomes[i].Result
		if total == 0 {
			r.ContributionToPLPercent = 0
			r.ContributionDefined = false
			continue
		}
		r.ContributionToPLPercent = r.PLImpact / total * 100
		r.ContributionDefined = true
	}
}
